// Package config loads and validates the proxy's configuration,
// merging environment variables with (higher-precedence) CLI flags.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/ferrolane/socks5d/pkg/validator"
)

// Config holds the complete configuration for a socks5d process.
type Config struct {
	Server    ServerConfig
	Users     UsersConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Timeouts  TimeoutsConfig
}

// ServerConfig holds the SOCKS5 listener's bind address.
type ServerConfig struct {
	Proto string // "tcp" or "udp"
	IP    string
	Port  int
}

// Addr returns "ip:port" for net.Listen.
func (s ServerConfig) Addr() string {
	return s.IP + ":" + strconv.Itoa(s.Port)
}

// UsersConfig selects and configures the credential backend.
type UsersConfig struct {
	FilePath    string // --users
	DSN         string // --users-dsn, selects SQLStore instead
	RequireAuth bool   // --require-auth
}

// LoggingConfig holds structured-logging configuration.
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures the optional Prometheus HTTP endpoint.
type MetricsConfig struct {
	Addr string // empty disables the endpoint
}

// RedisConfig configures the optional audit event sink.
type RedisConfig struct {
	Addr string // empty disables the sink
}

// RateLimitConfig configures the per-source-IP admission gate.
type RateLimitConfig struct {
	MaxConnections int // 0 disables the gate
	Window         time.Duration
}

// TimeoutsConfig bounds each phase of a connection's lifetime.
type TimeoutsConfig struct {
	Negotiation time.Duration
	Auth        time.Duration
	Dial        time.Duration
	RelayIdle   time.Duration
}

// Default returns the configuration's baseline values before flags or
// environment variables are applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Proto: "tcp",
			IP:    "0.0.0.0",
			Port:  1080,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			MaxConnections: 0,
			Window:         time.Minute,
		},
		Timeouts: TimeoutsConfig{
			Negotiation: 10 * time.Second,
			Auth:        10 * time.Second,
			Dial:        10 * time.Second,
			RelayIdle:   0,
		},
	}
}

// Validate checks the configuration for internal consistency, per the
// external-interface requirements: --port in 1024..65535, --proto in
// {tcp, udp}, --ip a valid literal.
func (c Config) Validate() error {
	v := validator.New()
	v.In("proto", c.Server.Proto, []string{"tcp", "udp"})
	v.IP("ip", c.Server.IP)
	v.Port("port", c.Server.Port, 1024, 65535)
	return v.Error()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
