// Command socks5d runs a standalone SOCKS5 proxy server.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ferrolane/socks5d/pkg/audit"
	"github.com/ferrolane/socks5d/pkg/config"
	"github.com/ferrolane/socks5d/pkg/credentials"
	"github.com/ferrolane/socks5d/pkg/database"
	"github.com/ferrolane/socks5d/pkg/logger"
	"github.com/ferrolane/socks5d/pkg/metrics"
	"github.com/ferrolane/socks5d/pkg/socks5/request"
	"github.com/ferrolane/socks5d/pkg/socks5/server"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
)

var cfg = config.Default()

func main() {
	rootCmd := &cobra.Command{
		Use:   "socks5d",
		Short: "SOCKS5 proxy server",
		Long:  "A SOCKS5 proxy server implementing RFC 1928 and the RFC 1929 username/password sub-negotiation.",
		RunE:  run,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfg.Server.Proto, "proto", cfg.Server.Proto, "protocol to serve: tcp or udp")
	flags.StringVar(&cfg.Server.IP, "ip", cfg.Server.IP, "address to bind")
	flags.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "port to bind (1024-65535)")
	flags.StringVar(&cfg.Users.FilePath, "users", cfg.Users.FilePath, "path to credentials CSV file")
	flags.BoolVar(&cfg.Users.RequireAuth, "require-auth", cfg.Users.RequireAuth, "reject clients that do not offer USER_PASS instead of falling back to NO_AUTH")
	flags.StringVar(&cfg.Users.DSN, "users-dsn", cfg.Users.DSN, "Postgres DSN for the SQL credential backend (overrides --users)")
	flags.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "address to serve /metrics on, empty disables")
	flags.StringVar(&cfg.Redis.Addr, "redis-addr", cfg.Redis.Addr, "Redis address for the audit event sink, empty disables")
	flags.IntVar(&cfg.RateLimit.MaxConnections, "rate-limit", cfg.RateLimit.MaxConnections, "max connections per source IP per window, 0 disables")
	flags.DurationVar(&cfg.RateLimit.Window, "rate-limit-window", cfg.RateLimit.Window, "admission gate window")
	flags.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level: debug, info, warn, error")
	flags.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "log format: json or text")
	flags.DurationVar(&cfg.Timeouts.Negotiation, "negotiation-timeout", cfg.Timeouts.Negotiation, "greeting/method-selection deadline")
	flags.DurationVar(&cfg.Timeouts.Auth, "auth-timeout", cfg.Timeouts.Auth, "USER_PASS sub-negotiation deadline")
	flags.DurationVar(&cfg.Timeouts.Dial, "dial-timeout", cfg.Timeouts.Dial, "upstream dial deadline")
	flags.DurationVar(&cfg.Timeouts.RelayIdle, "relay-idle-timeout", cfg.Timeouts.RelayIdle, "relay deadline set once when the relay starts (not extended by traffic), 0 disables")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if cfg.Server.Proto == "udp" {
		logger.SetGlobal(logger.New(logger.Config{
			Level: cfg.Logging.Level, Format: cfg.Logging.Format, Service: "socks5d",
		}))
		logger.Global().Info("udp mode is not implemented, exiting")
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.SetGlobal(logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: "socks5d",
	}))

	store, err := buildStore()
	if err != nil {
		return fmt.Errorf("build credential store: %w", err)
	}

	auditSink := audit.NewSink(cfg.Redis.Addr, "socks5d:audit")
	defer auditSink.Close()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	var rateLimiter *server.RateLimiter
	if cfg.RateLimit.MaxConnections > 0 {
		rateLimiter = server.NewRateLimiter(cfg.RateLimit.MaxConnections, cfg.RateLimit.Window)
	}

	dialer := request.NewDialer(&net.Dialer{Timeout: cfg.Timeouts.Dial})
	timeouts := server.Timeouts{
		Negotiation: cfg.Timeouts.Negotiation,
		Auth:        cfg.Timeouts.Auth,
		Dial:        cfg.Timeouts.Dial,
		RelayIdle:   cfg.Timeouts.RelayIdle,
	}
	conn := server.NewConn(store, cfg.Users.RequireAuth, dialer, timeouts, auditSink)
	listener := server.NewListener(conn, rateLimiter)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Global().Info("shutdown signal received")
		cancel()
	}()

	return listener.Serve(ctx, cfg.Server.Addr())
}

// buildStore selects the credential backend: --users-dsn takes
// precedence over --users when both are set, per the supplemental
// SQLStore design.
func buildStore() (credentials.Store, error) {
	if cfg.Users.DSN != "" {
		if err := database.ConnectDSN(cfg.Users.DSN); err != nil {
			return nil, err
		}
		store := credentials.NewSQLStore(database.GetDB())
		if err := store.Migrate(); err != nil {
			return nil, err
		}
		return store, nil
	}
	return credentials.NewFileStore(cfg.Users.FilePath), nil
}

func serveMetrics(addr string) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/metrics", metrics.PrometheusHandler())
	if err := app.Listen(addr); err != nil {
		logger.Global().Warn("metrics_server_stopped", "error", err.Error())
	}
}
