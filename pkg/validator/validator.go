// Package validator provides small, composable field validators used
// to check configuration before the server starts.
package validator

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// FieldError describes one failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validator accumulates FieldErrors across a batch of checks.
type Validator struct {
	errors []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a validation failure.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all recorded failures.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Error returns a single combined error, or nil if there were no failures.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	msgs := make([]string, len(v.errors))
	for i, e := range v.errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// Required validates that a field is not empty.
func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
}

// Port validates that a TCP port number lies within [min, max].
func (v *Validator) Port(field string, value, min, max int) {
	if value < min || value > max {
		v.AddError(field, fmt.Sprintf("must be between %d and %d", min, max))
	}
}

// IP validates that value parses as an IPv4 or IPv6 literal.
func (v *Validator) IP(field, value string) {
	if value == "" {
		return
	}
	if net.ParseIP(value) == nil {
		v.AddError(field, "must be a valid IP address")
	}
}

// Hostname validates a DNS hostname.
func (v *Validator) Hostname(field, value string) {
	if value == "" {
		return
	}
	pattern := `^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?$`
	matched, _ := regexp.MatchString(pattern, value)
	if !matched {
		v.AddError(field, "must be a valid hostname")
	}
}

// In validates that value is one of allowed.
func (v *Validator) In(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}
