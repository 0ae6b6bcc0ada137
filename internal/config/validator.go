package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/procwatch/procwatch/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "server.grace_period_seconds")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// settingNameRegex validates server setting names. Names become command line
// flags, so they must look like flag words.
var settingNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)
	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Bin == "" {
		errors = append(errors, ValidationError{
			Field:   "server.bin",
			Value:   c.Server.Bin,
			Message: "server executable must not be empty",
		})
	}

	if c.Server.GracePeriodSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "server.grace_period_seconds",
			Value:   c.Server.GracePeriodSeconds,
			Message: "grace period must not be negative",
		})
	}

	for name := range c.Server.Settings {
		if !settingNameRegex.MatchString(name) {
			errors = append(errors, ValidationError{
				Field:   "server.settings",
				Value:   name,
				Message: "setting name is not a valid flag name",
			})
		}
		if name == "daemonize" {
			errors = append(errors, ValidationError{
				Field:   "server.settings",
				Value:   name,
				Message: "daemonize is controlled by server.daemonize",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(logging.ValidLevels(), ", ")),
		})
	}

	return errors
}
