// Package config provides configuration management.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError represents a configuration loading error.
type ConfigError struct {
	Op  string // Operation that failed (read, unmarshal, validate)
	Err error  // Underlying error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidationError represents configuration validation errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration validation failed with %d errors:\n  - %s",
		len(e.Errors), strings.Join(e.Errors, "\n  - "))
}

// HasError checks if a specific field has a validation error.
func (e *ValidationError) HasError(field string) bool {
	for _, err := range e.Errors {
		if strings.Contains(err, field) {
			return true
		}
	}
	return false
}

// ConfigurationError means no LLM provider could be resolved, or the selected
// one is missing required settings. It is fatal before any stage runs.
type ConfigurationError struct {
	// Provider is the provider that was selected, empty when none matched.
	Provider string

	// Missing lists the absent settings of the selected provider.
	Missing []string

	// Checked lists every provider considered when none matched.
	Checked []string

	// Err is set when constructing the selected provider failed.
	Err error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Provider != "" && len(e.Missing) > 0:
		return fmt.Sprintf("provider %s is selected but missing required settings: %s",
			e.Provider, strings.Join(e.Missing, ", "))
	case e.Provider != "" && e.Err != nil:
		return fmt.Sprintf("provider %s could not be initialized: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("no LLM provider configured; checked: %s", strings.Join(e.Checked, "; "))
	}
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsConfigurationError checks if an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
