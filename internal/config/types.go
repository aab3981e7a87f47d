// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// LogLevelDebug logs every load, watch and propagation step.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"

	// LogFormatText is human-readable output.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits logfmt key=value pairs.
	LogFormatLogfmt LogFormat = "logfmt"

	// DefaultMaxSteps is the default propagation bound.
	DefaultMaxSteps = 10000
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of emitted log records.
	LogLevel string

	// LogFormat selects the log encoding.
	LogFormat string

	// InvalidConfigError lists every invalid field of a Config.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the livebind configuration.
	Config struct {
		// Interop enables classic/declarative interop.
		Interop bool `json:"interop" mapstructure:"interop"`
		// Eviction configures the cache eviction policy.
		Eviction EvictionConfig `json:"eviction" mapstructure:"eviction"`
		// Propagation configures binding propagation.
		Propagation PropagationConfig `json:"propagation" mapstructure:"propagation"`
		// Log configures logging.
		Log LogConfig `json:"log" mapstructure:"log"`
		// UI configures CLI output.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// EvictionConfig configures the cache eviction policy.
	EvictionConfig struct {
		// AlternateExtensions are the extensions of declarative modules that
		// are evicted from the classic cache after loading.
		AlternateExtensions []string `json:"alternate_extensions" mapstructure:"alternate_extensions"`
	}

	// PropagationConfig configures binding propagation.
	PropagationConfig struct {
		// MaxSteps bounds one propagation wave.
		MaxSteps int `json:"max_steps" mapstructure:"max_steps"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}

	// UIConfig configures CLI output.
	UIConfig struct {
		// Verbose prints load statistics and every delivery count.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Eviction:    EvictionConfig{AlternateExtensions: []string{".mjs"}},
		Propagation: PropagationConfig{MaxSteps: DefaultMaxSteps},
		Log:         LogConfig{Level: LogLevelInfo, Format: LogFormatText},
	}
}

// Validate returns ErrInvalidLogLevel for unknown levels.
func (l LogLevel) Validate() error {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, string(l))
	}
}

// Validate returns ErrInvalidLogFormat for unknown formats.
func (f LogFormat) Validate() error {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, string(f))
	}
}

// Validate checks the fields CUE cannot check for environment overrides.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Log.Level.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Log.Format.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Propagation.MaxSteps < 1 {
		errs = append(errs, fmt.Errorf("propagation.max_steps must be at least 1, got %d", c.Propagation.MaxSteps))
	}
	for _, ext := range c.Eviction.AlternateExtensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, fmt.Errorf("eviction.alternate_extensions: %q must start with a dot", ext))
		}
	}
	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Equal reports whether two configurations hold the same values.
func (c *Config) Equal(other *Config) bool {
	return c.Interop == other.Interop &&
		slices.Equal(c.Eviction.AlternateExtensions, other.Eviction.AlternateExtensions) &&
		c.Propagation == other.Propagation &&
		c.Log == other.Log &&
		c.UI == other.UI
}
