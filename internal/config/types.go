// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// EnginePodman uses Podman as the container engine.
	EnginePodman Engine = "podman"
	// EngineDocker uses Docker as the container engine.
	EngineDocker Engine = "docker"
	// EngineAuto lets bakery pick whichever engine is available.
	EngineAuto Engine = "auto"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidEngine is returned when an Engine value is not recognized.
	ErrInvalidEngine = errors.New("invalid container engine")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidCacheDirPath is returned when a CacheDirPath value is whitespace-only.
	ErrInvalidCacheDirPath = errors.New("invalid cache dir path")
	// ErrInvalidPullAttempts is returned when PullAttempts is not positive.
	ErrInvalidPullAttempts = errors.New("invalid pull attempts")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Engine specifies which container engine to use.
	Engine string

	// InvalidEngineError is returned when an Engine value is not recognized.
	// It wraps ErrInvalidEngine for errors.Is() compatibility.
	InvalidEngineError struct {
		Value Engine
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// CacheDirPath represents a filesystem path to a cache directory.
	// The zero value ("") is valid and means "use default cache directory".
	// Non-zero values must not be whitespace-only.
	CacheDirPath string

	// InvalidCacheDirPathError is returned when a CacheDirPath value is
	// non-empty but whitespace-only.
	InvalidCacheDirPathError struct {
		Value CacheDirPath
	}

	// InvalidPullAttemptsError is returned when PullAttempts is zero or
	// negative.
	InvalidPullAttemptsError struct {
		Value int
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Engine specifies "podman", "docker", or "auto".
		Engine Engine `json:"engine" mapstructure:"engine"`
		// CacheDir overrides where staging contexts and the image index live.
		CacheDir CacheDirPath `json:"cache_dir" mapstructure:"cache_dir"`
		// PullAttempts bounds retries for transient base pull failures.
		PullAttempts int `json:"pull_attempts" mapstructure:"pull_attempts"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme.
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output.
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// String returns the string representation of the Engine.
func (e Engine) String() string { return string(e) }

// IsValid returns whether the Engine is one of the defined engine types,
// and a list of validation errors if it is not.
func (e Engine) IsValid() (bool, []error) {
	switch e {
	case EnginePodman, EngineDocker, EngineAuto:
		return true, nil
	default:
		return false, []error{&InvalidEngineError{Value: e}}
	}
}

// Error implements the error interface for InvalidEngineError.
func (e *InvalidEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker, auto)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidEngineError) Unwrap() error { return ErrInvalidEngine }

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color
// schemes, and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// String returns the string representation of the CacheDirPath.
func (p CacheDirPath) String() string { return string(p) }

// IsValid returns whether the CacheDirPath is valid.
// The zero value ("") is valid (means "use default cache directory").
// Non-zero values must not be whitespace-only.
func (p CacheDirPath) IsValid() (bool, []error) {
	if p == "" {
		return true, nil
	}
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidCacheDirPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCacheDirPathError.
func (e *InvalidCacheDirPathError) Error() string {
	return fmt.Sprintf("invalid cache dir path %q: non-empty value must not be whitespace-only", e.Value)
}

// Unwrap returns ErrInvalidCacheDirPath for errors.Is() compatibility.
func (e *InvalidCacheDirPathError) Unwrap() error { return ErrInvalidCacheDirPath }

// Error implements the error interface for InvalidPullAttemptsError.
func (e *InvalidPullAttemptsError) Error() string {
	return fmt.Sprintf("invalid pull attempts %d: must be at least 1", e.Value)
}

// Unwrap returns ErrInvalidPullAttempts for errors.Is() compatibility.
func (e *InvalidPullAttemptsError) Unwrap() error { return ErrInvalidPullAttempts }

// IsValid returns whether the Config has valid fields.
// It delegates to Engine.IsValid(), CacheDir.IsValid(), and
// UI.ColorScheme.IsValid(); PullAttempts must be positive.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Engine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.CacheDir.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.PullAttempts < 1 {
		errs = append(errs, &InvalidPullAttemptsError{Value: c.PullAttempts})
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine:       EngineAuto,
		CacheDir:     "", // Will use the user cache dir if empty
		PullAttempts: 3,
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
