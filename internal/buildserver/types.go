// SPDX-License-Identifier: MPL-2.0

package buildserver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidHostAddress is the sentinel error wrapped by InvalidHostAddressError.
	ErrInvalidHostAddress = errors.New("invalid host address")
	// ErrInvalidListenPort is the sentinel error wrapped by InvalidListenPortError.
	ErrInvalidListenPort = errors.New("invalid listen port")
	// ErrInvalidTokenValue is the sentinel error wrapped by InvalidTokenValueError.
	ErrInvalidTokenValue = errors.New("invalid token value")
	// ErrInvalidServerConfig is the sentinel error wrapped by InvalidServerConfigError.
	ErrInvalidServerConfig = errors.New("invalid build server config")
)

type (
	// HostAddress represents a network host address (IP or hostname) for
	// server binding. A valid address must be non-empty and not
	// whitespace-only.
	HostAddress string

	// ListenPort represents a TCP port to listen on. Zero means
	// auto-select.
	ListenPort int

	// TokenValue represents an authentication token value. A valid token
	// must be non-empty and not whitespace-only.
	TokenValue string

	// InvalidHostAddressError is returned when a HostAddress value is
	// empty or whitespace-only.
	InvalidHostAddressError struct {
		Value HostAddress
	}

	// InvalidListenPortError is returned when a ListenPort is out of the
	// valid TCP range.
	InvalidListenPortError struct {
		Value ListenPort
	}

	// InvalidTokenValueError is returned when a TokenValue value is
	// empty or whitespace-only.
	InvalidTokenValueError struct {
		Value TokenValue
	}

	// InvalidServerConfigError is returned when a Config has invalid
	// fields. It wraps ErrInvalidServerConfig for errors.Is()
	// compatibility and collects field-level validation errors.
	InvalidServerConfigError struct {
		FieldErrors []error
	}
)

// String returns the string representation of the HostAddress.
func (h HostAddress) String() string { return string(h) }

// IsValid returns whether the HostAddress is non-empty and not
// whitespace-only, and a list of validation errors if it is not.
func (h HostAddress) IsValid() (bool, []error) {
	if strings.TrimSpace(string(h)) == "" {
		return false, []error{&InvalidHostAddressError{Value: h}}
	}
	return true, nil
}

// Error implements the error interface for InvalidHostAddressError.
func (e *InvalidHostAddressError) Error() string {
	return fmt.Sprintf("invalid host address %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidHostAddress for errors.Is() compatibility.
func (e *InvalidHostAddressError) Unwrap() error { return ErrInvalidHostAddress }

// IsValid returns whether the ListenPort is in [0, 65535], and a list
// of validation errors if it is not. Zero means auto-select.
func (p ListenPort) IsValid() (bool, []error) {
	if p < 0 || p > 65535 {
		return false, []error{&InvalidListenPortError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidListenPortError.
func (e *InvalidListenPortError) Error() string {
	return fmt.Sprintf("invalid listen port %d: must be between 0 and 65535", e.Value)
}

// Unwrap returns ErrInvalidListenPort for errors.Is() compatibility.
func (e *InvalidListenPortError) Unwrap() error { return ErrInvalidListenPort }

// String returns the string representation of the TokenValue.
func (t TokenValue) String() string { return string(t) }

// IsValid returns whether the TokenValue is non-empty and not
// whitespace-only, and a list of validation errors if it is not.
func (t TokenValue) IsValid() (bool, []error) {
	if strings.TrimSpace(string(t)) == "" {
		return false, []error{&InvalidTokenValueError{Value: t}}
	}
	return true, nil
}

// Error implements the error interface for InvalidTokenValueError.
func (e *InvalidTokenValueError) Error() string {
	return fmt.Sprintf("invalid token value %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidTokenValue for errors.Is() compatibility.
func (e *InvalidTokenValueError) Unwrap() error { return ErrInvalidTokenValue }

// Error implements the error interface for InvalidServerConfigError.
func (e *InvalidServerConfigError) Error() string {
	return fmt.Sprintf("invalid build server config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidServerConfig for errors.Is() compatibility.
func (e *InvalidServerConfigError) Unwrap() error { return ErrInvalidServerConfig }
