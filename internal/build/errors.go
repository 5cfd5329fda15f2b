// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"strings"
)

// The build has exactly three external failure kinds, plus PathError for
// local working-directory problems. All are fatal: no step is retried at
// this layer and no usable image is left behind.
var (
	// ErrEnvironmentNotFound is the sentinel wrapped by
	// EnvironmentNotFoundError.
	ErrEnvironmentNotFound = errors.New("base environment not found")

	// ErrPath is the sentinel wrapped by PathError.
	ErrPath = errors.New("path cannot be created")

	// ErrStaging is the sentinel wrapped by StagingError.
	ErrStaging = errors.New("source tree staging failed")

	// ErrInstallFailure is the sentinel wrapped by InstallFailureError.
	ErrInstallFailure = errors.New("install procedure failed")
)

type (
	// EnvironmentNotFoundError reports that the pinned base reference
	// could not be resolved against the upstream registry.
	EnvironmentNotFoundError struct {
		// Ref is the unresolved reference.
		Ref string
		// Output is the engine's diagnostic output.
		Output string
		// Cause is the underlying engine error.
		Cause error
	}

	// PathError reports that the staging working directory could not be
	// created.
	PathError struct {
		Path  string
		Cause error
	}

	// StagingError reports that the build context could not be fully
	// copied into the working directory.
	StagingError struct {
		// Path is the unreadable or uncopyable path.
		Path  string
		Cause error
	}

	// InstallFailureError reports that the delegated install procedure
	// exited non-zero. Output carries the procedure's own diagnostic
	// output verbatim; it is never reinterpreted or trimmed down.
	InstallFailureError struct {
		Output string
		Cause  error
	}
)

// Error implements the error interface.
func (e *EnvironmentNotFoundError) Error() string {
	return fmt.Sprintf("base environment %q could not be resolved: %v", e.Ref, e.Cause)
}

// Unwrap returns ErrEnvironmentNotFound for errors.Is checks.
func (e *EnvironmentNotFoundError) Unwrap() error { return ErrEnvironmentNotFound }

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("working directory %q cannot be created: %v", e.Path, e.Cause)
}

// Unwrap returns ErrPath for errors.Is checks.
func (e *PathError) Unwrap() error { return ErrPath }

// Error implements the error interface.
func (e *StagingError) Error() string {
	return fmt.Sprintf("staging %q failed: %v", e.Path, e.Cause)
}

// Unwrap returns ErrStaging for errors.Is checks.
func (e *StagingError) Unwrap() error { return ErrStaging }

// Error implements the error interface. The install procedure's own
// output is appended untouched so the user sees the same diagnostics
// the procedure printed.
func (e *InstallFailureError) Error() string {
	msg := fmt.Sprintf("install procedure failed: %v", e.Cause)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

// Unwrap returns ErrInstallFailure for errors.Is checks.
func (e *InstallFailureError) Unwrap() error { return ErrInstallFailure }
