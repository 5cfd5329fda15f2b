// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&EnvironmentNotFoundError{Ref: "python:9.99", Cause: errors.New("pull failed")}, ErrEnvironmentNotFound},
		{&PathError{Path: "/nope", Cause: errors.New("permission denied")}, ErrPath},
		{&StagingError{Path: "src/app.py", Cause: errors.New("read error")}, ErrStaging},
		{&InstallFailureError{Output: "boom", Cause: errors.New("exit status 1")}, ErrInstallFailure},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.sentinel) {
			t.Errorf("errors.Is(%T, %v) = false, want true", tc.err, tc.sentinel)
		}
	}
}

func TestErrorSentinelsAreDistinct(t *testing.T) {
	err := &EnvironmentNotFoundError{Ref: "x", Cause: errors.New("y")}
	for _, other := range []error{ErrPath, ErrStaging, ErrInstallFailure} {
		if errors.Is(err, other) {
			t.Errorf("EnvironmentNotFoundError must not match %v", other)
		}
	}
}

func TestErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("build failed: %w", &InstallFailureError{Cause: errors.New("exit status 2")})
	if !errors.Is(wrapped, ErrInstallFailure) {
		t.Error("wrapped InstallFailureError must still match ErrInstallFailure")
	}

	var installErr *InstallFailureError
	if !errors.As(wrapped, &installErr) {
		t.Fatal("errors.As must recover the typed error through wrapping")
	}
}

func TestInstallFailureCarriesOutputVerbatim(t *testing.T) {
	output := "ERROR: Could not find a version that satisfies the requirement nosuchpkg\nERROR: No matching distribution found for nosuchpkg"
	err := &InstallFailureError{Output: output, Cause: errors.New("exit status 1")}

	if !strings.Contains(err.Error(), output) {
		t.Errorf("install failure message must carry the procedure output untouched, got:\n%s", err.Error())
	}
}

func TestInstallFailureWithoutOutput(t *testing.T) {
	err := &InstallFailureError{Cause: errors.New("exit status 137")}
	if strings.HasSuffix(err.Error(), "\n") {
		t.Error("message must not end with a dangling newline when there is no output")
	}
}

func TestEnvironmentNotFoundNamesTheRef(t *testing.T) {
	err := &EnvironmentNotFoundError{Ref: "docker.io/library/python:9.99-slim", Cause: errors.New("manifest unknown")}
	if !strings.Contains(err.Error(), "docker.io/library/python:9.99-slim") {
		t.Errorf("message must name the unresolved reference, got: %s", err.Error())
	}
}
