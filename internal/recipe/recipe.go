// SPDX-License-Identifier: MPL-2.0

// Package recipe defines the bakefile format: the declarative build
// recipe that names a pinned base environment, a working directory, a
// staging policy, an install procedure, and a default entry command.
package recipe

import (
	"errors"
	"fmt"
	"strings"

	"bakery-cli/internal/script"
)

// DefaultFileName is the recipe file bakery looks for in a context
// directory when --file is not given.
const DefaultFileName = "bakefile.cue"

var (
	// ErrInvalidRecipe is the sentinel error wrapped by every recipe
	// validation failure, for errors.Is checks.
	ErrInvalidRecipe = errors.New("invalid recipe")
)

type (
	// Recipe is a parsed and validated bakefile.
	Recipe struct {
		// Base is the pinned base environment reference.
		Base string `json:"base"`

		// Workdir is the absolute path inside the image that staging
		// and the install procedure operate in.
		Workdir string `json:"workdir"`

		// Stage is the staging policy for the build context.
		Stage StagePolicy `json:"stage"`

		// Install holds the install procedure's shell commands, run in
		// order inside Workdir.
		Install []string `json:"install"`

		// Entry is the default command the produced image runs when
		// started without an override.
		Entry []string `json:"entry"`

		// Env and Labels are optional image metadata.
		Env    map[string]string `json:"env,omitempty"`
		Labels map[string]string `json:"labels,omitempty"`

		// FilePath is where the recipe was loaded from (not part of the
		// recipe itself).
		FilePath string `json:"-"`
	}

	// StagePolicy controls which context files become part of the image.
	// Exclude patterns use gitignore syntax; version-control metadata is
	// always excluded.
	StagePolicy struct {
		Exclude []string `json:"exclude"`
	}

	// ValidationError reports a single invalid recipe field.
	ValidationError struct {
		Field  string
		Reason string
	}
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("recipe field %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidRecipe so callers can use errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidRecipe }

// validate enforces the rules the CUE schema cannot express.
func (r *Recipe) validate() error {
	ref, err := ParseReference(r.Base)
	if err != nil {
		return &ValidationError{Field: "base", Reason: err.Error()}
	}
	if !ref.Pinned() {
		return &ValidationError{
			Field:  "base",
			Reason: fmt.Sprintf("reference %q is not pinned: name a specific tag or digest, not %q", r.Base, ref.Tag),
		}
	}

	if !strings.HasPrefix(r.Workdir, "/") {
		return &ValidationError{Field: "workdir", Reason: fmt.Sprintf("%q must be an absolute path", r.Workdir)}
	}

	if len(r.Install) == 0 {
		return &ValidationError{Field: "install", Reason: "at least one install command is required"}
	}
	for i, cmd := range r.Install {
		if strings.TrimSpace(cmd) == "" {
			return &ValidationError{Field: fmt.Sprintf("install[%d]", i), Reason: "command is empty"}
		}
		if err := script.Check(cmd); err != nil {
			return &ValidationError{Field: fmt.Sprintf("install[%d]", i), Reason: err.Error()}
		}
	}

	if len(r.Entry) == 0 {
		return &ValidationError{Field: "entry", Reason: "entry command must not be empty"}
	}
	for _, pattern := range r.Stage.Exclude {
		if strings.TrimSpace(pattern) == "" {
			return &ValidationError{Field: "stage.exclude", Reason: "patterns must not be blank"}
		}
	}

	return nil
}

// Reference returns the parsed base reference. The recipe is validated
// at parse time, so this cannot fail on a Recipe obtained from Parse.
func (r *Recipe) Reference() Reference {
	ref, _ := ParseReference(r.Base)
	return ref
}
