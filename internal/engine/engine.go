// SPDX-License-Identifier: MPL-2.0

// Package engine abstracts the container engines (Docker/Podman) that
// bakery drives to resolve base images, build, and run.
package engine

import (
	"context"
	"fmt"
	"io"
)

// Engine is the interface bakery's build lifecycle runs against.
type Engine interface {
	// Name returns the engine name (docker or podman).
	Name() string
	// Available checks if the engine is usable on this system.
	Available() bool
	// Version returns the engine server version.
	Version(ctx context.Context) (string, error)

	// Pull fetches an image reference from its upstream registry.
	Pull(ctx context.Context, opts PullOptions) error
	// Build builds an image from a Containerfile.
	Build(ctx context.Context, opts BuildOptions) error
	// Run starts a container from an image.
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	// ImageExists checks if an image is present locally.
	ImageExists(ctx context.Context, image string) (bool, error)
	// InspectImage returns the engine's JSON description of an image.
	InspectImage(ctx context.Context, image string) (string, error)
	// RemoveImage removes a local image.
	RemoveImage(ctx context.Context, image string, force bool) error
}

// PullOptions configures an image pull.
type PullOptions struct {
	// Image is the reference to fetch.
	Image string
	// Stdout and Stderr receive the engine's progress output.
	Stdout io.Writer
	Stderr io.Writer
}

// BuildOptions configures an image build.
type BuildOptions struct {
	// ContextDir is the build context directory.
	ContextDir string
	// Containerfile is the path to the build file, relative to ContextDir.
	Containerfile string
	// Tag is the image tag to apply.
	Tag string
	// NoCache disables the engine's layer cache.
	NoCache bool
	// Stdout and Stderr receive the engine's build output.
	Stdout io.Writer
	Stderr io.Writer
}

// RunOptions configures a container run.
type RunOptions struct {
	// Image is the image to start.
	Image string
	// Command overrides the image's default entry command when non-empty.
	Command []string
	// WorkDir is the working directory inside the container.
	WorkDir string
	// Env holds extra environment variables.
	Env map[string]string
	// Remove removes the container after it exits.
	Remove bool
	// Interactive keeps stdin open (-i); TTY allocates a pseudo-TTY (-t).
	Interactive bool
	TTY         bool
	// Stdin, Stdout, Stderr wire the container's standard streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// RunResult reports how a container run ended. A non-zero container exit
// code lands in ExitCode; Err is reserved for infrastructure failures.
type RunResult struct {
	ExitCode int
	Err      error
}

// Type identifies a container engine implementation.
type Type string

const (
	TypeDocker Type = "docker"
	TypePodman Type = "podman"
)

// NotAvailableError is returned when no requested engine can be used.
type NotAvailableError struct {
	Engine string
	Reason string
}

func (e *NotAvailableError) Error() string {
	return fmt.Sprintf("container engine %q is not available: %s", e.Engine, e.Reason)
}

// New creates an engine of the preferred type, falling back to the other
// CLI engine when the preferred one is not available.
func New(preferred Type) (Engine, error) {
	switch preferred {
	case TypePodman:
		if e := NewPodman(); e.Available() {
			return e, nil
		}
		if e := NewDocker(); e.Available() {
			return e, nil
		}
		return nil, &NotAvailableError{
			Engine: string(TypePodman),
			Reason: "podman is not installed or not accessible, and the docker fallback is also not available",
		}
	case TypeDocker:
		if e := NewDocker(); e.Available() {
			return e, nil
		}
		if e := NewPodman(); e.Available() {
			return e, nil
		}
		return nil, &NotAvailableError{
			Engine: string(TypeDocker),
			Reason: "docker is not installed or not accessible, and the podman fallback is also not available",
		}
	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferred)
	}
}

// AutoDetect finds any available engine, preferring docker.
func AutoDetect() (Engine, error) {
	if e := NewDocker(); e.Available() {
		return e, nil
	}
	if e := NewPodman(); e.Available() {
		return e, nil
	}
	return nil, &NotAvailableError{
		Engine: "any",
		Reason: "no container engine (docker or podman) is available on this system",
	}
}
