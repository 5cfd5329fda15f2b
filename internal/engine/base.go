// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ExecCommandFunc is the function signature for creating exec.Cmd.
// Tests inject a recorder here instead of spawning real engines.
type ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// BaseCLI provides the shared implementation for CLI-driven engines.
// Docker and Podman embed it; everything that is identical across both
// (argument building, command execution, Pull/Build/Run/RemoveImage)
// lives here, while Available/Version/ImageExists stay on the concrete
// types.
type BaseCLI struct {
	name        string
	binaryPath  string
	execCommand ExecCommandFunc
}

// BaseCLIOption configures a BaseCLI.
type BaseCLIOption func(*BaseCLI)

// WithExecCommand sets a custom exec function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIOption {
	return func(e *BaseCLI) { e.execCommand = fn }
}

// NewBaseCLI creates a base engine around the given binary path.
func NewBaseCLI(name, binaryPath string, opts ...BaseCLIOption) *BaseCLI {
	e := &BaseCLI{
		name:        name,
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name used in error messages.
func (e *BaseCLI) Name() string { return e.name }

// BinaryPath returns the path to the engine binary.
func (e *BaseCLI) BinaryPath() string { return e.binaryPath }

// --- Argument builders ---

// PullArgs constructs arguments for an image pull.
//
// Generated command: <binary> pull <image>
func (e *BaseCLI) PullArgs(opts PullOptions) []string {
	return []string{"pull", opts.Image}
}

// BuildArgs constructs arguments for an image build.
//
// Generated command: <binary> build [options] <context>
func (e *BaseCLI) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}

	if opts.Containerfile != "" {
		path := opts.Containerfile
		if !filepath.IsAbs(path) && opts.ContextDir != "" {
			path = filepath.Join(opts.ContextDir, path)
		}
		args = append(args, "-f", path)
	}

	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}

	if opts.NoCache {
		args = append(args, "--no-cache")
	}

	args = append(args, opts.ContextDir)

	return args
}

// RunArgs constructs arguments for a container run.
//
// Generated command: <binary> run [options] <image> [command...]
func (e *BaseCLI) RunArgs(opts RunOptions) []string {
	args := []string{"run"}

	if opts.Remove {
		args = append(args, "--rm")
	}

	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}

	if opts.Interactive {
		args = append(args, "-i")
	}

	if opts.TTY {
		args = append(args, "-t")
	}

	// Sorted for deterministic argument order.
	keys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", fmt.Sprintf("%s=%s", k, opts.Env[k]))
	}

	args = append(args, opts.Image)
	args = append(args, opts.Command...)

	return args
}

// RemoveImageArgs constructs arguments for an image remove.
func (e *BaseCLI) RemoveImageArgs(image string, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, image)
	return args
}

// --- Command execution ---

// CreateCommand creates an exec.Cmd for the given arguments. Callers
// that need custom stdio wiring (PTY attach) use this directly.
func (e *BaseCLI) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLI) RunCommandStatus(ctx context.Context, args ...string) error {
	if err := e.CreateCommand(ctx, args...).Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured.
func (e *BaseCLI) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// --- Promoted Engine methods (shared by Docker and Podman) ---

// Pull fetches an image from its upstream registry.
func (e *BaseCLI) Pull(ctx context.Context, opts PullOptions) error {
	cmd := e.CreateCommand(ctx, e.PullArgs(opts)...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s pull %s failed: %w", e.name, opts.Image, err)
	}
	return nil
}

// Build builds an image from a Containerfile.
func (e *BaseCLI) Build(ctx context.Context, opts BuildOptions) error {
	cmd := e.CreateCommand(ctx, e.BuildArgs(opts)...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s build failed: %w", e.name, err)
	}
	return nil
}

// Run starts a container and waits for it. A non-zero container exit
// code is captured in RunResult.ExitCode, not returned as an error;
// only infrastructure failures set RunResult.Err.
func (e *BaseCLI) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	cmd := e.CreateCommand(ctx, e.RunArgs(opts)...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	err := cmd.Run()

	result := &RunResult{}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = 1
			result.Err = err
		}
	}

	return result, nil
}

// RemoveImage removes a local image.
func (e *BaseCLI) RemoveImage(ctx context.Context, image string, force bool) error {
	return e.RunCommandStatus(ctx, e.RemoveImageArgs(image, force)...)
}

// InspectImage returns the engine's JSON description of an image.
func (e *BaseCLI) InspectImage(ctx context.Context, image string) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "image", "inspect", image)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
