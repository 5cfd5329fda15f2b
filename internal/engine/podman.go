// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Podman implements Engine using the podman CLI.
type Podman struct {
	*BaseCLI
}

// NewPodman creates a Podman engine.
func NewPodman(opts ...BaseCLIOption) *Podman {
	path, _ := exec.LookPath("podman")
	return &Podman{BaseCLI: NewBaseCLI(string(TypePodman), path, opts...)}
}

// Available checks if podman answers.
func (e *Podman) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	return e.CreateCommand(context.Background(), "version", "--format", "{{.Version}}").Run() == nil
}

// Version returns the podman version.
func (e *Podman) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get podman version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ImageExists checks if an image is present locally.
func (e *Podman) ImageExists(ctx context.Context, image string) (bool, error) {
	err := e.RunCommandStatus(ctx, "image", "exists", image)
	return err == nil, nil
}
