// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Docker implements Engine using the docker CLI.
type Docker struct {
	*BaseCLI
}

// NewDocker creates a Docker engine.
func NewDocker(opts ...BaseCLIOption) *Docker {
	path, _ := exec.LookPath("docker")
	return &Docker{BaseCLI: NewBaseCLI(string(TypeDocker), path, opts...)}
}

// Available checks if the docker daemon answers.
func (e *Docker) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	return e.CreateCommand(context.Background(), "version", "--format", "{{.Server.Version}}").Run() == nil
}

// Version returns the docker server version.
func (e *Docker) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Server.Version}}")
	if err != nil {
		return "", fmt.Errorf("failed to get docker version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// ImageExists checks if an image is present locally.
func (e *Docker) ImageExists(ctx context.Context, image string) (bool, error) {
	err := e.RunCommandStatus(ctx, "image", "inspect", image)
	return err == nil, nil
}
