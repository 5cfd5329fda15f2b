// SPDX-License-Identifier: MPL-2.0

//go:build windows

package term

import (
	"errors"
	"os"
	"os/exec"
)

// RunInteractive runs cmd with the standard streams passed through.
// Windows has no pty support here; the engine's own -t handling covers
// console behavior well enough.
func RunInteractive(cmd *exec.Cmd) (int, error) {
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}
