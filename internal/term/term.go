// SPDX-License-Identifier: MPL-2.0

// Package term attaches interactive commands to the caller's terminal.
// On Unix the child runs under a pseudo-terminal with window resize
// propagation; on Windows the standard streams are passed through.
package term

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
