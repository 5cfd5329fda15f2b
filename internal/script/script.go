// SPDX-License-Identifier: MPL-2.0

// Package script validates install procedure commands before they are
// baked into a build. A command that does not parse as POSIX shell would
// only fail deep inside the engine build with a confusing diagnostic;
// checking here surfaces the problem before any build work starts.
package script

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrBadSyntax is the sentinel error wrapped by Check failures.
var ErrBadSyntax = errors.New("install command has invalid shell syntax")

// Check parses cmd as a POSIX shell program and reports syntax errors.
// It does not execute anything and makes no claim about whether the
// command will succeed, only that the shell will accept it.
func Check(cmd string) error {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	if _, err := parser.Parse(strings.NewReader(cmd), ""); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSyntax, err)
	}
	return nil
}
