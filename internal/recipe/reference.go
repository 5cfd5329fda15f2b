// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidReference is the sentinel error wrapped by reference parse
// failures.
var ErrInvalidReference = errors.New("invalid image reference")

// Reference is a parsed container image reference.
// Supported forms: name, name:tag, name@digest, name:tag@digest, with an
// optional registry host (which may carry a port) in the name.
type Reference struct {
	Name   string
	Tag    string
	Digest string
}

// Pinned reports whether the reference resolves to the same upstream
// artifact on every build: either a digest, or a tag that is not the
// floating "latest".
func (r Reference) Pinned() bool {
	if r.Digest != "" {
		return true
	}
	return r.Tag != "" && r.Tag != "latest"
}

// String reassembles the reference.
func (r Reference) String() string {
	s := r.Name
	if r.Tag != "" {
		s += ":" + r.Tag
	}
	if r.Digest != "" {
		s += "@" + r.Digest
	}
	return s
}

// ParseReference splits an image reference into name, tag, and digest.
// It does not enforce pinning; see Reference.Pinned.
func ParseReference(ref string) (Reference, error) {
	if strings.TrimSpace(ref) == "" {
		return Reference{}, fmt.Errorf("%w: reference is empty", ErrInvalidReference)
	}
	if strings.ContainsAny(ref, " \t\n") {
		return Reference{}, fmt.Errorf("%w: %q contains whitespace", ErrInvalidReference, ref)
	}

	rest := ref
	var digest string
	if at := strings.Index(rest, "@"); at >= 0 {
		digest = rest[at+1:]
		rest = rest[:at]
		if !strings.HasPrefix(digest, "sha256:") {
			return Reference{}, fmt.Errorf("%w: digest %q must use the sha256: prefix", ErrInvalidReference, digest)
		}
	}

	// A colon after the last slash separates the tag; a colon before it
	// belongs to a registry host port (localhost:5000/img).
	name, tag := rest, ""
	if colon := strings.LastIndex(rest, ":"); colon > strings.LastIndex(rest, "/") {
		name, tag = rest[:colon], rest[colon+1:]
		if tag == "" {
			return Reference{}, fmt.Errorf("%w: %q has an empty tag", ErrInvalidReference, ref)
		}
	}
	if name == "" {
		return Reference{}, fmt.Errorf("%w: %q has an empty name", ErrInvalidReference, ref)
	}

	return Reference{Name: name, Tag: tag, Digest: digest}, nil
}
