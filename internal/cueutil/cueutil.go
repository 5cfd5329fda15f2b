// SPDX-License-Identifier: MPL-2.0

// Package cueutil wraps the CUE evaluation flow shared by the recipe and
// config loaders: compile an embedded schema, compile user input, unify,
// validate, and decode into a Go value.
package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// MaxFileSize caps the size of any CUE file we are willing to evaluate.
// Oversized input is rejected before compilation.
const MaxFileSize int64 = 5 * 1024 * 1024

type (
	// Decoded carries the result of a successful Decode call.
	Decoded[T any] struct {
		// Value is the decoded Go struct.
		Value *T

		// Unified is the unified CUE value, kept for callers that need
		// to pull extra metadata out of the evaluation.
		Unified cue.Value
	}

	decodeOptions struct {
		filename string
		concrete bool
	}

	// Option adjusts Decode behavior.
	Option func(*decodeOptions)
)

// WithFilename sets the filename reported in CUE error positions.
func WithFilename(name string) Option {
	return func(o *decodeOptions) { o.filename = name }
}

// WithConcrete controls whether every field must be concrete after
// unification. Defaults to true; config files with optional fields set
// it to false.
func WithConcrete(concrete bool) Option {
	return func(o *decodeOptions) { o.concrete = concrete }
}

// Decode validates data against the definition at schemaPath inside
// schema and decodes the unified value into T.
//
// The flow is always the same three steps: compile the schema, compile
// the user data, unify and validate before decoding. Schema compile
// errors are internal bugs (the schema ships embedded in the binary);
// everything else is reported against the user's file.
func Decode[T any](schema, data []byte, schemaPath string, opts ...Option) (*Decoded[T], error) {
	options := decodeOptions{concrete: true}
	for _, opt := range opts {
		opt(&options)
	}

	filename := options.filename
	if filename == "" {
		filename = "<input>"
	}

	if err := CheckFileSize(data, MaxFileSize, filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)

	if err := unified.Validate(cue.Concrete(options.concrete)); err != nil {
		return nil, FormatError(err, filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, filename)
	}

	return &Decoded[T]{Value: &result, Unified: unified}, nil
}

// CheckFileSize rejects data larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
