// SPDX-License-Identifier: MPL-2.0

package recipe

import (
	_ "embed"
	"fmt"
	"os"

	"bakery-cli/internal/cueutil"
)

//go:embed recipe_schema.cue
var recipeSchema []byte

// Parse reads and parses a bakefile from the given path.
func Parse(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bakefile at %s: %w", path, err)
	}
	return ParseBytes(data, path)
}

// ParseBytes parses bakefile content from bytes. The content is unified
// with the embedded #Recipe schema, decoded, and then validated for the
// rules the schema cannot express (pinned base, absolute workdir,
// install command syntax).
func ParseBytes(data []byte, path string) (*Recipe, error) {
	result, err := cueutil.Decode[Recipe](recipeSchema, data, "#Recipe", cueutil.WithFilename(path))
	if err != nil {
		return nil, err
	}

	r := result.Value
	r.FilePath = path

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return r, nil
}
