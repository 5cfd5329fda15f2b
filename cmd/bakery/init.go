// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"bakery-cli/internal/recipe"

	"github.com/spf13/cobra"
)

// bakefileTemplate is the scaffold for a Python source tree: pinned
// slim base, pip install of the tree itself, interactive interpreter as
// the entry command.
const bakefileTemplate = `// bakefile.cue - build recipe for this source tree.
//
// The base reference must be pinned (a concrete tag or digest);
// floating tags like "latest" are rejected.

base:    "docker.io/library/python:3.12-slim"
workdir: "/app"

stage: {
	// gitignore-style patterns; version-control metadata is always excluded.
	exclude: [
		".venv/",
		"__pycache__/",
		"*.pyc",
		"dist/",
		"*.egg-info/",
	]
}

install: [
	"pip install --no-cache-dir .",
]

entry: ["python3"]
`

// newInitCommand creates the `bakery init` command.
func newInitCommand(app *App) *cobra.Command {
	var force bool

	initCmd := &cobra.Command{
		Use:   "init [context]",
		Short: "Scaffold a bakefile for a Python source tree",
		Long: `Create a bakefile.cue in the context directory (default: current
directory), shaped for a pip-installable Python source tree. Adjust the
base pin, install procedure, and entry command to fit the project.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contextDir, err := resolveContextDir(args)
			if err != nil {
				return err
			}

			path := filepath.Join(contextDir, recipe.DefaultFileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := os.WriteFile(path, []byte(bakefileTemplate), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			fmt.Fprintf(app.Stdout, "%s Created %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			fmt.Fprintln(app.Stdout, SubtitleStyle.Render("Edit the base pin and install procedure, then run 'bakery build'."))
			return nil
		},
	}

	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing bakefile")

	return initCmd
}
