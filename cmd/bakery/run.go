// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"bakery-cli/internal/engine"
	"bakery-cli/internal/term"

	"github.com/spf13/cobra"
)

// commandCreator is satisfied by the CLI-driven engines; it exposes the
// raw exec.Cmd needed for PTY attach.
type commandCreator interface {
	CreateCommand(ctx context.Context, args ...string) *exec.Cmd
	RunArgs(opts engine.RunOptions) []string
}

// newRunCommand creates the `bakery run` command.
func newRunCommand(app *App) *cobra.Command {
	var (
		contextDir string
		filePath   string
		noCache    bool
	)

	runCmd := &cobra.Command{
		Use:   "run [-- command...]",
		Short: "Start the baked image",
		Long: `Start a container from the image baked for the context directory.

Without arguments the image's entry command runs, attached to the
terminal. With arguments the given command runs instead; the installed
package is available on the runtime search path either way. The image
is built first if the context changed since the last build.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

			dir, err := resolveContextDir([]string{contextDir})
			if err != nil {
				return err
			}

			rec, err := app.loadRecipe(dir, filePath)
			if err != nil {
				fmt.Fprintln(app.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			eng, err := app.resolveEngine(engineFlag, cfg)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			res, err := app.runBuild(ctx, eng, cfg, rec, dir, "", noCache)
			if err != nil {
				app.renderBuildFailure(err, cfg)
				return &ExitError{Code: 1, Err: err}
			}

			exitCode, err := app.runContainer(ctx, eng, res.Tag, rec.Workdir, args)
			if err != nil {
				fmt.Fprintln(app.Stderr, ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: 1, Err: err}
			}
			if exitCode != 0 {
				return &ExitError{Code: exitCode}
			}
			return nil
		},
	}

	runCmd.Flags().StringVarP(&contextDir, "context", "C", ".", "context directory holding the bakefile")
	runCmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the bakefile (default: <context>/bakefile.cue)")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "rebuild even when a cached image exists")

	return runCmd
}

// runContainer starts a container from the image. No override command
// means the image's entry command runs, PTY-attached when the caller is
// at a terminal.
func (app *App) runContainer(ctx context.Context, eng engine.Engine, tag, workdir string, override []string) (int, error) {
	onTerminal := term.IsTerminal(os.Stdin) && term.IsTerminal(os.Stdout)

	opts := engine.RunOptions{
		Image:       tag,
		Command:     override,
		WorkDir:     workdir,
		Remove:      true,
		Interactive: true,
		TTY:         onTerminal,
	}

	// The interactive entry-command session gets a local PTY so shells
	// behave (line editing, signals, resize). Overrides and
	// non-terminal callers go through plain stream wiring.
	if len(override) == 0 && onTerminal {
		if creator, ok := eng.(commandCreator); ok {
			cmd := creator.CreateCommand(ctx, creator.RunArgs(opts)...)
			return term.RunInteractive(cmd)
		}
	}

	opts.Stdin = os.Stdin
	opts.Stdout = app.Stdout
	opts.Stderr = app.Stderr

	res, err := eng.Run(ctx, opts)
	if err != nil {
		return 1, err
	}
	if res.Err != nil {
		return res.ExitCode, res.Err
	}
	return res.ExitCode, nil
}
