// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"bakery-cli/internal/engine"

	"github.com/spf13/cobra"
)

// newVerifyCommand creates the `bakery verify` command.
func newVerifyCommand(app *App) *cobra.Command {
	var (
		probe    string
		filePath string
	)

	verifyCmd := &cobra.Command{
		Use:   "verify [context]",
		Short: "Build, then check that the install procedure took effect",
		Long: `Build the image for a context directory, then run a probe command
inside it to confirm the install procedure registered the package.

The default probe imports a Python module named after the context
directory ('my-pkg' probes 'import my_pkg'). Use --probe for anything
else.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

			contextDir, err := resolveContextDir(args)
			if err != nil {
				return err
			}

			rec, err := app.loadRecipe(contextDir, filePath)
			if err != nil {
				fmt.Fprintln(app.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
				return &ExitError{Code: 1, Err: err}
			}

			eng, err := app.resolveEngine(engineFlag, cfg)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			res, err := app.runBuild(ctx, eng, cfg, rec, contextDir, "", false)
			if err != nil {
				app.renderBuildFailure(err, cfg)
				return &ExitError{Code: 1, Err: err}
			}

			probeCmd := probe
			if probeCmd == "" {
				probeCmd = defaultProbe(contextDir)
			}

			runRes, err := eng.Run(ctx, engine.RunOptions{
				Image:   res.Tag,
				Command: []string{"/bin/sh", "-c", probeCmd},
				WorkDir: rec.Workdir,
				Remove:  true,
				Stdout:  io.Discard,
				Stderr:  app.Stderr,
			})
			if err != nil {
				fmt.Fprintln(app.Stderr, ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: 1, Err: err}
			}

			if runRes.ExitCode != 0 {
				fmt.Fprintf(app.Stderr, "%s Probe %s failed in %s (exit %d)\n",
					ErrorStyle.Render("✗"), CmdStyle.Render(probeCmd), CmdStyle.Render(res.Tag), runRes.ExitCode)
				return &ExitError{Code: runRes.ExitCode}
			}

			fmt.Fprintf(app.Stdout, "%s Install verified: %s succeeded in %s\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(probeCmd), CmdStyle.Render(res.Tag))
			return nil
		},
	}

	verifyCmd.Flags().StringVar(&probe, "probe", "", "probe command to run inside the image (default: import the context's Python module)")
	verifyCmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the bakefile (default: <context>/bakefile.cue)")

	return verifyCmd
}

var nonIdentifier = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// defaultProbe derives a Python import probe from the context directory
// name: dashes become underscores, everything else non-identifier drops.
func defaultProbe(contextDir string) string {
	name := filepath.Base(contextDir)
	name = strings.ReplaceAll(name, "-", "_")
	name = nonIdentifier.ReplaceAllString(name, "")
	if name == "" {
		name = "app"
	}
	return fmt.Sprintf("python3 -c 'import %s'", name)
}
