// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"bakery-cli/internal/build"
	"bakery-cli/internal/config"
	"bakery-cli/internal/engine"
	"bakery-cli/internal/issue"
	"bakery-cli/internal/recipe"

	"github.com/spf13/cobra"
)

// newBuildCommand creates the `bakery build` command.
func newBuildCommand(app *App) *cobra.Command {
	var (
		tag      string
		noCache  bool
		filePath string
	)

	buildCmd := &cobra.Command{
		Use:   "build [context]",
		Short: "Build an image from a source tree and its bakefile",
		Long: `Build a container image from a source tree.

The context directory (default: current directory) must contain a
bakefile.cue unless --file points elsewhere. The build pins the base
environment, stages the source tree, runs the install procedure, and
sets the entry command. The produced tag is derived from the context
contents, so an unchanged context reuses the previously built image.`,
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

			res, err := app.runBuild(ctx, eng, cfg, rec, contextDir, tag, noCache)
			if err != nil {
				app.renderBuildFailure(err, cfg)
				return &ExitError{Code: 1, Err: err}
			}

			if res.Cached {
				fmt.Fprintf(app.Stdout, "%s Reusing cached image %s\n",
					SuccessStyle.Render("✓"), CmdStyle.Render(res.Tag))
			} else {
				fmt.Fprintf(app.Stdout, "%s Built %s\n",
					SuccessStyle.Render("✓"), CmdStyle.Render(res.Tag))
			}
			return nil
		},
	}

	buildCmd.Flags().StringVarP(&tag, "tag", "t", "", "override the computed image tag")
	buildCmd.Flags().BoolVar(&noCache, "no-cache", false, "rebuild even when a cached image exists")
	buildCmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the bakefile (default: <context>/bakefile.cue)")

	return buildCmd
}

// runBuild assembles a builder from configuration and executes the
// lifecycle. The step hook narrates progress in verbose mode.
func (app *App) runBuild(ctx context.Context, eng engine.Engine, cfg *config.Config, rec *recipe.Recipe, contextDir, tag string, noCache bool) (*build.Result, error) {
	opts := []build.Option{
		build.WithLogger(app.Logger),
		build.WithNoCache(noCache),
	}
	if cfg.PullAttempts > 0 {
		opts = append(opts, build.WithPullAttempts(cfg.PullAttempts))
	}
	if cfg.CacheDir != "" {
		opts = append(opts, build.WithCacheDir(string(cfg.CacheDir)))
	}
	if verbose {
		opts = append(opts, build.WithOutput(app.Stdout))
		opts = append(opts, build.WithStepHook(func(s build.State) {
			fmt.Fprintf(app.Stderr, "%s %s\n", SubtitleStyle.Render("step:"), s)
		}))
	} else {
		opts = append(opts, build.WithOutput(io.Discard))
	}

	return build.New(eng, opts...).Build(ctx, rec, contextDir, tag)
}

// renderBuildFailure maps a build error to its issue card and prints both.
func (app *App) renderBuildFailure(err error, cfg *config.Config) {
	var id issue.Id
	switch {
	case errors.Is(err, build.ErrEnvironmentNotFound):
		id = issue.BaseNotResolvableId
	case errors.Is(err, build.ErrStaging), errors.Is(err, build.ErrPath):
		id = issue.StagingFailedId
	case errors.Is(err, build.ErrInstallFailure):
		id = issue.InstallFailedId
	}

	if id != 0 {
		if rendered, renderErr := issue.Get(id).Render(colorScheme(cfg)); renderErr == nil {
			fmt.Fprint(app.Stderr, rendered)
		}
	}
	fmt.Fprintln(app.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
}
