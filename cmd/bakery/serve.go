// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"bakery-cli/internal/build"
	"bakery-cli/internal/buildserver"
	"bakery-cli/internal/config"
	"bakery-cli/internal/engine"
	"bakery-cli/internal/issue"

	"github.com/spf13/cobra"
)

// newServeCommand creates the `bakery serve` command.
func newServeCommand(app *App) *cobra.Command {
	var (
		host string
		port int
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose an SSH endpoint for remote build triggers",
		Long: `Start an SSH server through which an external orchestrator triggers
builds and streams their output.

Clients authenticate with the token printed at startup and request a
build with:

  ssh -p <port> <host> build [--no-cache] <context-dir> [tag]

One build runs at a time; a second trigger while a build is in flight
is rejected. Retrying failed builds is the orchestrator's job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := app.loadConfig(ctx)
			if err != nil {
				return err
			}

			eng, err := app.resolveEngine(engineFlag, cfg)
			if err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			serverCfg := buildserver.DefaultConfig()
			if host != "" {
				serverCfg.Host = buildserver.HostAddress(host)
			}
			serverCfg.Port = buildserver.ListenPort(port)

			srv, err := buildserver.New(app.remoteBuildFunc(eng, cfg), serverCfg)
			if err != nil {
				return err
			}

			if err := srv.Start(ctx); err != nil {
				rendered, renderErr := issue.Get(issue.ServeStartFailedId).Render(colorScheme(cfg))
				if renderErr == nil {
					fmt.Fprint(app.Stderr, rendered)
				}
				return &ExitError{Code: 1, Err: err}
			}

			info, err := srv.GetConnectionInfo("orchestrator")
			if err != nil {
				_ = srv.Stop()
				return err
			}

			fmt.Fprintf(app.Stdout, "%s Build server listening on %s\n",
				SuccessStyle.Render("✓"), CmdStyle.Render(srv.Address()))
			fmt.Fprintf(app.Stdout, "%s: %s\n", SubtitleStyle.Render("token"), info.Token)
			fmt.Fprintf(app.Stdout, "%s: ssh -p %d %s build <context-dir>\n",
				SubtitleStyle.Render("usage"), info.Port, info.Host)

			// Run until interrupted or the server fails.
			select {
			case <-ctx.Done():
				return srv.Stop()
			case err, ok := <-srv.Err():
				_ = srv.Stop()
				if ok && err != nil {
					return &ExitError{Code: 1, Err: err}
				}
				return nil
			}
		},
	}

	serveCmd.Flags().StringVar(&host, "host", "", "address to bind (default: 127.0.0.1)")
	serveCmd.Flags().IntVar(&port, "port", 0, "port to listen on (0 = auto-select)")

	return serveCmd
}

// remoteBuildFunc adapts the build lifecycle into the server's trigger
// callback. Each request loads its own recipe and streams all engine
// output back over the session.
func (app *App) remoteBuildFunc(eng engine.Engine, cfg *config.Config) buildserver.BuildFunc {
	return func(ctx context.Context, req buildserver.BuildRequest, out io.Writer) error {
		contextDir, err := resolveContextDir([]string{req.ContextDir})
		if err != nil {
			return err
		}

		rec, err := app.loadRecipe(contextDir, "")
		if err != nil {
			return err
		}

		opts := []build.Option{
			build.WithLogger(app.Logger),
			build.WithOutput(out),
			build.WithNoCache(req.NoCache),
		}
		if cfg.PullAttempts > 0 {
			opts = append(opts, build.WithPullAttempts(cfg.PullAttempts))
		}
		if cfg.CacheDir != "" {
			opts = append(opts, build.WithCacheDir(string(cfg.CacheDir)))
		}

		res, err := build.New(eng, opts...).Build(ctx, rec, contextDir, req.Tag)
		if err != nil {
			return err
		}

		if res.Cached {
			fmt.Fprintf(out, "reusing cached image %s\n", res.Tag)
		} else {
			fmt.Fprintf(out, "built %s\n", res.Tag)
		}
		return nil
	}
}
