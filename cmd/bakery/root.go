// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bakery-cli/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// engineFlag overrides the configured container engine
	engineFlag string
)

// newRootCommand creates the bakery root command with all subcommands attached.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bakery",
		Short: "A deterministic container image baker",
		Long: TitleStyle.Render("bakery") + SubtitleStyle.Render(" - A deterministic container image baker") + `

bakery turns a source tree plus a small declarative recipe into a
runnable container image. The recipe (a 'bakefile.cue' in CUE format)
pins a base environment, stages the source tree, runs the install
procedure, and sets the default entry command. The same context and
recipe always produce the same image tag.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'bakery init' in your project directory
  2. Adjust the generated bakefile.cue
  3. Build with: bakery build

` + SubtitleStyle.Render("Examples:") + `
  bakery build              Build an image from the current directory
  bakery run                Start the image's entry command
  bakery run -- python3     Run a command inside the image instead
  bakery verify             Build and probe that the install succeeded
  bakery config show        Show current configuration`,
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/bakery/config.cue)")
	rootCmd.PersistentFlags().StringVar(&engineFlag, "engine", "", "container engine to use (podman, docker, auto)")

	rootCmd.AddCommand(newBuildCommand(app))
	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newVerifyCommand(app))
	rootCmd.AddCommand(newInitCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newServeCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it.
// This is called by main.main(). It only needs to happen once.
func Execute() {
	app := NewApp(Dependencies{})

	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
