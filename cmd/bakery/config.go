// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"bakery-cli/internal/config"
	"bakery-cli/internal/issue"

	"github.com/spf13/cobra"
)

// newConfigCommand creates the `bakery config` command tree.
// Subcommands that read configuration use the App's config provider.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bakery configuration",
		Long: `Manage bakery configuration.

Configuration is stored in:
  - Linux: ~/.config/bakery/config.cue
  - macOS: ~/Library/Application Support/bakery/config.cue
  - Windows: %APPDATA%\bakery\config.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, args[0], args[1])
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprint(app.Stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(app.Stderr, rendered)
		return err
	}

	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Fprintln(app.Stdout, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(app.Stdout)

	cfgDir, dirErr := config.ConfigDir()
	if dirErr == nil {
		cfgPath := filepath.Join(cfgDir, "config.cue")
		if fileExistsCheck(cfgPath) {
			fmt.Fprintf(app.Stdout, "%s: %s\n", keyStyle.Render("Config file"), cfgPath)
		} else {
			fmt.Fprintf(app.Stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
		}
	} else {
		fmt.Fprintf(app.Stdout, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(app.Stdout)

	fmt.Fprintf(app.Stdout, "%s: %s\n", keyStyle.Render("engine"), valueStyle.Render(string(cfg.Engine)))
	if cfg.CacheDir == "" {
		fmt.Fprintf(app.Stdout, "%s: %s\n", keyStyle.Render("cache_dir"), SubtitleStyle.Render("(default)"))
	} else {
		fmt.Fprintf(app.Stdout, "%s: %s\n", keyStyle.Render("cache_dir"), valueStyle.Render(string(cfg.CacheDir)))
	}
	fmt.Fprintf(app.Stdout, "%s: %s\n", keyStyle.Render("pull_attempts"), valueStyle.Render(strconv.Itoa(cfg.PullAttempts)))

	fmt.Fprintln(app.Stdout)
	fmt.Fprintf(app.Stdout, "%s:\n", keyStyle.Render("ui"))
	fmt.Fprintf(app.Stdout, "  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Fprintf(app.Stdout, "  verbose: %s\n", valueStyle.Render(strconv.FormatBool(cfg.UI.Verbose)))

	return nil
}

func initConfigFile(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Fprintf(app.Stdout, "%s Created default configuration at %s\n",
		SuccessStyle.Render("✓"), filepath.Join(cfgDir, "config.cue"))
	return nil
}

func showConfigPath(app *App) error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.Stdout, "Config file: %s\n", filepath.Join(cfgDir, "config.cue"))
	return nil
}

func setConfigValue(ctx context.Context, app *App, key, value string) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}

	switch key {
	case "engine":
		candidate := config.Engine(value)
		if valid, errs := candidate.IsValid(); !valid {
			return errs[0]
		}
		cfg.Engine = candidate

	case "cache_dir":
		candidate := config.CacheDirPath(value)
		if valid, errs := candidate.IsValid(); !valid {
			return errs[0]
		}
		cfg.CacheDir = candidate

	case "pull_attempts":
		attempts, convErr := strconv.Atoi(value)
		if convErr != nil || attempts < 1 {
			return fmt.Errorf("invalid pull_attempts %q: must be a positive integer", value)
		}
		cfg.PullAttempts = attempts

	case "ui.color_scheme":
		candidate := config.ColorScheme(value)
		if valid, errs := candidate.IsValid(); !valid {
			return errs[0]
		}
		cfg.UI.ColorScheme = candidate

	case "ui.verbose":
		cfg.UI.Verbose = value == "true" || value == "1"

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: engine, cache_dir, pull_attempts, ui.color_scheme, ui.verbose", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(app.Stdout, "%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}

// fileExistsCheck checks if a file exists and is not a directory.
func fileExistsCheck(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
