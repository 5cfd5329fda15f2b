// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"bakery-cli/internal/config"
	"bakery-cli/internal/engine"
	"bakery-cli/internal/issue"
	"bakery-cli/internal/recipe"

	"github.com/charmbracelet/log"
)

type (
	// App wires CLI services and shared dependencies. It is the
	// composition root for the CLI layer: all Cobra command handlers
	// receive an App reference and resolve configuration, the container
	// engine, and recipes through it.
	App struct {
		Config config.Provider

		// NewEngine resolves a container engine of the given type.
		// Injectable so command tests can substitute a fake engine.
		NewEngine func(preferred engine.Type) (engine.Engine, error)
		// AutoDetectEngine finds any available engine.
		AutoDetectEngine func() (engine.Engine, error)

		Stdout io.Writer
		Stderr io.Writer
		Logger *log.Logger
	}

	// Dependencies defines the injection points for building an App.
	// Nil fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config           config.Provider
		NewEngine        func(preferred engine.Type) (engine.Engine, error)
		AutoDetectEngine func() (engine.Engine, error)
		Stdout           io.Writer
		Stderr           io.Writer
		Logger           *log.Logger
	}
)

// NewApp builds an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:           deps.Config,
		NewEngine:        deps.NewEngine,
		AutoDetectEngine: deps.AutoDetectEngine,
		Stdout:           deps.Stdout,
		Stderr:           deps.Stderr,
		Logger:           deps.Logger,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.NewEngine == nil {
		app.NewEngine = engine.New
	}
	if app.AutoDetectEngine == nil {
		app.AutoDetectEngine = engine.AutoDetect
	}
	if app.Stdout == nil {
		app.Stdout = os.Stdout
	}
	if app.Stderr == nil {
		app.Stderr = os.Stderr
	}
	if app.Logger == nil {
		app.Logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "bakery"})
	}
	return app
}

// loadConfig resolves the effective configuration, honoring --config.
func (app *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
}

// resolveEngine picks the container engine from the --engine flag when
// set, otherwise from configuration. The zero preference auto-detects.
func (app *App) resolveEngine(flagValue string, cfg *config.Config) (engine.Engine, error) {
	choice := cfg.Engine
	if flagValue != "" {
		choice = config.Engine(flagValue)
	}

	var (
		eng engine.Engine
		err error
	)
	switch choice {
	case config.EngineDocker:
		eng, err = app.NewEngine(engine.TypeDocker)
	case config.EnginePodman:
		eng, err = app.NewEngine(engine.TypePodman)
	case config.EngineAuto, "":
		eng, err = app.AutoDetectEngine()
	default:
		return nil, fmt.Errorf("unknown container engine %q (valid: podman, docker, auto)", choice)
	}
	if err != nil {
		rendered, renderErr := issue.Get(issue.EngineNotFoundId).Render(colorScheme(cfg))
		if renderErr == nil {
			fmt.Fprint(app.Stderr, rendered)
		}
		return nil, err
	}
	return eng, nil
}

// loadRecipe parses the bakefile for a context directory. An explicit
// --file path wins over <context>/bakefile.cue.
func (app *App) loadRecipe(contextDir, filePath string) (*recipe.Recipe, error) {
	path := filePath
	if path == "" {
		path = filepath.Join(contextDir, recipe.DefaultFileName)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, issue.NewErrorContext().
			WithOperation("load bakefile").
			WithResource(path).
			WithSuggestion("Run 'bakery init' to scaffold a bakefile in the context directory").
			WithSuggestion("Pass --file to point at a bakefile outside the context").
			Wrap(fmt.Errorf("bakefile not found: %s", path)).
			BuildError()
	}

	rec, err := recipe.Parse(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse bakefile").
			WithResource(path).
			WithSuggestion("Check the bakefile against 'bakery init' output for the expected shape").
			Wrap(err).
			BuildError()
	}
	return rec, nil
}

// resolveContextDir turns the optional positional context argument into
// an absolute directory path, defaulting to the current directory.
func resolveContextDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve context directory %s: %w", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("context directory %s is not accessible: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("context path %s is not a directory", abs)
	}
	return abs, nil
}

// colorScheme maps the configured scheme to a glamour style path.
func colorScheme(cfg *config.Config) string {
	if cfg == nil {
		return "dark"
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeLight:
		return "light"
	case config.ColorSchemeDark:
		return "dark"
	default:
		return "dark"
	}
}
