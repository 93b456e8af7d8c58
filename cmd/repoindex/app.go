// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/invowk/repoindex/internal/config"
	"github.com/invowk/repoindex/pkg/indexer"
	"github.com/invowk/repoindex/pkg/types"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration, output streams and the
	// clock through it.
	App struct {
		Config ConfigProvider
		Clock  indexer.Clock
		stdout io.Writer
		stderr io.Writer

		verbose    bool
		configPath string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Clock  indexer.Clock
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}
)

// NewApp builds an App, filling unset dependencies with defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		Clock:  deps.Clock,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// loadOptions turns the global flags into config load options.
func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: types.FilesystemPath(a.configPath)}
}

// loadConfig loads configuration and applies the UI settings to the process.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, err
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		lipgloss.SetHasDarkBackground(true)
	case config.ColorSchemeLight:
		lipgloss.SetHasDarkBackground(false)
	}
	return cfg, nil
}

// logger returns a slog front-end over a charmbracelet/log handler writing
// to stderr. Quiet keeps only errors.
func (a *App) logger(verbose, quiet bool) *slog.Logger {
	level := log.InfoLevel
	switch {
	case quiet:
		level = log.ErrorLevel
	case verbose:
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(a.stderr, log.Options{
		Prefix:          config.AppName,
		Level:           level,
		ReportTimestamp: verbose,
	})
	return slog.New(handler)
}

// issueStyle returns the glamour style for catalog entries.
func issueStyle(scheme config.ColorScheme) string {
	if scheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}
