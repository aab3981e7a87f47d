// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/invowk/livebind/internal/config"
	"github.com/invowk/livebind/internal/issue"
	"github.com/invowk/livebind/internal/logging"
)

type (
	// App wires CLI services. Command handlers receive an App and read
	// configuration and writers through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		// Flags shared by every command.
		configPath string
		verbose    bool
		logLevel   string
		logFormat  string
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// settings is the configuration after flag overrides.
	settings struct {
		cfg    *config.Config
		path   string
		logger *slog.Logger
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
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

// load resolves configuration and applies the global flags on top of it.
func (a *App) load(ctx context.Context) (*settings, error) {
	loaded, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: a.configPath})
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	cfg := loaded.Config
	if a.verbose {
		cfg.UI.Verbose = true
	}
	if a.logLevel != "" {
		cfg.Log.Level = config.LogLevel(a.logLevel)
	}
	if a.logFormat != "" {
		cfg.Log.Format = config.LogFormat(a.logFormat)
	}

	logger := logging.New(a.stderr, logging.Options{
		Level:  string(cfg.Log.Level),
		Format: string(cfg.Log.Format),
	})
	return &settings{cfg: cfg, path: loaded.Path, logger: logger}, nil
}
