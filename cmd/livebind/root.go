// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "livebind",
		Short: "Link module graphs with live, cycle-safe bindings",
		Long: TitleStyle.Render("livebind") + SubtitleStyle.Render(" - live-binding module linker") + `

livebind loads a module graph described in CUE, TOML, YAML or HCL, links it the way
declarative modules link (imports are live views of the exporter's bindings,
cycles included) and reports what every importer observed.

` + SubtitleStyle.Render("Examples:") + `
  livebind run graph.cue            Link and run a graph
  livebind run graph.cue --interop  Allow require in declarative modules
  livebind graph graph.cue          Show the static import graph
  livebind graph --example          Print a sample graph`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(app.stdout)
	root.SetErr(app.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (default is <config dir>/livebind/config.cue)")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "print load statistics and error chains")
	flags.StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&app.logFormat, "log-format", "", "log format: text, json or logfmt")

	root.AddCommand(
		newRunCommand(app),
		newGraphCommand(app),
		newConfigCommand(app),
	)
	return root
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the CLI and exits with the command's exit code.
func Execute() {
	app := NewApp(Dependencies{})
	root := NewRootCommand(app)
	err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, _ fang.Styles, err error) {
			renderError(w, err, app.verbose)
		}),
	)
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(ExitFailure)
}
