// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/invowk/livebind/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage livebind configuration",
		Long: `Manage livebind configuration.

Configuration is stored in:
  - Linux: ~/.config/livebind/config.cue
  - macOS: ~/Library/Application Support/livebind/config.cue
  - Windows: %APPDATA%\livebind\config.cue

Every key can be overridden with a LIVEBIND_* environment variable, for
example LIVEBIND_PROPAGATION_MAX_STEPS=500.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigFilePath("")
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := config.CreateDefaultConfig("")
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(app.stdout, "%s %s already exists\n", WarningStyle.Render("!"), path)
				return nil
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	s, err := app.load(ctx)
	if err != nil {
		return err
	}
	cfg := s.cfg
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	source := SubtitleStyle.Render("(using defaults)")
	if s.path != "" {
		source = s.path
	}
	fmt.Fprintf(w, "%s: %s\n\n", ModuleStyle.Render("Config file"), source)

	value := func(v any) string { return SuccessStyle.Render(fmt.Sprint(v)) }
	fmt.Fprintf(w, "%s: %s\n", ModuleStyle.Render("interop"), value(cfg.Interop))
	fmt.Fprintf(w, "%s:\n  alternate_extensions: %s\n", ModuleStyle.Render("eviction"),
		value(strings.Join(cfg.Eviction.AlternateExtensions, ", ")))
	fmt.Fprintf(w, "%s:\n  max_steps: %s\n", ModuleStyle.Render("propagation"), value(cfg.Propagation.MaxSteps))
	fmt.Fprintf(w, "%s:\n  level: %s\n  format: %s\n", ModuleStyle.Render("log"), value(cfg.Log.Level), value(cfg.Log.Format))
	fmt.Fprintf(w, "%s:\n  verbose: %s\n", ModuleStyle.Render("ui"), value(cfg.UI.Verbose))
	return nil
}
