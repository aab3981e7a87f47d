// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/livebind/internal/issue"
	"github.com/invowk/livebind/internal/watch"
	"github.com/invowk/livebind/pkg/bridge"
	"github.com/invowk/livebind/pkg/builtin"
	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/graphfile"
	"github.com/invowk/livebind/pkg/host"
	"github.com/invowk/livebind/pkg/runtime"

	"github.com/spf13/cobra"
)

type (
	// runRequest is the input of one graph run.
	runRequest struct {
		Path     string
		Entry    string
		Interop  bool
		MaxSteps int
		Watch    bool
	}

	// moduleReport is the final state of one linked module.
	moduleReport struct {
		ID       string
		Kind     string
		Loaded   bool
		Bindings []bindingReport
	}

	bindingReport struct {
		Name  string
		Value string
	}

	// runStats are load counters shown in verbose mode.
	runStats struct {
		Loads          map[string]int
		CoreCached     int
		AlternateCache int
		PeakDepth      int
		Turns          int
	}

	// runReport is everything a run produced.
	runReport struct {
		Entry        string
		Modules      []moduleReport
		Observations []graphfile.Observation
		Stats        runStats
	}
)

func newRunCommand(app *App) *cobra.Command {
	var req runRequest

	cmd := &cobra.Command{
		Use:   "run <graph-file>",
		Short: "Link and run a module graph",
		Long: `Link and run a module graph.

The entry module is loaded first; every import, re-export, require and
dynamic import it reaches is linked with live bindings. After deferred
imports have settled, livebind prints each module's namespace and every
value an importer observed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.load(cmd.Context())
			if err != nil {
				return err
			}
			req.Path = args[0]
			if !cmd.Flags().Changed("interop") {
				req.Interop = s.cfg.Interop
			}
			if req.MaxSteps == 0 {
				req.MaxSteps = s.cfg.Propagation.MaxSteps
			}

			if req.Watch {
				return watchGraph(cmd.Context(), app, s, req)
			}
			report, err := runGraph(cmd.Context(), s, req)
			if err != nil {
				return err
			}
			renderReport(app.stdout, report, s.cfg.UI.Verbose)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Entry, "entry", "", "entry module (overrides the graph file's entry)")
	cmd.Flags().BoolVar(&req.Interop, "interop", false, "allow require in declarative modules (also enabled by config or the graph file)")
	cmd.Flags().IntVar(&req.MaxSteps, "max-steps", 0, "propagation step bound (default from config)")
	cmd.Flags().BoolVarP(&req.Watch, "watch", "w", false, "re-run whenever the graph file changes")

	return cmd
}

// watchGraph runs the graph once, then again after every change to the graph
// file, until ctx is cancelled. Failed runs are reported and watching goes on.
func watchGraph(ctx context.Context, app *App, s *settings, req runRequest) error {
	once := func(ctx context.Context) {
		report, err := runGraph(ctx, s, req)
		if err != nil {
			renderError(app.stderr, err, s.cfg.UI.Verbose)
			return
		}
		renderReport(app.stdout, report, s.cfg.UI.Verbose)
	}

	w, err := watch.New(watch.Config{
		Files:  []string{req.Path},
		Logger: s.logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("changed: "+strings.Join(changed, ", ")))
			once(ctx)
			return nil
		},
	})
	if err != nil {
		return err
	}
	once(ctx)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render("watching "+req.Path+" (Ctrl+C to stop)"))
	return w.Run(ctx)
}

// runGraph loads the graph at req.Path, links it from its entry module and
// waits for deferred imports.
func runGraph(ctx context.Context, s *settings, req runRequest) (*runReport, error) {
	g, err := graphfile.Load(req.Path)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Err: issue.NewErrorContext().
			WithOperation("load module graph").
			WithResource(req.Path).
			WithSuggestion("Run 'livebind graph --example' for a working sample").
			Wrap(err).
			BuildError()}
	}

	entryName := g.Entry()
	if req.Entry != "" {
		entryName = req.Entry
	}

	interop := req.Interop || g.File().Interop

	mem := host.NewMemory(host.WithLogger(s.logger))
	if err := g.Install(mem); err != nil {
		return nil, issue.WrapWithContext(err, "install module graph", req.Path)
	}

	engine := runtime.NewEngine(mem,
		runtime.WithInterop(interop),
		runtime.WithBuiltins(builtin.Default()),
		runtime.WithEvictionPolicy(bridge.DefaultPolicy(s.cfg.Eviction.AlternateExtensions...)),
		runtime.WithMaxSteps(req.MaxSteps),
		runtime.WithLogger(s.logger),
	)

	s.logger.Debug("running graph", "file", req.Path, "entry", entryName, "interop", interop)
	if _, err := engine.Main(entryName); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("run module graph").
			WithResource(entryName).
			Wrap(err).
			BuildError()
	}
	if err := engine.Drain(ctx); err != nil {
		return nil, issue.WrapWithContext(err, "settle dynamic imports", entryName)
	}

	report := &runReport{
		Entry:        entryName,
		Observations: g.Observed(),
		Stats: runStats{
			Loads:          make(map[string]int),
			CoreCached:     mem.Core().Len(),
			AlternateCache: mem.Alternate().Len(),
			PeakDepth:      engine.Session().Peak(),
			Turns:          engine.Loop().Turns(),
		},
	}
	for _, id := range mem.IDs() {
		report.Stats.Loads[id] = mem.LoadCount(id)
	}
	for _, e := range engine.Registry().Entries() {
		report.Modules = append(report.Modules, reportModule(e))
	}
	return report, nil
}

func reportModule(e *entry.Entry) moduleReport {
	ns := e.Namespace()
	m := moduleReport{ID: e.ID, Kind: e.SourceType().String(), Loaded: e.IsLoaded()}
	for _, name := range ns.Names() {
		v, _ := ns.Read(name)
		m.Bindings = append(m.Bindings, bindingReport{Name: name, Value: formatValue(v)})
	}
	return m
}

// formatValue renders an observed value. Namespaces print their module id
// and contents; functions print as [function].
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "undefined"
	case *entry.Namespace:
		return "module " + x.Entry().ID + " " + x.String()
	case string:
		return fmt.Sprintf("%q", x)
	case error:
		return "error: " + x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		if isFunc(v) {
			return "[function]"
		}
		return fmt.Sprintf("%v", v)
	}
}

func renderReport(w io.Writer, r *runReport, verbose bool) {
	fmt.Fprintln(w, TitleStyle.Render("Modules")+SubtitleStyle.Render(" (entry "+r.Entry+")"))
	for _, m := range r.Modules {
		state := SuccessStyle.Render("loaded")
		if !m.Loaded {
			state = WarningStyle.Render("loading")
		}
		fmt.Fprintf(w, "%s %s %s\n", ModuleStyle.Render(m.ID), SubtitleStyle.Render(m.Kind), state)
		for _, b := range m.Bindings {
			fmt.Fprintln(w, bindingStyle.Render(b.Name+" = "+b.Value))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Observations"))
	for _, o := range r.Observations {
		value := "<unset>"
		switch {
		case o.Err != nil:
			value = ErrorStyle.Render("rejected: " + rejection(o.Err))
		case o.Seen:
			value = formatValue(o.Value)
		}
		line := fmt.Sprintf("%s <- %s %s = %s", o.Importer, o.Specifier, o.Name, value)
		if verbose {
			line += SubtitleStyle.Render(fmt.Sprintf(" (%d deliveries)", o.Deliveries))
		}
		fmt.Fprintln(w, bindingStyle.Render(line))
	}

	if !verbose {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Stats"))
	ids := make([]string, 0, len(r.Stats.Loads))
	for id, n := range r.Stats.Loads {
		if n > 0 {
			ids = append(ids, fmt.Sprintf("%s=%d", id, n))
		}
	}
	fmt.Fprintln(w, bindingStyle.Render("loads: "+strings.Join(sortStrings(ids), " ")))
	fmt.Fprintln(w, bindingStyle.Render(fmt.Sprintf("core cache: %d, alternate cache: %d", r.Stats.CoreCached, r.Stats.AlternateCache)))
	fmt.Fprintln(w, bindingStyle.Render(fmt.Sprintf("peak load depth: %d, loop turns: %d", r.Stats.PeakDepth, r.Stats.Turns)))
}

// rejection returns the innermost cause of a dynamic import rejection.
func rejection(err error) string {
	var ie *runtime.ImportError
	if errors.As(err, &ie) && ie.Cause != nil {
		return ie.Specifier + ": " + ie.Cause.Error()
	}
	return err.Error()
}
