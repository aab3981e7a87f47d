// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/livebind/internal/config"
	"github.com/invowk/livebind/internal/issue"
	"github.com/invowk/livebind/internal/logging"
	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/graphfile"
)

// stubProvider returns a fixed configuration.
type stubProvider struct {
	cfg *config.Config
	err error
}

func (p stubProvider) Load(context.Context, config.LoadOptions) (*config.Loaded, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &config.Loaded{Config: p.cfg}, nil
}

func newTestApp(cfg *config.Config) (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := NewApp(Dependencies{Config: stubProvider{cfg: cfg}, Stdout: &stdout, Stderr: &stderr})
	return app, &stdout, &stderr
}

func execute(t *testing.T, app *App, args ...string) error {
	t.Helper()
	root := NewRootCommand(app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func writeGraph(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testSettings() *settings {
	return &settings{cfg: config.DefaultConfig(), logger: logging.Discard()}
}

func observation(r *runReport, importer, spec, name string) (graphfile.Observation, bool) {
	for _, o := range r.Observations {
		if o.Importer == importer && o.Specifier == spec && o.Name == name {
			return o, true
		}
	}
	return graphfile.Observation{}, false
}

func TestRunGraph_Example(t *testing.T) {
	t.Parallel()

	path := writeGraph(t, "graph.cue", exampleGraph)
	report, err := runGraph(context.Background(), testSettings(), runRequest{Path: path, MaxSteps: 100})
	if err != nil {
		t.Fatalf("runGraph() error = %v", err)
	}

	count, ok := observation(report, "main", "./counter", "count")
	if !ok || count.Value != 1 {
		t.Errorf("count = %+v, want live value 1", count)
	}
	if count.Deliveries < 2 {
		t.Errorf("count deliveries = %d, want the initial value and the reassignment", count.Deliveries)
	}

	lazy, ok := observation(report, "main", "./lazy", graphfile.NameDynamic)
	if !ok {
		t.Fatal("dynamic import not observed")
	}
	ns, isNS := lazy.Value.(*entry.Namespace)
	if !isNS {
		t.Fatalf("dynamic import value = %T (err %v)", lazy.Value, lazy.Err)
	}
	if v, _ := ns.Read("ready"); v != true {
		t.Errorf("ready = %v", v)
	}

	if report.Stats.Turns == 0 {
		t.Error("the deferred import should have taken a loop turn")
	}
	if report.Stats.Loads["main.mjs"] != 1 {
		t.Errorf("main.mjs loads = %d, want 1", report.Stats.Loads["main.mjs"])
	}
}

func TestRunGraph_StarCycle(t *testing.T) {
	t.Parallel()

	report, err := runGraph(context.Background(), testSettings(), runRequest{
		Path:     filepath.Join("..", "..", "pkg", "graphfile", "testdata", "star_cycle.cue"),
		MaxSteps: 100,
	})
	if err != nil {
		t.Fatalf("runGraph() error = %v", err)
	}
	for _, name := range []string{"a", "b"} {
		o, ok := observation(report, "main", "./a", name)
		if !ok || o.Value != name {
			t.Errorf("main sees %s = %v, want %q", name, o.Value, name)
		}
	}
	for _, m := range report.Modules {
		if !m.Loaded {
			t.Errorf("module %s not loaded", m.ID)
		}
	}
}

func TestRunGraph_EntryOverride(t *testing.T) {
	t.Parallel()

	path := writeGraph(t, "graph.cue", exampleGraph)
	report, err := runGraph(context.Background(), testSettings(), runRequest{Path: path, Entry: "counter", MaxSteps: 100})
	if err != nil {
		t.Fatalf("runGraph() error = %v", err)
	}
	if report.Entry != "counter" {
		t.Errorf("Entry = %q", report.Entry)
	}
	if report.Stats.Loads["main.mjs"] != 0 {
		t.Error("main should not load when counter is the entry")
	}
}

func TestRunGraph_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		graph   string
		file    string
		req     runRequest
		want    issue.Id
		wantUse bool
	}{
		{
			name:  "missing module",
			file:  "g.yaml",
			graph: "entry: main\nmodules:\n  main:\n    imports:\n      - from: ./gone\n        names: [x]\n",
			want:  issue.ModuleNotFoundId,
		},
		{
			name:    "undefined entry",
			file:    "g.yaml",
			graph:   "entry: nope\nmodules:\n  main: {exports: {x: 1}}\n",
			want:    issue.GraphInvalidId,
			wantUse: true,
		},
		{
			name:  "unknown entry override",
			file:  "g.yaml",
			graph: "entry: main\nmodules:\n  main: {exports: {x: 1}}\n",
			req:   runRequest{Entry: "nope"},
			want:  issue.ModuleNotFoundId,
		},
		{
			name:  "require without interop",
			file:  "g.yaml",
			graph: "entry: main\nmodules:\n  main:\n    requires: [./dep]\n  dep: {exports: {x: 1}}\n",
			want:  issue.InteropDisabledId,
		},
		{
			name:    "bad format",
			file:    "g.json",
			graph:   "{}",
			want:    issue.GraphParseErrorId,
			wantUse: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := tt.req
			req.Path = writeGraph(t, tt.file, tt.graph)
			req.MaxSteps = 100
			_, err := runGraph(context.Background(), testSettings(), req)
			if err == nil {
				t.Fatal("expected error")
			}
			if guide := issue.GuideFor(err); guide == nil || guide.Id() != tt.want {
				t.Errorf("GuideFor() = %v, want issue %d (err: %v)", guide, tt.want, err)
			}
			var exitErr *ExitError
			if got := errors.As(err, &exitErr); got != tt.wantUse {
				t.Errorf("ExitError = %v, want %v", got, tt.wantUse)
			}
		})
	}
}

func TestRunCommand_Output(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.UI.Verbose = true
	app, stdout, _ := newTestApp(cfg)
	path := writeGraph(t, "graph.cue", exampleGraph)

	if err := execute(t, app, "run", path); err != nil {
		t.Fatalf("run error = %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"Modules", "counter.mjs", "count = 1", "main <- ./counter count = 1", "Stats", "loop turns"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommand_ConfigError(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	app := NewApp(Dependencies{Config: stubProvider{err: errors.New("broken")}, Stdout: &stdout, Stderr: &stdout})
	err := execute(t, app, "run", "graph.cue")
	if guide := issue.GuideFor(err); guide == nil || guide.Id() != issue.ConfigLoadFailedId {
		t.Fatalf("GuideFor() = %v, want ConfigLoadFailed", guide)
	}
}

func TestGraphCommand(t *testing.T) {
	t.Parallel()

	app, stdout, _ := newTestApp(nil)
	if err := execute(t, app, "graph", "--example"); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != exampleGraph {
		t.Error("--example should print the sample graph")
	}

	app, stdout, _ = newTestApp(nil)
	if err := execute(t, app, "graph", filepath.Join("..", "..", "pkg", "graphfile", "testdata", "star_cycle.yaml")); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	for _, want := range []string{"main.mjs", "main -> a", "Cycles", "{a, b}"} {
		if !strings.Contains(out, want) {
			t.Errorf("graph output missing %q:\n%s", want, out)
		}
	}

	app, stdout, _ = newTestApp(nil)
	if err := execute(t, app, "graph", writeGraph(t, "g.cue", exampleGraph)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout.String(), "Load order") {
		t.Errorf("acyclic graph should print a load order:\n%s", stdout.String())
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Propagation.MaxSteps = 42
	app, stdout, _ := newTestApp(cfg)
	if err := execute(t, app, "config", "dump", "--log-level", "debug"); err != nil {
		t.Fatal(err)
	}
	out := stdout.String()
	if !strings.Contains(out, "max_steps: 42") || !strings.Contains(out, `level:  "debug"`) {
		t.Errorf("dump = %s", out)
	}
}

func TestFormatValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   any
		want string
	}{
		{nil, "undefined"},
		{"x", `"x"`},
		{3, "3"},
		{func() {}, "[function]"},
		{errors.New("bad"), "error: bad"},
	}
	for _, tt := range tests {
		if got := formatValue(tt.in); got != tt.want {
			t.Errorf("formatValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFirstParagraph(t *testing.T) {
	t.Parallel()

	got := firstParagraph("\n# Title\n\nfirst line\nsecond line\n\n## More")
	if got != "first line second line" {
		t.Errorf("firstParagraph() = %q", got)
	}
}
