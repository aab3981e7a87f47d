// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/invowk/livebind/internal/dag"
	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/graphfile"
	"github.com/invowk/livebind/pkg/host"
	lbruntime "github.com/invowk/livebind/pkg/runtime"
)

func TestIssuesMapCompleteness(t *testing.T) {
	t.Parallel()

	for id := GraphFileNotFoundId; id <= StaticCycleId; id++ {
		got := Get(id)
		if got == nil {
			t.Errorf("Get(%d) returned nil", id)
			continue
		}
		if got.Id() != id {
			t.Errorf("Get(%d).Id() = %d", id, got.Id())
		}
		if strings.TrimSpace(string(got.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", id)
		}
		if len(got.DocLinks()) == 0 {
			t.Errorf("issue %d has no doc links", id)
		}
	}
	if len(Values()) != int(StaticCycleId) {
		t.Errorf("Values() = %d issues, want %d", len(Values()), StaticCycleId)
	}
	if Get(0) != nil {
		t.Error("Get(0) should be nil")
	}
}

func TestValues_Sorted(t *testing.T) {
	t.Parallel()

	values := Values()
	for i := 1; i < len(values); i++ {
		if values[i-1].Id() >= values[i].Id() {
			t.Fatalf("Values() not sorted at %d", i)
		}
	}
}

func TestIssue_LinksAreCopies(t *testing.T) {
	t.Parallel()

	i := Get(GraphParseErrorId)
	links := i.DocLinks()
	links[0] = "mutated"
	if i.DocLinks()[0] == "mutated" {
		t.Error("DocLinks should return a copy")
	}
}

//nolint:paralleltest // swaps the package-level renderer
func TestIssue_Render(t *testing.T) {
	var gotIn, gotStyle string
	orig := render
	render = func(in, stylePath string) (string, error) {
		gotIn, gotStyle = in, stylePath
		return "rendered", nil
	}
	t.Cleanup(func() { render = orig })

	out, err := Get(GraphParseErrorId).Render("notty")
	if err != nil || out != "rendered" {
		t.Fatalf("Render() = %q, %v", out, err)
	}
	if gotStyle != "notty" {
		t.Errorf("style = %q, want notty", gotStyle)
	}
	for _, want := range []string{"# Graph file could not be parsed", "## See also", "https://cuelang.org/docs/"} {
		if !strings.Contains(gotIn, want) {
			t.Errorf("markdown missing %q:\n%s", want, gotIn)
		}
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	t.Parallel()

	for _, i := range Values() {
		out, err := i.Render("notty")
		if err != nil {
			t.Errorf("issue %d: Render() error = %v", i.Id(), err)
		}
		if out == "" {
			t.Errorf("issue %d rendered empty", i.Id())
		}
	}
}

func TestForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Id
	}{
		{"dynamic import", &lbruntime.ImportError{Specifier: "./x", Cause: host.ErrModuleNotFound}, DynamicImportFailedId},
		{"interop", lbruntime.ErrInteropDisabled, InteropDisabledId},
		{"duplicate export", &entry.DuplicateExportError{Module: "./a.mjs", Name: "x"}, DuplicateExportId},
		{"non termination", &entry.CycleNonTerminationError{Module: "./a.mjs", Steps: 3}, PropagationNotConvergedId},
		{"not found", fmt.Errorf("load: %w", host.ErrModuleNotFound), ModuleNotFoundId},
		{"invalid graph", fmt.Errorf("%w: entry missing", graphfile.ErrInvalidGraph), GraphInvalidId},
		{"unknown format", graphfile.ErrUnknownFormat, GraphParseErrorId},
		{"missing file", &fs.PathError{Op: "open", Path: "g.cue", Err: fs.ErrNotExist}, GraphFileNotFoundId},
		{"cycle", &dag.CycleError{}, StaticCycleId},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ForError(tt.err)
			if got == nil || got.Id() != tt.want {
				t.Errorf("ForError() = %v, want issue %d", got, tt.want)
			}
		})
	}

	if ForError(nil) != nil || ForError(errors.New("other")) != nil {
		t.Error("ForError should return nil for nil and unknown errors")
	}
}
