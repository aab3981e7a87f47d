// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/invowk/livebind/pkg/entry"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation only", &ActionableError{Operation: "load module graph"}, "failed to load module graph"},
		{"with resource", &ActionableError{Operation: "load module graph", Resource: "graph.cue"}, "failed to load module graph: graph.cue"},
		{
			"with cause",
			&ActionableError{Operation: "run", Resource: "./a.mjs", Cause: errors.New("boom")},
			"failed to run: ./a.mjs: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("wrapped: %w", entry.ErrDuplicateExport)
	err := WrapWithContext(cause, "run", "./a.mjs")
	if !errors.Is(err, entry.ErrDuplicateExport) {
		t.Error("errors.Is should reach through the cause chain")
	}
	if WrapWithOperation(nil, "noop") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	err := &ActionableError{
		Operation:   "load module graph",
		Resource:    "graph.cue",
		Suggestions: []string{"Check the path", "Run 'livebind graph --example'"},
		Cause:       fmt.Errorf("outer: %w", errors.New("inner")),
	}

	short := err.Format(false)
	for _, want := range []string{"graph.cue", "• Check the path", "• Run 'livebind graph --example'"} {
		if !strings.Contains(short, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, short)
		}
	}
	if strings.Contains(short, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	long := err.Format(true)
	for _, want := range []string{"Error chain:", "1. outer: inner", "2. inner"} {
		if !strings.Contains(long, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, long)
		}
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError without operation should return a nil interface")
	}

	ae := NewErrorContext().
		WithOperation("run").
		WithSuggestions("a", "b").
		WithSuggestion("c").
		WithIssue(ConfigLoadFailedId).
		Build()
	if len(ae.Suggestions) != 3 || !ae.HasSuggestions() {
		t.Errorf("Suggestions = %v", ae.Suggestions)
	}
	if ae.Issue != ConfigLoadFailedId {
		t.Errorf("Issue = %d, want %d", ae.Issue, ConfigLoadFailedId)
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("process").WithSuggestion("first")
	first := ctx.Wrap(errors.New("one")).Build()
	second := ctx.Wrap(errors.New("two")).WithSuggestion("second").Build()

	if first.Cause.Error() != "one" || second.Cause.Error() != "two" {
		t.Error("each Build should capture the cause set at that time")
	}
	if len(first.Suggestions) != 1 {
		t.Errorf("later suggestions leaked into an earlier build: %v", first.Suggestions)
	}
}

func TestGuideFor(t *testing.T) {
	t.Parallel()

	pinned := NewErrorContext().WithOperation("load configuration").WithIssue(ConfigLoadFailedId).
		Wrap(errors.New("bad")).BuildError()
	if got := GuideFor(pinned); got == nil || got.Id() != ConfigLoadFailedId {
		t.Errorf("GuideFor(pinned) = %v, want ConfigLoadFailed", got)
	}

	derived := WrapWithOperation(fmt.Errorf("x: %w", entry.ErrCycleNonTermination), "run")
	if got := GuideFor(derived); got == nil || got.Id() != PropagationNotConvergedId {
		t.Errorf("GuideFor(derived) = %v, want PropagationNotConverged", got)
	}

	if GuideFor(errors.New("plain")) != nil {
		t.Error("GuideFor should return nil for unknown errors")
	}
}
