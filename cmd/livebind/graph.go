// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/invowk/livebind/internal/dag"
	"github.com/invowk/livebind/internal/issue"
	"github.com/invowk/livebind/pkg/graphfile"

	"github.com/spf13/cobra"
)

// exampleGraph is printed by 'livebind graph --example'.
const exampleGraph = `// A counter whose reassignment is visible to its importer, a classic
// module requiring a builtin, and a deferred import.
entry: "main"
modules: {
	main: {
		imports: [
			{from: "./counter", names: ["count"]},
			{from: "./legacy", names: ["default"]},
		]
		namespaces: ["./counter"]
		dynamic: ["./lazy"]
	}
	counter: {
		exports: {count: 0}
		assign: [{name: "count", value: 1}]
	}
	legacy: {
		kind: "script"
		exports: {version: "1.0"}
		requires: ["path"]
	}
	lazy: {
		exports: {ready: true}
	}
}
`

func newGraphCommand(app *App) *cobra.Command {
	var example bool

	cmd := &cobra.Command{
		Use:   "graph [graph-file]",
		Short: "Show the static import graph of a graph file",
		Long: `Show the static import graph of a graph file.

Lists every module with its kind, every import edge, and either a load order
or the import cycles that prevent one. Cycles are allowed; they are shown so
reads of not yet initialized bindings can be traced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if example {
				fmt.Fprint(app.stdout, exampleGraph)
				return nil
			}
			if len(args) == 0 {
				return errors.New("a graph file is required unless --example is set")
			}
			g, err := graphfile.Load(args[0])
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: issue.WrapWithContext(err, "load module graph", args[0])}
			}
			renderGraph(app.stdout, g)
			return nil
		},
	}

	cmd.Flags().BoolVar(&example, "example", false, "print a sample graph file in CUE")
	return cmd
}

func renderGraph(w io.Writer, g *graphfile.Graph) {
	fmt.Fprintln(w, TitleStyle.Render("Modules")+SubtitleStyle.Render(" (entry "+g.Entry()+")"))
	for _, name := range g.Names() {
		kind := g.File().Modules[name].Kind
		if kind == "" {
			kind = graphfile.KindModule
		}
		fmt.Fprintln(w, bindingStyle.Render(ModuleStyle.Render(g.ModuleID(name))+" "+SubtitleStyle.Render(kind)))
	}

	static := g.Static()
	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("Imports")+SubtitleStyle.Render(fmt.Sprintf(" (%d edges)", static.EdgeCount())))
	for _, node := range static.Nodes() {
		for _, importer := range static.Successors(node) {
			fmt.Fprintln(w, bindingStyle.Render(importer+" -> "+node))
		}
	}

	fmt.Fprintln(w)
	order, err := static.TopologicalSort()
	if err == nil {
		fmt.Fprintln(w, TitleStyle.Render("Load order"))
		fmt.Fprintln(w, bindingStyle.Render(strings.Join(order, ", ")))
		return
	}
	renderCycles(w, static, err)
}

func renderCycles(w io.Writer, static *dag.Graph, err error) {
	fmt.Fprintln(w, WarningStyle.Render("Cycles"))
	for _, cycle := range static.Cycles() {
		fmt.Fprintln(w, bindingStyle.Render("{" + strings.Join(cycle, ", ") + "}"))
	}
	if guide := issue.ForError(err); guide != nil {
		fmt.Fprintln(w, SubtitleStyle.Render(strings.TrimSpace(firstParagraph(string(guide.MarkdownMsg())))))
	}
}

// firstParagraph returns the body text after the guide's heading.
func firstParagraph(md string) string {
	md = strings.TrimSpace(md)
	if _, rest, ok := strings.Cut(md, "\n"); ok {
		md = strings.TrimSpace(rest)
	}
	para, _, _ := strings.Cut(md, "\n\n")
	return strings.Join(strings.Fields(para), " ")
}
