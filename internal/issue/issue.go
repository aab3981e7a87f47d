// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"io/fs"

	"github.com/invowk/livebind/internal/dag"
	"github.com/invowk/livebind/pkg/cueutil"
	"github.com/invowk/livebind/pkg/entry"
	"github.com/invowk/livebind/pkg/graphfile"
	"github.com/invowk/livebind/pkg/host"
	lbruntime "github.com/invowk/livebind/pkg/runtime"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	GraphFileNotFoundId Id = iota + 1
	GraphParseErrorId
	GraphInvalidId
	ModuleNotFoundId
	DuplicateExportId
	PropagationNotConvergedId
	DynamicImportFailedId
	InteropDisabledId
	ConfigLoadFailedId
	StaticCycleId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

const docsBase = "https://github.com/invowk/livebind/blob/main/docs/"

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as terminal Markdown with the glamour style at
// stylePath ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if links := append(i.DocLinks(), i.extLinks...); len(links) > 0 {
		md += "\n\n## See also\n"
		for _, link := range links {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	graphFileNotFoundIssue = &Issue{
		id: GraphFileNotFoundId,
		mdMsg: `
# Graph file not found

The module graph file passed to livebind does not exist or is not readable.

## Things you can try
- Check the path, graph files end in .cue, .toml, .yaml, .yml or .hcl
- Print a sample graph and start from it:
~~~
$ livebind graph --example > graph.cue
~~~`,
		docLinks: []HttpLink{docsBase + "graph-files.md"},
	}

	graphParseErrorIssue = &Issue{
		id: GraphParseErrorId,
		mdMsg: `
# Graph file could not be parsed

The graph file has a syntax error or does not match the #Graph schema.

## Things you can try
- Read the error path, it points at the offending field
- Every module needs a kind of "module" or "script"
- Imports are written as {from: "./dep", names: ["x"]}`,
		docLinks: []HttpLink{docsBase + "graph-files.md"},
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	graphInvalidIssue = &Issue{
		id: GraphInvalidId,
		mdMsg: `
# Graph file is inconsistent

The graph parsed but refers to modules or names it never declares.

## Things you can try
- Make sure the entry module is listed under modules
- Script modules may only declare exports, default and requires
- Assignments must target a name the module exports`,
		docLinks: []HttpLink{docsBase + "graph-files.md"},
	}

	moduleNotFoundIssue = &Issue{
		id: ModuleNotFoundId,
		mdMsg: `
# Module not found

An import or require named a module that is neither defined in the graph nor
a builtin.

## Things you can try
- Relative specifiers resolve against the importing module
- Run 'livebind graph' to list every module and edge`,
		docLinks: []HttpLink{docsBase + "resolution.md"},
	}

	duplicateExportIssue = &Issue{
		id: DuplicateExportId,
		mdMsg: `
# Duplicate export

A module declared the same export name twice. Names copied by export * never
conflict with a local export, but two local exports do.`,
		docLinks: []HttpLink{docsBase + "bindings.md"},
	}

	propagationNotConvergedIssue = &Issue{
		id: PropagationNotConvergedId,
		mdMsg: `
# Binding propagation did not converge

A propagation wave visited more entries than propagation.max_steps allows.
This usually means two modules keep reassigning each other's bindings.

## Things you can try
- Raise the bound for one run:
~~~
$ LIVEBIND_PROPAGATION_MAX_STEPS=100000 livebind run graph.cue
~~~
- Break the reassignment loop in the graph`,
		docLinks: []HttpLink{docsBase + "bindings.md"},
	}

	dynamicImportFailedIssue = &Issue{
		id: DynamicImportFailedId,
		mdMsg: `
# Dynamic import failed

A deferred import() was rejected. The cause below names the module that could
not be loaded or the error its body raised.`,
		docLinks: []HttpLink{docsBase + "bindings.md"},
	}

	interopDisabledIssue = &Issue{
		id: InteropDisabledId,
		mdMsg: `
# require is disabled

A declarative module called require without interop enabled.

## Things you can try
- Pass --interop, set interop: true in config.cue or LIVEBIND_INTEROP=true
- Replace the require with an import`,
		docLinks: []HttpLink{docsBase + "interop.md"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Configuration could not be loaded

## Things you can try
- Show where livebind looks for config.cue:
~~~
$ livebind config path
~~~
- Regenerate the defaults with 'livebind config init'
- Check LIVEBIND_* environment variables`,
		docLinks: []HttpLink{docsBase + "configuration.md"},
	}

	staticCycleIssue = &Issue{
		id: StaticCycleId,
		mdMsg: `
# Static import cycle

The graph has an import cycle. Cycles are allowed: live bindings resolve them
once every module in the cycle has run. This notice lists them so a module that
reads an import before its exporter has run can be spotted.`,
		docLinks: []HttpLink{docsBase + "cycles.md"},
	}

	issues = map[Id]*Issue{
		graphFileNotFoundIssue.Id():       graphFileNotFoundIssue,
		graphParseErrorIssue.Id():         graphParseErrorIssue,
		graphInvalidIssue.Id():            graphInvalidIssue,
		moduleNotFoundIssue.Id():          moduleNotFoundIssue,
		duplicateExportIssue.Id():         duplicateExportIssue,
		propagationNotConvergedIssue.Id(): propagationNotConvergedIssue,
		dynamicImportFailedIssue.Id():     dynamicImportFailedIssue,
		interopDisabledIssue.Id():         interopDisabledIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		staticCycleIssue.Id():             staticCycleIssue,
	}
)

func Values() []*Issue {
	values := maps.Values(issues)
	slices.SortFunc(values, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return values
}

func Get(id Id) *Issue {
	return issues[id]
}

// ForError returns the catalog entry that explains err, or nil.
// Dynamic import failures are checked first since they wrap the cause that
// rejected them.
func ForError(err error) *Issue {
	var validation *cueutil.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, lbruntime.ErrDynamicImport):
		return Get(DynamicImportFailedId)
	case errors.Is(err, lbruntime.ErrInteropDisabled):
		return Get(InteropDisabledId)
	case errors.Is(err, entry.ErrDuplicateExport):
		return Get(DuplicateExportId)
	case errors.Is(err, entry.ErrCycleNonTermination):
		return Get(PropagationNotConvergedId)
	case errors.Is(err, host.ErrModuleNotFound):
		return Get(ModuleNotFoundId)
	case errors.Is(err, fs.ErrNotExist):
		return Get(GraphFileNotFoundId)
	case errors.Is(err, graphfile.ErrInvalidGraph):
		return Get(GraphInvalidId)
	case errors.Is(err, graphfile.ErrUnknownFormat), errors.As(err, &validation), errors.Is(err, cueutil.ErrFileTooLarge):
		return Get(GraphParseErrorId)
	case errors.Is(err, dag.ErrCycle):
		return Get(StaticCycleId)
	default:
		return nil
	}
}
