// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/invowk/livebind/internal/issue"
)

// glamourStyle is the glamour style used for issue guides. "notty" keeps
// output free of escape sequences when stderr is not a terminal.
var glamourStyle = "auto"

// renderError writes err to w: the actionable summary, then the catalog
// guide that explains it, if any.
func renderError(w io.Writer, err error, verbose bool) {
	if err == nil {
		return
	}

	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(verbose))
	} else {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+err.Error())
	}

	guide := issue.GuideFor(err)
	if guide == nil {
		return
	}
	rendered, renderErr := guide.Render(glamourStyle)
	if renderErr != nil {
		slog.Debug("render issue guide", "issue", guide.Id(), "error", renderErr)
		fmt.Fprintln(w, string(guide.MarkdownMsg()))
		return
	}
	fmt.Fprint(w, rendered)
}
