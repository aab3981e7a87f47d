// SPDX-License-Identifier: MPL-2.0

// Package requirefunc builds the synchronous accessor handed to classic
// module bodies.
package requirefunc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/invowk/livebind/pkg/host"
)

// ErrInvalidID is returned when require is called with an empty id.
var ErrInvalidID = errors.New("invalid module id")

type (
	// Func loads a module by id and returns what the caller should see as its
	// exports.
	Func func(id string) (any, error)

	// Requirer resolves and loads id on behalf of parent.
	Requirer func(id string, parent *host.Module) (any, error)
)

// Make returns a Func bound to parent.
func Make(parent *host.Module, requirer Requirer) Func {
	return func(id string) (any, error) {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: id must be a non-empty string", ErrInvalidID)
		}
		return requirer(id, parent)
	}
}

// Must calls f and panics on error. It suits module bodies that treat a
// failed require as fatal.
func (f Func) Must(id string) any {
	v, err := f(id)
	if err != nil {
		panic(err)
	}
	return v
}
