// SPDX-License-Identifier: MPL-2.0

package requirefunc

import (
	"errors"
	"testing"

	"github.com/invowk/livebind/pkg/host"
)

func TestMake(t *testing.T) {
	t.Parallel()

	parent := &host.Module{ID: "main.js"}
	var gotParent *host.Module
	req := Make(parent, func(id string, p *host.Module) (any, error) {
		gotParent = p
		return "exports of " + id, nil
	})

	v, err := req("./a")
	if err != nil {
		t.Fatalf("require() error = %v", err)
	}
	if v != "exports of ./a" || gotParent != parent {
		t.Errorf("require() = %v, parent %v", v, gotParent)
	}
}

func TestMake_InvalidID(t *testing.T) {
	t.Parallel()

	called := false
	req := Make(nil, func(string, *host.Module) (any, error) {
		called = true
		return nil, nil
	})
	for _, id := range []string{"", "  "} {
		if _, err := req(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("require(%q) error = %v, want ErrInvalidID", id, err)
		}
	}
	if called {
		t.Error("requirer called for an invalid id")
	}
}

func TestMust_Panics(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	req := Make(nil, func(string, *host.Module) (any, error) { return nil, errBoom })
	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !errors.Is(err, errBoom) {
			t.Errorf("recovered %v, want boom", r)
		}
	}()
	req.Must("x")
}
