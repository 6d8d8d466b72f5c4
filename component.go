package setstate

import (
	"maps"

	"github.com/go-via/setstate/h"
)

// CompHandle is a handle to a composed component.
type CompHandle struct {
	id     string
	viewFn func(*Context) h.H
}

// ID returns the id of the element the component renders into.
func (ch *CompHandle) ID() string {
	return ch.id
}

// Mount renders the component into the parent view.
func (ch *CompHandle) Mount(ctx *Context) h.H {
	return ch.viewFn(ctx)
}

// Component creates a child component from a compose function. The child's
// actions and states are owned by the parent, so they share the parent's
// *Context at runtime.
func (parent *Composition) Component(composeFn ComposeFn) *CompHandle {
	if composeFn == nil {
		panic("component has no compose function")
	}
	child := newComposition(parent.route)
	child.isComponent = true

	composeFn(child)
	if child.viewFn == nil {
		panic("component " + child.id + " has no view")
	}

	if parent.actions == nil {
		parent.actions = make(map[string]func(*Context))
	}
	maps.Copy(parent.actions, child.actions)
	parent.states = append(parent.states, child.states...)

	return &CompHandle{
		id:     child.id,
		viewFn: child.viewFn,
	}
}
