package setstate

import (
	"github.com/go-via/setstate/h"
)

// Composition collects the states, actions and view of a page or component.
// It is filled once, when the page or component is declared; every browser
// tab then gets its own *Context that holds the values.
type Composition struct {
	id          string
	route       string
	viewFn      func(*Context) h.H
	actions     map[string]func(*Context)
	states      []stateRegistration
	isComponent bool
}

type stateRegistration struct {
	id      string
	initial any
}

// ComposeFn is the compose function for a page or component.
type ComposeFn func(c *Composition)

func newComposition(route string) *Composition {
	return &Composition{
		id:      genRandID(),
		route:   route,
		actions: make(map[string]func(*Context)),
	}
}

func (c *Composition) ID() string {
	return c.id
}

// View sets the render function. Pages are wrapped in a main element and
// components in a div, both carrying the composition id.
func (c *Composition) View(viewFn func(ctx *Context) h.H) {
	if viewFn == nil {
		panic("composition contains no view")
	}
	if c.isComponent {
		c.viewFn = func(ctx *Context) h.H {
			return h.Div(h.ID(c.id), viewFn(ctx))
		}
		return
	}
	c.viewFn = func(ctx *Context) h.H {
		return h.Main(h.ID(c.id), viewFn(ctx))
	}
}
