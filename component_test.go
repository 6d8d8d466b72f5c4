package setstate

import (
	"testing"

	"github.com/go-via/setstate/h"
	"github.com/stretchr/testify/assert"
)

// TestComponent_MountWrapsInDiv verifies output is wrapped in div with ID, not main
func TestComponent_MountWrapsInDiv(t *testing.T) {
	c := newComposition("/")

	handle := c.Component(func(child *Composition) {
		child.View(func(ctx *Context) h.H {
			return h.Span(h.Text("component content"))
		})
	})

	rendered := renderToString(handle.Mount(NewContext(nil)))

	assert.Contains(t, rendered, `<div id="`+handle.ID()+`">`)
	assert.Contains(t, rendered, "component content")
	assert.NotContains(t, rendered, "<main")
}

// TestComponent_HasUniqueID verifies each component gets a unique ID
func TestComponent_HasUniqueID(t *testing.T) {
	c := newComposition("/")
	compose := func(child *Composition) {
		child.View(func(ctx *Context) h.H { return h.Div() })
	}

	assert.NotEqual(t, c.Component(compose).ID(), c.Component(compose).ID())
}

func TestComponent_StateAndActionsOwnedByParent(t *testing.T) {
	v := quietApp(nil)

	var count *StateHandle[int]
	var bump *ActionHandle
	var comp *CompHandle
	ctx := mountedCtx(t, v, func(c *Composition) {
		comp = c.Component(func(child *Composition) {
			count = State(child, 41)
			bump = Action(child, func(ctx *Context) { count.Update(ctx, inc) })
			child.View(func(ctx *Context) h.H {
				return h.Textf("Count: %d", count.Get(ctx))
			})
		})
		c.View(func(ctx *Context) h.H { return comp.Mount(ctx) })
	})

	fn, err := ctx.getActionFn(bump.ID())
	assert.NoError(t, err)
	ctx.Dispatch(fn)

	assert.Equal(t, 42, count.Get(ctx))
	assert.Contains(t, renderToString(ctx.render()), "Count: 42")
}

func TestComponent_WithoutViewPanics(t *testing.T) {
	c := newComposition("/")
	assert.Panics(t, func() {
		c.Component(func(*Composition) {})
	})
	assert.Panics(t, func() {
		c.Component(nil)
	})
}

func TestComposition_PageViewWrapsInMain(t *testing.T) {
	c := newComposition("/")
	c.View(func(*Context) h.H { return h.Text("page") })

	rendered := renderToString(c.viewFn(NewContext(nil)))
	assert.Equal(t, `<main id="`+c.ID()+`">page</main>`, rendered)

	assert.Panics(t, func() { c.View(nil) })
}
