package setstate

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-via/setstate/h"
	"github.com/pkg/errors"
)

type contextMode uint8

const (
	contextModeAction contextMode = iota
	contextModeView
)

// store holds the committed state values of one context.
type store struct {
	mu    sync.RWMutex
	state map[string]any
}

func newStore() *store {
	return &store{state: make(map[string]any)}
}

type patch struct {
	elements string
}

// Context is one mounted instance of a page: the state owned by a single
// browser tab, its update queue and its live patch stream.
type Context struct {
	id   string
	v    *V
	comp *Composition
	s    *store
	mode contextMode
	warn func(string, ...any)

	// passMu serializes event passes; queueMu guards inPass and pending.
	passMu  sync.Mutex
	queueMu sync.Mutex
	inPass  bool
	pending []update

	patchChan  chan patch
	lastAccess atomic.Int64
	streaming  atomic.Bool
}

// NewContext returns a context that is not attached to any page. Updates
// queued on it are batched and committed like on a mounted context, but
// nothing is rendered. It is meant for tests and tooling that drive
// components directly.
func NewContext(v *V) *Context {
	c := &Context{
		id:   genRandID(),
		v:    v,
		s:    newStore(),
		mode: contextModeAction,
	}
	c.warn = c.logWarnf
	c.touch()
	return c
}

func newContext(id string, v *V, comp *Composition) *Context {
	if v == nil {
		panic("create context failed: app pointer is nil")
	}
	c := &Context{
		id:        id,
		v:         v,
		comp:      comp,
		s:         newStore(),
		mode:      contextModeAction,
		patchChan: make(chan patch, 100),
	}
	c.warn = c.logWarnf
	for _, st := range comp.states {
		c.s.state[st.id] = st.initial
	}
	c.touch()
	return c
}

// ID returns the context id carried by the browser in the ctx signal.
func (c *Context) ID() string {
	return c.id
}

func (c *Context) logWarnf(format string, a ...any) {
	if c.v != nil {
		c.v.logWarn(c, format, a...)
	}
}

func (c *Context) logErrf(format string, a ...any) {
	if c.v != nil {
		c.v.logErr(c, format, a...)
	}
}

func (c *Context) touch() {
	c.lastAccess.Store(time.Now().UnixNano())
}

func (c *Context) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastAccess.Load()))
}

func (c *Context) getActionFn(id string) (func(*Context), error) {
	if c.comp != nil {
		if f, ok := c.comp.actions[id]; ok {
			return f, nil
		}
	}
	return nil, errors.Wrapf(ErrActionNotFound, "action '%s'", id)
}

// render builds the view with a view-mode copy of the context, so updates
// attempted while rendering are rejected without affecting other callers.
func (c *Context) render() h.H {
	if c.comp == nil || c.comp.viewFn == nil {
		return nil
	}
	view := &Context{
		id:   c.id,
		v:    c.v,
		comp: c.comp,
		s:    c.s,
		mode: contextModeView,
		warn: c.warn,
	}
	return c.comp.viewFn(view)
}

// sync renders the current view and queues it as an element patch. When the
// patch stream is full the oldest patch is discarded, since every patch is a
// complete render.
func (c *Context) sync() {
	if c.patchChan == nil {
		return
	}
	view := c.render()
	if view == nil {
		return
	}
	var buf bytes.Buffer
	if err := view.Render(&buf); err != nil {
		c.logErrf("sync view failed: %v", err)
		return
	}
	p := patch{elements: buf.String()}
	for {
		select {
		case c.patchChan <- p:
			return
		default:
		}
		select {
		case <-c.patchChan:
			c.logWarnf("patch stream full; dropped stale patch")
		default:
		}
	}
}

func (c *Context) dispatchAction(fn func(*Context)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	c.Dispatch(fn)
	return nil
}
