package setstate

import (
	"fmt"

	"github.com/go-via/setstate/h"
)

// Action registers an event handler on the composition. Each trigger of the
// returned handle runs fn as one event pass on the triggering tab's context:
// updates queued by fn are applied together once it returns.
func Action(c *Composition, fn func(ctx *Context)) *ActionHandle {
	if fn == nil {
		panic("action has no handler")
	}
	if c.actions == nil {
		c.actions = make(map[string]func(*Context))
	}
	idStr := genRandID()
	c.actions[idStr] = fn
	return &ActionHandle{id: idStr}
}

// ActionHandle represents a handle to an event handler fn
type ActionHandle struct {
	id string
}

// ID returns the action handle's unique identifier.
func (a *ActionHandle) ID() string {
	return a.id
}

// ActionHandleOption configures behavior of action handles
type ActionHandleOption interface {
	apply(*triggerOpts)
}

type triggerOpts struct {
	prevent bool
}

type withPrevent bool

func (o withPrevent) apply(opts *triggerOpts) {
	opts.prevent = bool(o)
}

// ActionOptionWithPrevent is an option that adds preventDefault() to the event handler.
func ActionOptionWithPrevent() ActionHandleOption {
	return withPrevent(true)
}

func applyOptions(options ...ActionHandleOption) triggerOpts {
	var opts triggerOpts
	for _, opt := range options {
		if opt != nil {
			opt.apply(&opts)
		}
	}
	return opts
}

func actionURL(id string) string {
	return fmt.Sprintf("@get('/_action/%s')", id)
}

// OnClick returns a DOM attribute that triggers the action on click.
func (a *ActionHandle) OnClick(options ...ActionHandleOption) h.H {
	opts := applyOptions(options...)
	event := "on:click"
	if opts.prevent {
		event += ".prevent"
	}
	return h.Data(event, actionURL(a.id))
}
