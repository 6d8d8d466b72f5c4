// Package counter is a counter component whose button adds five through five
// queued increments in one event handler.
package counter

import (
	"github.com/go-via/setstate"
	"github.com/go-via/setstate/h"
	"github.com/rs/zerolog"
)

// ClicksPerPress is how many increments one button press queues.
const ClicksPerPress = 5

// Counter holds the declarations of the component. The count itself lives in
// each tab's *setstate.Context.
type Counter struct {
	log   zerolog.Logger
	count *setstate.StateHandle[int]
	five  *setstate.ActionHandle
}

// New returns a counter that writes its count records to log.
func New(log zerolog.Logger) *Counter {
	return &Counter{log: log}
}

// next is the increment transition.
func next(prev int) int {
	return prev + 1
}

// Compose declares the count, the button action and the view on c.
func (k *Counter) Compose(c *setstate.Composition) {
	k.count = setstate.State(c, 0)
	k.five = setstate.Action(c, k.IncrementFive)
	c.View(k.View)
}

// Count returns the committed count.
func (k *Counter) Count(ctx *setstate.Context) int {
	return k.count.Get(ctx)
}

// Increment queues count+1. The record written right after queuing shows the
// count as it was before the update; the commit callback shows it after.
func (k *Counter) Increment(ctx *setstate.Context) {
	k.count.Update(ctx, next, func(ctx *setstate.Context) {
		k.log.Info().Int("count", k.count.Get(ctx)).Msg("callback value")
	})
	k.log.Info().Int("count", k.count.Get(ctx)).Msg("count")
}

// IncrementFive is the button handler.
func (k *Counter) IncrementFive(ctx *setstate.Context) {
	for range ClicksPerPress {
		k.Increment(ctx)
	}
}

func (k *Counter) View(ctx *setstate.Context) h.H {
	return h.Div(
		h.Div(h.ID("count"), h.AriaLive("polite"), h.Textf("%d", k.count.Get(ctx))),
		h.Button(h.Text("increment"), k.five.OnClick()),
	)
}
