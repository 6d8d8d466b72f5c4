package setstate

import "maps"

const defaultMaxUpdatePasses = 50

// update is one queued state transition and the callbacks to run once it
// has been committed.
type update struct {
	apply    func(st *store)
	onCommit []func(*Context)
}

// Dispatch runs fn as one event pass. Updates queued while the pass is open,
// by fn or from other goroutines, are applied together in submission order
// when fn returns. Commit callbacks then run in the same order and see the
// committed values; updates they queue are flushed as a further round of the
// same pass. The view is rendered once, after the last round.
//
// A Dispatch made while a pass is open, such as from a dispatched function or
// a commit callback, does not start a pass of its own: fn runs right away and
// its updates join the open pass.
func (c *Context) Dispatch(fn func(ctx *Context)) {
	if c.mode == contextModeView {
		c.warn("Dispatch() called during view render; ignored")
		return
	}
	if c.passOpen() {
		c.warn("Dispatch() called while a pass is open; joining it")
		if fn != nil {
			fn(c)
		}
		return
	}
	c.passMu.Lock()
	defer c.passMu.Unlock()

	c.beginPass()
	defer c.endPass()

	if fn != nil {
		fn(c)
	}
	c.flush()
}

func (c *Context) passOpen() bool {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return c.inPass
}

func (c *Context) beginPass() {
	c.queueMu.Lock()
	c.inPass = true
	c.queueMu.Unlock()
}

// endPass closes the pass and discards anything still pending, which only
// happens when the pass panicked or hit the update depth bound.
func (c *Context) endPass() {
	c.queueMu.Lock()
	c.inPass = false
	c.pending = nil
	c.queueMu.Unlock()
}

// enqueue adds u to the open pass, or runs a pass of its own for it.
func (c *Context) enqueue(u update) {
	c.queueMu.Lock()
	if c.inPass {
		c.pending = append(c.pending, u)
		c.queueMu.Unlock()
		return
	}
	c.queueMu.Unlock()
	c.Dispatch(func(c *Context) { c.enqueue(u) })
}

// takePending removes the queued updates. When none are left it also closes
// the pass, so an update racing with the end of the pass starts a new one
// instead of being stranded.
func (c *Context) takePending() []update {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	queued := c.pending
	c.pending = nil
	if len(queued) == 0 {
		c.inPass = false
	}
	return queued
}

func (c *Context) maxUpdatePasses() int {
	if c.v != nil && c.v.cfg.MaxUpdatePasses > 0 {
		return c.v.cfg.MaxUpdatePasses
	}
	return defaultMaxUpdatePasses
}

func (c *Context) flush() {
	limit := c.maxUpdatePasses()
	committed := false
	for round := 0; ; round++ {
		queued := c.takePending()
		if len(queued) == 0 {
			break
		}
		if round >= limit {
			c.endPass()
			c.logErrf("maximum update depth exceeded: dropped %d queued updates after %d rounds", len(queued), round)
			break
		}

		c.commit(queued)
		committed = true

		for _, u := range queued {
			for _, cb := range u.onCommit {
				cb(c)
			}
		}
	}
	if committed {
		c.sync()
	}
}

// commit applies queued to a copy of the state and swaps it in, so a
// transition that panics leaves the committed values and the lock intact.
func (c *Context) commit(queued []update) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	staged := &store{state: maps.Clone(c.s.state)}
	for _, u := range queued {
		u.apply(staged)
	}
	c.s.state = staged.state
}
