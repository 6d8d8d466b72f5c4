package setstate

// StateHandle names one piece of state declared on a composition. Values are
// held per context; the handle only knows the id and the initial value.
type StateHandle[T any] struct {
	id      string
	initial T
}

// State declares a piece of state on the composition with its initial value.
func State[T any](c *Composition, initial T) *StateHandle[T] {
	s := &StateHandle[T]{
		id:      genRandID(),
		initial: initial,
	}
	c.states = append(c.states, stateRegistration{id: s.id, initial: initial})
	return s
}

// Get returns the committed value. Updates still queued in the current event
// pass are not visible until the pass flushes.
func (s *StateHandle[T]) Get(ctx *Context) T {
	if ctx == nil || ctx.s == nil {
		return s.initial
	}
	ctx.s.mu.RLock()
	defer ctx.s.mu.RUnlock()
	return s.get(ctx.s)
}

// get reads st without locking; callers hold st.mu.
func (s *StateHandle[T]) get(st *store) T {
	if val, ok := st.state[s.id]; ok {
		if typed, ok := val.(T); ok {
			return typed
		}
	}
	return s.initial
}

// Update queues the transition fn. When the pass flushes, fn receives the
// value left by the updates queued before it, so several functional updates
// in one pass compound. fn must be pure: it runs while the store is locked
// and must not read state through a context.
//
// The onCommit callbacks run after the whole batch is committed.
func (s *StateHandle[T]) Update(ctx *Context, fn func(prev T) T, onCommit ...func(*Context)) {
	if ctx == nil || ctx.s == nil {
		return
	}
	if fn == nil {
		ctx.warn("State.Update() called with nil func; update ignored")
		return
	}
	if ctx.mode == contextModeView {
		ctx.warn("State.Update() called during view render; update ignored")
		return
	}
	ctx.enqueue(update{
		apply: func(st *store) {
			st.state[s.id] = fn(s.get(st))
		},
		onCommit: compact(onCommit),
	})
}

// Set queues a replacement of the value. Unlike Update, the value is fixed
// when Set is called, so Set(ctx, Get(ctx)+1) repeated in one pass applies
// once.
func (s *StateHandle[T]) Set(ctx *Context, value T, onCommit ...func(*Context)) {
	if ctx == nil || ctx.s == nil {
		return
	}
	if ctx.mode == contextModeView {
		ctx.warn("State.Set() called during view render; mutation ignored")
		return
	}
	ctx.enqueue(update{
		apply: func(st *store) {
			st.state[s.id] = value
		},
		onCommit: compact(onCommit),
	})
}

func compact(fns []func(*Context)) []func(*Context) {
	var out []func(*Context)
	for _, fn := range fns {
		if fn != nil {
			out = append(out, fn)
		}
	}
	return out
}
