package stable

import (
	"sync/atomic"

	"github.com/dreamware/stabletree/internal/borrow"
)

// word stores a borrow.State. update applies fn until it either refuses the
// transition (returns false) or the new state is stored.
type word interface {
	load() borrow.State
	update(fn func(borrow.State) (borrow.State, bool)) bool
}

// plainWord is the single-goroutine state holder.
type plainWord struct {
	s borrow.State
}

func (w *plainWord) load() borrow.State {
	return w.s
}

func (w *plainWord) update(fn func(borrow.State) (borrow.State, bool)) bool {
	next, ok := fn(w.s)
	if ok {
		w.s = next
	}
	return ok
}

// atomicWord is the goroutine-safe state holder.
type atomicWord struct {
	v atomic.Uint64
}

func (w *atomicWord) load() borrow.State {
	return borrow.State(w.v.Load())
}

func (w *atomicWord) update(fn func(borrow.State) (borrow.State, bool)) bool {
	for {
		cur := w.v.Load()
		next, ok := fn(borrow.State(cur))
		if !ok {
			return false
		}
		if w.v.CompareAndSwap(cur, uint64(next)) {
			return true
		}
	}
}

// core is the storage shared by an owner and its borrows.
type core[T any] struct {
	state  word
	value  T
	onFree func(T)
}

func newCore[T any](value T, w word, cfg config[T]) *core[T] {
	return &core[T]{
		state:  w,
		value:  value,
		onFree: cfg.onFree,
	}
}

func (c *core[T]) acquireShared() bool {
	return c.state.update(borrow.State.AcquireShared)
}

func (c *core[T]) acquireExclusive() bool {
	return c.state.update(borrow.State.AcquireExclusive)
}

func (c *core[T]) upgrade() bool {
	return c.state.update(borrow.State.Upgrade)
}

func (c *core[T]) downgrade() {
	c.state.update(func(s borrow.State) (borrow.State, bool) {
		return s.Downgrade(), true
	})
}

func (c *core[T]) releaseShared() {
	var free bool
	c.state.update(func(s borrow.State) (borrow.State, bool) {
		var next borrow.State
		next, free = s.ReleaseShared()
		return next, true
	})
	if free {
		c.free()
	}
}

func (c *core[T]) releaseExclusive() {
	var free bool
	c.state.update(func(s borrow.State) (borrow.State, bool) {
		var next borrow.State
		next, free = s.ReleaseExclusive()
		return next, true
	})
	if free {
		c.free()
	}
}

// close marks the owner gone. Closing twice is a no-op.
func (c *core[T]) close() {
	var free bool
	c.state.update(func(s borrow.State) (borrow.State, bool) {
		if s.IsPending() {
			free = false
			return s, false
		}
		var next borrow.State
		next, free = s.MarkPending()
		return next, true
	})
	if free {
		c.free()
	}
}

// free runs once per core: the state machine hands exactly one caller free=true.
func (c *core[T]) free() {
	var zero T
	old := c.value
	c.value = zero
	if c.onFree != nil {
		c.onFree(old)
	}
}
