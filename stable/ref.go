package stable

// Ref is a shared borrow of a stable cell. It is not safe to release a single
// Ref from several goroutines at once; take one Ref per goroutine instead.
type Ref[T any] struct {
	c *core[T]
}

// Get returns the borrowed value.
// Panics if the Ref has been released.
func (r *Ref[T]) Get() T {
	if r.c == nil {
		panic("stable: use of released Ref")
	}
	return r.c.value
}

// Release gives up the borrow, freeing the storage if the owner is closed and
// this was the last borrow. Release is idempotent and safe on a nil Ref.
func (r *Ref[T]) Release() {
	if r == nil || r.c == nil {
		return
	}
	c := r.c
	r.c = nil
	c.releaseShared()
}

// TryUpgrade converts the Ref into the exclusive borrow without letting go of
// the cell in between. It succeeds only when this Ref is the cell's sole
// borrow; on success the Ref is consumed, on failure it stays valid.
func (r *Ref[T]) TryUpgrade() (*Mut[T], bool) {
	if r.c == nil {
		panic("stable: use of released Ref")
	}
	if !r.c.upgrade() {
		return nil, false
	}
	c := r.c
	r.c = nil
	return &Mut[T]{c: c}, true
}

// Valid reports whether the Ref can still be used.
func (r *Ref[T]) Valid() bool {
	return r != nil && r.c != nil
}

// Mut is the exclusive borrow of a stable cell.
type Mut[T any] struct {
	c *core[T]
}

// Get returns the borrowed value.
// Panics if the Mut has been released.
func (m *Mut[T]) Get() T {
	return *m.Ptr()
}

// Set replaces the borrowed value.
func (m *Mut[T]) Set(value T) {
	*m.Ptr() = value
}

// Update calls fn with a pointer to the borrowed value.
func (m *Mut[T]) Update(fn func(*T)) {
	fn(m.Ptr())
}

// Ptr returns a pointer to the borrowed value. It is only valid until the
// Mut is released.
// Panics if the Mut has been released.
func (m *Mut[T]) Ptr() *T {
	if m.c == nil {
		panic("stable: use of released Mut")
	}
	return &m.c.value
}

// Release gives up the borrow, freeing the storage if the owner is closed.
// Release is idempotent and safe on a nil Mut.
func (m *Mut[T]) Release() {
	if m == nil || m.c == nil {
		return
	}
	c := m.c
	m.c = nil
	c.releaseExclusive()
}

// Downgrade converts the Mut into a shared borrow. It cannot fail: no other
// borrow can exist while the Mut is held. The Mut is consumed.
func (m *Mut[T]) Downgrade() *Ref[T] {
	if m.c == nil {
		panic("stable: use of released Mut")
	}
	c := m.c
	m.c = nil
	c.downgrade()
	return &Ref[T]{c: c}
}

// Valid reports whether the Mut can still be used.
func (m *Mut[T]) Valid() bool {
	return m != nil && m.c != nil
}

// Equal reports whether two shared borrows hold equal values.
func Equal[T comparable](a, b *Ref[T]) bool {
	return a.Get() == b.Get()
}
