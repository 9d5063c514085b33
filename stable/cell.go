package stable

type config[T any] struct {
	onFree func(T)
}

// Option configures a cell at construction.
type Option[T any] func(*config[T])

// WithOnFree registers fn to run with the stored value when the cell's
// storage is released. It runs exactly once, on the goroutine that performs
// the final release.
func WithOnFree[T any](fn func(T)) Option[T] {
	return func(c *config[T]) {
		c.onFree = fn
	}
}

func buildConfig[T any](opts []Option[T]) config[T] {
	var cfg config[T]
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// owner holds the methods common to both cell flavors.
type owner[T any] struct {
	c   *core[T]
	cfg config[T]
}

// TryBorrow attempts to take a shared borrow. It reports false if the cell is
// exclusively borrowed or has been closed. The returned Ref may outlive the
// owner.
func (o *owner[T]) TryBorrow() (*Ref[T], bool) {
	if !o.c.acquireShared() {
		return nil, false
	}
	return &Ref[T]{c: o.c}, true
}

// TryBorrowMut attempts to take the exclusive borrow. It reports false if any
// other borrow is live or the cell has been closed.
func (o *owner[T]) TryBorrowMut() (*Mut[T], bool) {
	if !o.c.acquireExclusive() {
		return nil, false
	}
	return &Mut[T]{c: o.c}, true
}

// Close gives up ownership. Storage is freed now if nothing is borrowed,
// otherwise when the last borrow is released. Close is idempotent.
func (o *owner[T]) Close() {
	o.c.close()
}

// Borrowed reports whether any borrow is currently live.
func (o *owner[T]) Borrowed() bool {
	return o.c.state.load().IsBorrowed()
}

// snapshot copies the value under a shared borrow.
func (o *owner[T]) snapshot() (T, bool) {
	ref, ok := o.TryBorrow()
	if !ok {
		var zero T
		return zero, false
	}
	defer ref.Release()
	return ref.Get(), true
}

// Cell is a stable cell for use from a single goroutine.
type Cell[T any] struct {
	owner[T]
}

// New returns a Cell owning value.
func New[T any](value T, opts ...Option[T]) *Cell[T] {
	cfg := buildConfig(opts)
	return &Cell[T]{owner[T]{c: newCore(value, &plainWord{}, cfg), cfg: cfg}}
}

// TryClone returns a new Cell holding a copy of the value, with the same
// options. It fails if the value is exclusively borrowed.
func (c *Cell[T]) TryClone() (*Cell[T], bool) {
	v, ok := c.snapshot()
	if !ok {
		return nil, false
	}
	return &Cell[T]{owner[T]{c: newCore(v, &plainWord{}, c.cfg), cfg: c.cfg}}, true
}

// Clone is TryClone that panics when the value cannot be borrowed.
func (c *Cell[T]) Clone() *Cell[T] {
	out, ok := c.TryClone()
	if !ok {
		panic("stable: couldn't borrow value to clone")
	}
	return out
}

// Lock is a stable cell whose borrows may be taken and released from any
// goroutine.
type Lock[T any] struct {
	owner[T]
}

// NewLock returns a Lock owning value.
func NewLock[T any](value T, opts ...Option[T]) *Lock[T] {
	cfg := buildConfig(opts)
	return &Lock[T]{owner[T]{c: newCore(value, &atomicWord{}, cfg), cfg: cfg}}
}

// TryClone returns a new Lock holding a copy of the value, with the same
// options. It fails if the value is exclusively borrowed.
func (l *Lock[T]) TryClone() (*Lock[T], bool) {
	v, ok := l.snapshot()
	if !ok {
		return nil, false
	}
	return &Lock[T]{owner[T]{c: newCore(v, &atomicWord{}, l.cfg), cfg: l.cfg}}, true
}

// Clone is TryClone that panics when the value cannot be borrowed.
func (l *Lock[T]) Clone() *Lock[T] {
	out, ok := l.TryClone()
	if !ok {
		panic("stable: couldn't borrow value to clone")
	}
	return out
}

// Borrower is satisfied by *Cell and *Lock.
type Borrower[T any] interface {
	TryBorrow() (*Ref[T], bool)
	TryBorrowMut() (*Mut[T], bool)
}

// View runs fn with the value under a shared borrow and reports whether the
// borrow was granted.
func View[T any](b Borrower[T], fn func(T)) bool {
	ref, ok := b.TryBorrow()
	if !ok {
		return false
	}
	defer ref.Release()
	fn(ref.Get())
	return true
}

// Modify runs fn with a pointer to the value under the exclusive borrow and
// reports whether the borrow was granted. The pointer must not escape fn.
func Modify[T any](b Borrower[T], fn func(*T)) bool {
	mut, ok := b.TryBorrowMut()
	if !ok {
		return false
	}
	defer mut.Release()
	fn(mut.Ptr())
	return true
}
