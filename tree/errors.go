package tree

import "errors"

var (
	// ErrMissing is returned when a key does not refer to a live node.
	ErrMissing = errors.New("tree: missing node")

	// ErrCantBorrow is returned when a node is already borrowed in a way
	// that conflicts with the requested access.
	ErrCantBorrow = errors.New("tree: can't borrow node")

	// ErrCycle is returned when an edit would make a node its own ancestor.
	ErrCycle = errors.New("tree: edit would create a cycle")

	// ErrNotChild is returned when a node is not a child of the given parent.
	ErrNotChild = errors.New("tree: not a child of parent")
)
