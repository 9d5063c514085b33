package tree

import (
	"iter"
	"sync/atomic"

	"github.com/dreamware/stabletree/stable"
)

// node holds what NodeRef and NodeRefMut have in common. A live handle pins
// its node: RemoveRecursive cannot remove a borrowed node, so the key stays
// valid until the handle is released.
type node[T any] struct {
	tree *Tree[T]
	key  Key
}

// Key returns the key of the borrowed node
func (n node[T]) Key() Key {
	return n.key
}

// Tree returns the tree the node belongs to
func (n node[T]) Tree() *Tree[T] {
	return n.tree
}

// Parent takes a shared borrow of the node's parent. It reports false with a
// nil error when the node is a root.
func (n node[T]) Parent() (*NodeRef[T], bool, error) {
	p, ok := n.tree.ParentKeyOf(n.key)
	if !ok {
		return nil, false, nil
	}
	ref, err := n.tree.TryGet(p)
	if err != nil {
		return nil, false, err
	}
	return ref, true, nil
}

// ParentMut takes the exclusive borrow of the node's parent. It reports false
// with a nil error when the node is a root.
func (n node[T]) ParentMut() (*NodeRefMut[T], bool, error) {
	p, ok := n.tree.ParentKeyOf(n.key)
	if !ok {
		return nil, false, nil
	}
	mut, err := n.tree.TryGetMut(p)
	if err != nil {
		return nil, false, err
	}
	return mut, true, nil
}

// Children returns a sequence of shared borrows of the node's children
func (n node[T]) Children() iter.Seq2[*NodeRef[T], error] {
	return borrowEach(n.childKeys, n.tree.TryGet)
}

// ChildrenMut returns a sequence of exclusive borrows of the node's children
func (n node[T]) ChildrenMut() iter.Seq2[*NodeRefMut[T], error] {
	return borrowEach(n.childKeys, n.tree.TryGetMut)
}

func (n node[T]) childKeys() []Key {
	return n.tree.ChildKeysOf(n.key)
}

// NodeRef is a shared borrow of a node
type NodeRef[T any] struct {
	node[T]
	ref *stable.Ref[T]
}

// Get returns the node's value.
// Panics if the NodeRef has been released.
func (r *NodeRef[T]) Get() T {
	return r.ref.Get()
}

// Release gives up the borrow. Release is idempotent and safe on nil.
func (r *NodeRef[T]) Release() {
	if r == nil {
		return
	}
	r.ref.Release()
}

// Valid reports whether the NodeRef can still be used
func (r *NodeRef[T]) Valid() bool {
	return r != nil && r.ref.Valid()
}

// TryPromote converts the NodeRef into the exclusive borrow of the same node.
// It fails with ErrCantBorrow if the node has any other borrow, in which case
// the NodeRef stays valid. On success the NodeRef is consumed.
func (r *NodeRef[T]) TryPromote() (*NodeRefMut[T], error) {
	mut, ok := r.ref.TryUpgrade()
	if !ok {
		return nil, r.tree.conflict(r.key)
	}
	atomic.AddUint64(&r.tree.ops.GetMuts, 1)
	return &NodeRefMut[T]{node: r.node, mut: mut}, nil
}

// Promote is TryPromote that panics when the node has other borrows
func (r *NodeRef[T]) Promote() *NodeRefMut[T] {
	mut, err := r.TryPromote()
	if err != nil {
		panic(err)
	}
	return mut
}

// NodeRefMut is the exclusive borrow of a node
type NodeRefMut[T any] struct {
	node[T]
	mut *stable.Mut[T]
}

// Get returns the node's value.
// Panics if the NodeRefMut has been released.
func (m *NodeRefMut[T]) Get() T {
	return m.mut.Get()
}

// Set replaces the node's value
func (m *NodeRefMut[T]) Set(value T) {
	m.mut.Set(value)
}

// Ptr returns a pointer to the node's value, valid until the handle is
// released or demoted.
func (m *NodeRefMut[T]) Ptr() *T {
	return m.mut.Ptr()
}

// Update calls fn with a pointer to the node's value
func (m *NodeRefMut[T]) Update(fn func(*T)) {
	m.mut.Update(fn)
}

// Release gives up the borrow. Release is idempotent and safe on nil.
func (m *NodeRefMut[T]) Release() {
	if m == nil {
		return
	}
	m.mut.Release()
}

// Valid reports whether the NodeRefMut can still be used
func (m *NodeRefMut[T]) Valid() bool {
	return m != nil && m.mut.Valid()
}

// Demote converts the NodeRefMut into a shared borrow of the same node. It
// never fails and the node stays borrowed throughout. The NodeRefMut is
// consumed.
func (m *NodeRefMut[T]) Demote() *NodeRef[T] {
	return &NodeRef[T]{node: m.node, ref: m.mut.Downgrade()}
}

// AddChild inserts value as the last child of this node
func (m *NodeRefMut[T]) AddChild(value T) (Key, error) {
	return m.tree.AddChild(value, m.key)
}

// SetParent moves this node under parent
func (m *NodeRefMut[T]) SetParent(parent Key) error {
	return m.tree.SetChild(parent, m.key)
}

// AdoptChild moves child under this node
func (m *NodeRefMut[T]) AdoptChild(child Key) error {
	return m.tree.SetChild(m.key, child)
}

// RemoveChild detaches child from this node, making it a root
func (m *NodeRefMut[T]) RemoveChild(child Key) error {
	return m.tree.RemoveChild(m.key, child)
}
