package tree

import (
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/dreamware/stabletree/internal/slotmap"
	"github.com/dreamware/stabletree/stable"
)

// Key identifies a node. Keys are never reused: once a node is removed its
// Key stays invalid for the lifetime of the Tree. The zero Key never refers
// to a node.
type Key = slotmap.Key

// Tree is a goroutine-safe tree of stable cells.
// The zero value is not usable; create trees with New.
type Tree[T any] struct {
	mu       sync.RWMutex // Protects nodes, parents, children and roots
	nodes    *slotmap.SlotMap[*stable.Lock[T]]
	parents  map[Key]Key   // Child → parent, absent for roots
	children map[Key][]Key // Parent → children in attach order, absent when empty
	roots    []Key         // Parentless nodes in the order they became roots
	log      *slog.Logger
	ops      OperationStats
}

// New creates an empty tree
func New[T any](opts ...Option) *Tree[T] {
	o := buildOptions(opts)
	return &Tree[T]{
		nodes:    slotmap.New[*stable.Lock[T]](o.capacity),
		parents:  make(map[Key]Key),
		children: make(map[Key][]Key),
		log:      o.logger,
	}
}

func (t *Tree[T]) missing(key Key) error {
	atomic.AddUint64(&t.ops.Missing, 1)
	return errors.Wrapf(ErrMissing, "node %v", key)
}

func (t *Tree[T]) conflict(key Key) error {
	atomic.AddUint64(&t.ops.Conflicts, 1)
	return errors.Wrapf(ErrCantBorrow, "node %v", key)
}

// Len returns the number of nodes in the tree
func (t *Tree[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes.Len()
}

// IsEmpty reports whether the tree has no nodes
func (t *Tree[T]) IsEmpty() bool {
	return t.Len() == 0
}

// Contains reports whether key refers to a live node
func (t *Tree[T]) Contains(key Key) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes.Contains(key)
}

// AddRoot inserts value as a new root and returns its key
func (t *Tree[T]) AddRoot(value T) Key {
	t.mu.Lock()
	key := t.nodes.Insert(stable.NewLock(value))
	t.roots = append(t.roots, key)
	t.mu.Unlock()

	atomic.AddUint64(&t.ops.Inserts, 1)
	t.log.Debug("added root", "key", key)
	return key
}

// AddChild inserts value as the last child of parent and returns its key.
// Nothing is inserted if parent is missing.
func (t *Tree[T]) AddChild(value T, parent Key) (Key, error) {
	t.mu.Lock()
	if !t.nodes.Contains(parent) {
		t.mu.Unlock()
		return Key{}, t.missing(parent)
	}
	key := t.nodes.Insert(stable.NewLock(value))
	t.link(key, parent)
	t.mu.Unlock()

	atomic.AddUint64(&t.ops.Inserts, 1)
	t.log.Debug("added child", "key", key, "parent", parent)
	return key, nil
}

// SetChild makes child the last child of parent, detaching it from its
// previous parent or from the roots. Setting a node's current parent again
// is a no-op. Fails with ErrCycle if parent is child or one of its
// descendants.
func (t *Tree[T]) SetChild(parent, child Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.nodes.Contains(parent) {
		return t.missing(parent)
	}
	if !t.nodes.Contains(child) {
		return t.missing(child)
	}
	if cur, ok := t.parents[child]; ok && cur == parent {
		return nil
	}
	if t.inSubtree(child, parent) {
		return errors.Wrapf(ErrCycle, "node %v under %v", child, parent)
	}

	t.unlink(child)
	t.link(child, parent)

	atomic.AddUint64(&t.ops.Moves, 1)
	t.log.Debug("moved node", "key", child, "parent", parent)
	return nil
}

// RemoveChild detaches child from parent. The child keeps its own subtree
// and becomes the last root.
func (t *Tree[T]) RemoveChild(parent, child Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.nodes.Contains(parent) {
		return t.missing(parent)
	}
	if !t.nodes.Contains(child) {
		return t.missing(child)
	}
	if cur, ok := t.parents[child]; !ok || cur != parent {
		return errors.Wrapf(ErrNotChild, "node %v, parent %v", child, parent)
	}

	t.unlink(child)
	t.roots = append(t.roots, child)

	atomic.AddUint64(&t.ops.Moves, 1)
	t.log.Debug("detached node", "key", child, "parent", parent)
	return nil
}

// RemoveRecursive removes key and all of its descendants. Every node of the
// subtree must be free of borrows: if any is borrowed the call fails with
// ErrCantBorrow and the tree is left unchanged.
func (t *Tree[T]) RemoveRecursive(key Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.nodes.Contains(key) {
		return t.missing(key)
	}

	subtree := t.collect(key)
	held := make([]*stable.Mut[T], 0, len(subtree))
	for _, k := range subtree {
		cell, _ := t.nodes.Get(k)
		mut, ok := cell.TryBorrowMut()
		if !ok {
			for _, m := range held {
				m.Release()
			}
			t.log.Warn("refused recursive removal", "key", key, "borrowed", k)
			atomic.AddUint64(&t.ops.Conflicts, 1)
			return errors.Wrapf(ErrCantBorrow, "node %v in subtree of %v", k, key)
		}
		held = append(held, mut)
	}

	t.unlink(key)
	for i, k := range subtree {
		cell, _ := t.nodes.Remove(k)
		delete(t.parents, k)
		delete(t.children, k)
		cell.Close()
		held[i].Release()
	}

	atomic.AddUint64(&t.ops.Removes, uint64(len(subtree)))
	t.log.Debug("removed subtree", "key", key, "nodes", len(subtree))
	return nil
}

// TryGet takes a shared borrow of the node under key
func (t *Tree[T]) TryGet(key Key) (*NodeRef[T], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cell, ok := t.nodes.Get(key)
	if !ok {
		return nil, t.missing(key)
	}
	ref, ok := cell.TryBorrow()
	if !ok {
		return nil, t.conflict(key)
	}
	atomic.AddUint64(&t.ops.Gets, 1)
	return &NodeRef[T]{node: node[T]{tree: t, key: key}, ref: ref}, nil
}

// TryGetMut takes the exclusive borrow of the node under key
func (t *Tree[T]) TryGetMut(key Key) (*NodeRefMut[T], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cell, ok := t.nodes.Get(key)
	if !ok {
		return nil, t.missing(key)
	}
	mut, ok := cell.TryBorrowMut()
	if !ok {
		return nil, t.conflict(key)
	}
	atomic.AddUint64(&t.ops.GetMuts, 1)
	return &NodeRefMut[T]{node: node[T]{tree: t, key: key}, mut: mut}, nil
}

// View calls fn with the value of the node under key, holding a shared borrow
// for the duration of the call.
func (t *Tree[T]) View(key Key, fn func(T)) error {
	ref, err := t.TryGet(key)
	if err != nil {
		return err
	}
	defer ref.Release()
	fn(ref.Get())
	return nil
}

// Update calls fn with a pointer to the value of the node under key, holding
// the exclusive borrow for the duration of the call. The pointer must not
// escape fn.
func (t *Tree[T]) Update(key Key, fn func(*T)) error {
	mut, err := t.TryGetMut(key)
	if err != nil {
		return err
	}
	defer mut.Release()
	fn(mut.Ptr())
	return nil
}

// Roots returns a sequence of shared borrows of the root nodes
func (t *Tree[T]) Roots() iter.Seq2[*NodeRef[T], error] {
	return borrowEach(t.RootKeys, t.TryGet)
}

// RootsMut returns a sequence of exclusive borrows of the root nodes
func (t *Tree[T]) RootsMut() iter.Seq2[*NodeRefMut[T], error] {
	return borrowEach(t.RootKeys, t.TryGetMut)
}

// UnorderedIter returns a sequence of shared borrows of every node
// Order is not guaranteed
func (t *Tree[T]) UnorderedIter() iter.Seq2[*NodeRef[T], error] {
	return borrowEach(t.UnorderedKeys, t.TryGet)
}

// UnorderedIterMut returns a sequence of exclusive borrows of every node
// Order is not guaranteed
func (t *Tree[T]) UnorderedIterMut() iter.Seq2[*NodeRefMut[T], error] {
	return borrowEach(t.UnorderedKeys, t.TryGetMut)
}

// RootKeys returns the keys of the root nodes
func (t *Tree[T]) RootKeys() []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.roots)
}

// UnorderedKeys returns the keys of every node
// Order is not guaranteed
func (t *Tree[T]) UnorderedKeys() []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes.Keys()
}

// ParentKeyOf returns the parent of key. It reports false for roots and
// missing nodes.
func (t *Tree[T]) ParentKeyOf(key Key) (Key, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.parents[key]
	return p, ok
}

// ChildKeysOf returns the children of key in attach order
func (t *Tree[T]) ChildKeysOf(key Key) []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.children[key])
}

// borrowEach yields get(k) for each key in a snapshot taken when iteration
// starts.
func borrowEach[H any](keys func() []Key, get func(Key) (H, error)) iter.Seq2[H, error] {
	return func(yield func(H, error) bool) {
		for _, k := range keys() {
			if !yield(get(k)) {
				return
			}
		}
	}
}

// link records child as the last child of parent. Callers hold t.mu.
func (t *Tree[T]) link(child, parent Key) {
	t.parents[child] = parent
	t.children[parent] = append(t.children[parent], child)
}

// unlink detaches key from its parent or from the roots. Callers hold t.mu.
func (t *Tree[T]) unlink(key Key) {
	is := func(k Key) bool { return k == key }

	parent, ok := t.parents[key]
	if !ok {
		t.roots = slices.DeleteFunc(t.roots, is)
		return
	}
	delete(t.parents, key)
	if kids := slices.DeleteFunc(t.children[parent], is); len(kids) > 0 {
		t.children[parent] = kids
	} else {
		delete(t.children, parent)
	}
}

// inSubtree reports whether key is root or one of its descendants.
// Callers hold t.mu.
func (t *Tree[T]) inSubtree(root, key Key) bool {
	for {
		if key == root {
			return true
		}
		p, ok := t.parents[key]
		if !ok {
			return false
		}
		key = p
	}
}

// collect returns key and its descendants, parents before children.
// Callers hold t.mu.
func (t *Tree[T]) collect(key Key) []Key {
	var out []Key
	stack := []Key{key}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, k)
		stack = append(stack, t.children[k]...)
	}
	return out
}
