// Package tree implements a goroutine-safe tree of stable cells addressed by
// generational keys.
//
// # Overview
//
// Every node of a Tree lives in its own stable.Lock and is addressed by a Key
// issued when the node is inserted. Keys are generational: once a node is
// removed its key never resolves again, even after the slot that held it is
// reused for a new node. Handles to node contents are borrows of the node's
// cell, so a node may be read by many goroutines at once or modified by one.
//
// # Structure
//
//	┌──────────────────────── Tree ────────────────────────┐
//	│  sync.RWMutex                                         │
//	│  ├── nodes     slot map   Key → *stable.Lock[T]       │
//	│  ├── parents   map        child Key → parent Key      │
//	│  ├── children  map        parent Key → []child Key    │
//	│  └── roots     slice      keys of parentless nodes    │
//	└───────────────────────────────────────────────────────┘
//	              │ per-node borrow state
//	              ▼
//	   NodeRef (shared)          NodeRefMut (exclusive)
//
// The tree mutex guards the structure only: which keys exist and how they
// are related. Node contents are guarded by each node's borrow state, so a
// structural edit never waits on a reader holding a NodeRef and vice versa.
// Structural edits are applied under the write lock and are observed by other
// goroutines either completely or not at all.
//
// # Handles
//
// TryGet and TryGetMut return handles that must be released, usually with
// defer. A handle left unreleased keeps its node borrowed and will make
// TryGetMut and RemoveRecursive fail for that node. View and Update are
// shortcuts that release for you.
//
//	ref, err := t.TryGet(key)
//	if err != nil {
//		return err
//	}
//	defer ref.Release()
//
// A NodeRef can be promoted to a NodeRefMut when it is the node's only
// borrow, and a NodeRefMut can always be demoted back. Neither conversion
// lets go of the node in between.
//
// # Errors
//
// Operations fail with one of ErrMissing, ErrCantBorrow, ErrCycle or
// ErrNotChild, wrapped with the offending key. Use errors.Is to match them.
//
// # Iteration
//
// Roots, RootsMut, UnorderedIter, UnorderedIterMut and the Children methods
// of the handles return iter.Seq2 sequences over a snapshot of keys taken
// when iteration starts. Each element is borrowed lazily and may fail on its
// own, so the error half of each pair must be checked. Roots are yielded in
// the order they became roots; children in the order they were attached.
package tree
