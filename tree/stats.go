package tree

import "sync/atomic"

// Stats is a point-in-time view of a Tree
type Stats struct {
	Ops       OperationStats // Operation counts since the tree was created
	Nodes     int            // Number of live nodes
	Roots     int            // Number of root nodes
	Slots     int            // Number of allocated node slots
	FreeSlots int            // Number of slots waiting for reuse
	Retired   int            // Number of slots retired after version exhaustion
}

// OperationStats tracks operation counts
type OperationStats struct {
	Gets      uint64 // Shared borrows granted
	GetMuts   uint64 // Exclusive borrows granted
	Inserts   uint64 // Nodes added
	Removes   uint64 // Nodes removed
	Moves     uint64 // Parent changes through SetChild or RemoveChild
	Missing   uint64 // Operations that failed with ErrMissing
	Conflicts uint64 // Operations that failed with ErrCantBorrow
}

func (s *OperationStats) snapshot() OperationStats {
	return OperationStats{
		Gets:      atomic.LoadUint64(&s.Gets),
		GetMuts:   atomic.LoadUint64(&s.GetMuts),
		Inserts:   atomic.LoadUint64(&s.Inserts),
		Removes:   atomic.LoadUint64(&s.Removes),
		Moves:     atomic.LoadUint64(&s.Moves),
		Missing:   atomic.LoadUint64(&s.Missing),
		Conflicts: atomic.LoadUint64(&s.Conflicts),
	}
}

// Stats returns current tree statistics
func (t *Tree[T]) Stats() Stats {
	t.mu.RLock()
	storage := t.nodes.Stats()
	roots := len(t.roots)
	t.mu.RUnlock()

	return Stats{
		Ops:       t.ops.snapshot(),
		Nodes:     storage.Live,
		Roots:     roots,
		Slots:     storage.Slots,
		FreeSlots: storage.Free,
		Retired:   storage.Retired,
	}
}
