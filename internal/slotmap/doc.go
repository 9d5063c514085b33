// Package slotmap provides the generational slot arena that backs a tree's
// node storage, handing out keys that stay valid until their own entry is
// removed and are never accepted again afterwards.
//
// # Overview
//
// Entries live in a growable slice of slots. A key names a slot index plus the
// version the slot had when the entry was inserted. Removing an entry bumps
// the slot's version, so every key issued for the old entry stops matching even
// after the slot is reused for a new entry.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                 SlotMap[T]                   │
//	├──────────────────────────────────────────────┤
//	│  slots:  [ v1:A ][ v2:-- ][ v3:C ][ v4:-- ]  │
//	│                     │                 │      │
//	│  free:   head ──────┘ ◄───────────────┘      │
//	│          (vacant slots chained via next)     │
//	├──────────────────────────────────────────────┤
//	│  Key{Index: 2, Version: 3} → C               │
//	│  Key{Index: 1, Version: 1} → stale (now v2)  │
//	└──────────────────────────────────────────────┘
//
// # Versions
//
// A slot's version is odd while it holds an entry and even while it is vacant.
// Fresh slots start at version 1, so the zero Key never matches anything. A
// slot whose version would wrap around is retired: it is left vacant and never
// reused, which keeps the "stale keys are rejected forever" guarantee at the
// cost of one slot per 2^31 reuses.
//
// # Operations
//
//   - Insert(value) - Store a value in a vacant or new slot, returning its key
//   - Get(key) - Retrieve a value, false if the key is stale or unknown
//   - Contains(key) - Report whether a key is live
//   - Remove(key) - Delete an entry, returning the removed value
//   - Keys() - List the live keys (order not guaranteed)
//   - Stats() - Report occupancy statistics
//
// All operations are O(1) except Keys, which is O(slots).
//
// # Concurrency
//
// SlotMap does no locking of its own. The tree package keeps it behind the same
// RWMutex that guards the parent and child indices, so that node storage and
// relations always change together.
//
// # Usage Example
//
//	var m slotmap.SlotMap[string]
//	k := m.Insert("alpha")
//	v, ok := m.Get(k)      // "alpha", true
//	m.Remove(k)
//	_, ok = m.Get(k)       // false, even after the slot is reused
package slotmap
