package slotmap

import (
	"fmt"
	"math"
)

// Key identifies an entry in a SlotMap.
// The zero Key never refers to an entry.
type Key struct {
	Index   uint32 // Slot position
	Version uint32 // Slot version at insertion, always odd for a valid key
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) String() string {
	return fmt.Sprintf("%dv%d", k.Index, k.Version)
}

// Stats contains statistics about a SlotMap
type Stats struct {
	Live    int // Number of stored entries
	Slots   int // Number of allocated slots
	Free    int // Number of vacant slots available for reuse
	Retired int // Number of slots retired after version exhaustion
}

type slot[T any] struct {
	value    T
	version  uint32
	nextFree uint32 // 1-based index of the next vacant slot, 0 ends the list
}

func (s *slot[T]) occupied() bool {
	return s.version%2 == 1
}

// SlotMap stores values under generational keys.
// The zero value is an empty, ready to use SlotMap.
type SlotMap[T any] struct {
	slots    []slot[T]
	freeHead uint32 // 1-based so the zero value needs no constructor
	live     int
	free     int
	retired  int
}

// New creates a SlotMap with room for capacity entries before growing.
func New[T any](capacity int) *SlotMap[T] {
	return &SlotMap[T]{slots: make([]slot[T], 0, capacity)}
}

// Insert stores value and returns its key
func (m *SlotMap[T]) Insert(value T) Key {
	m.live++
	if m.freeHead != 0 {
		idx := m.freeHead - 1
		s := &m.slots[idx]
		if s.occupied() {
			panic(fmt.Sprintf("slotmap: free list points at occupied slot %d", idx))
		}
		m.freeHead = s.nextFree
		m.free--
		s.nextFree = 0
		s.version++
		s.value = value
		return Key{Index: idx, Version: s.version}
	}

	if uint64(len(m.slots)) >= math.MaxUint32 {
		panic("slotmap: capacity exhausted")
	}
	idx := uint32(len(m.slots))
	m.slots = append(m.slots, slot[T]{value: value, version: 1})
	return Key{Index: idx, Version: 1}
}

func (m *SlotMap[T]) lookup(k Key) *slot[T] {
	if uint64(k.Index) >= uint64(len(m.slots)) {
		return nil
	}
	s := &m.slots[k.Index]
	if !s.occupied() || s.version != k.Version {
		return nil
	}
	return s
}

// Get retrieves the value stored under k
// Returns false if k is stale or was never issued
func (m *SlotMap[T]) Get(k Key) (T, bool) {
	s := m.lookup(k)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Contains reports whether k refers to a live entry
func (m *SlotMap[T]) Contains(k Key) bool {
	return m.lookup(k) != nil
}

// Remove deletes the entry stored under k and returns its value
// Returns false if k is stale (idempotent)
func (m *SlotMap[T]) Remove(k Key) (T, bool) {
	var zero T
	s := m.lookup(k)
	if s == nil {
		return zero, false
	}

	value := s.value
	s.value = zero
	m.live--

	if s.version == math.MaxUint32 {
		// The next bump would wrap and later re-issue old versions.
		s.version = 0
		m.retired++
		return value, true
	}

	s.version++
	s.nextFree = m.freeHead
	m.freeHead = k.Index + 1
	m.free++
	return value, true
}

// Keys returns the keys of all live entries
// Order is not guaranteed
func (m *SlotMap[T]) Keys() []Key {
	keys := make([]Key, 0, m.live)
	for i := range m.slots {
		s := &m.slots[i]
		if s.occupied() {
			keys = append(keys, Key{Index: uint32(i), Version: s.version})
		}
	}
	return keys
}

// Each calls fn for every live entry until fn returns false
func (m *SlotMap[T]) Each(fn func(Key, T) bool) {
	for i := range m.slots {
		s := &m.slots[i]
		if !s.occupied() {
			continue
		}
		if !fn(Key{Index: uint32(i), Version: s.version}, s.value) {
			return
		}
	}
}

// Len returns the number of live entries
func (m *SlotMap[T]) Len() int {
	return m.live
}

// Stats returns occupancy statistics
func (m *SlotMap[T]) Stats() Stats {
	return Stats{
		Live:    m.live,
		Slots:   len(m.slots),
		Free:    m.free,
		Retired: m.retired,
	}
}
