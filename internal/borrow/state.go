package borrow

import (
	"fmt"
	"strings"
)

const (
	borrowedBit = State(1 << 0)
	pendingBit  = State(1 << 1)
	countShift  = 2
	sharedOne   = State(1 << countShift)
)

// MaxShared is the largest number of simultaneous shared borrows a State can record.
const MaxShared = uint64(1)<<(64-countShift) - 1

// State is a packed borrow state. The zero value is None.
type State uint64

// None returns the state of a cell with no borrows and a live owner.
func None() State {
	return 0
}

// IsNone reports whether there are no borrows and the owner is still live.
func (s State) IsNone() bool {
	return s == 0
}

// IsPending reports whether the owner has closed the cell.
func (s State) IsPending() bool {
	return s&pendingBit != 0
}

// IsBorrowed reports whether any borrow is live.
func (s State) IsBorrowed() bool {
	return s&borrowedBit != 0
}

// IsShared reports whether one or more shared borrows are live.
func (s State) IsShared() bool {
	return s.IsBorrowed() && s.Count() > 0
}

// IsExclusive reports whether the single exclusive borrow is live.
func (s State) IsExclusive() bool {
	return s.IsBorrowed() && s.Count() == 0
}

// Count returns the number of live shared borrows.
func (s State) Count() uint64 {
	return uint64(s >> countShift)
}

// AcquireShared returns the state with one more shared borrow.
// It fails while an exclusive borrow is live, once the owner is pending, or
// when the count would overflow.
func (s State) AcquireShared() (State, bool) {
	switch {
	case s.IsNone():
		return sharedOne | borrowedBit, true
	case s.IsPending(), !s.IsShared():
		return s, false
	case s.Count() == MaxShared:
		return s, false
	default:
		return s + sharedOne, true
	}
}

// AcquireExclusive returns the exclusively borrowed state.
// Only a None state can be borrowed exclusively.
func (s State) AcquireExclusive() (State, bool) {
	if !s.IsNone() {
		return s, false
	}
	return borrowedBit, true
}

// ReleaseShared returns the state with one shared borrow fewer, and whether
// the caller released the last borrow of a pending cell and must free it.
func (s State) ReleaseShared() (next State, free bool) {
	if !s.IsShared() {
		panic(fmt.Sprintf("borrow: shared release on %v", s))
	}
	if s.Count() > 1 {
		return s - sharedOne, false
	}
	return s & pendingBit, s.IsPending()
}

// ReleaseExclusive returns the state without the exclusive borrow, and whether
// the caller must free the cell.
func (s State) ReleaseExclusive() (next State, free bool) {
	if !s.IsExclusive() {
		panic(fmt.Sprintf("borrow: exclusive release on %v", s))
	}
	return s & pendingBit, s.IsPending()
}

// Upgrade turns the only shared borrow into the exclusive borrow. It fails if
// the state is not Shared(1). The pending flag is kept.
func (s State) Upgrade() (State, bool) {
	if !s.IsShared() || s.Count() != 1 {
		return s, false
	}
	return s - sharedOne, true
}

// Downgrade turns the exclusive borrow into a single shared borrow. It never
// conflicts; calling it without the exclusive borrow is a bug and panics.
func (s State) Downgrade() State {
	if !s.IsExclusive() {
		panic(fmt.Sprintf("borrow: downgrade on %v", s))
	}
	return s + sharedOne
}

// MarkPending records that the owner has closed the cell. The pending flag is
// always set, so no borrow can begin afterwards. When no borrow is live the
// cell must be freed right away and free is true; otherwise the last borrow
// to release frees it.
func (s State) MarkPending() (next State, free bool) {
	if s.IsPending() {
		panic("borrow: owner closed twice")
	}
	return s | pendingBit, s.IsNone()
}

func (s State) String() string {
	var b strings.Builder
	switch {
	case !s.IsBorrowed():
		b.WriteString("none")
	case s.IsExclusive():
		b.WriteString("exclusive")
	default:
		fmt.Fprintf(&b, "shared(%d)", s.Count())
	}
	if s.IsPending() {
		b.WriteString("+pending")
	}
	return b.String()
}
