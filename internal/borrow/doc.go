// Package borrow implements the borrow-state word shared by every stable cell,
// encoding the current access mode, the number of shared borrowers and the
// owner's pending-drop flag in a single 64-bit value.
//
// # Overview
//
// A stable cell has exactly one owner and any number of borrow handles. The
// owner may go away while borrows are still outstanding, so the cell cannot be
// released when the owner closes it. Instead the owner marks the state as
// pending and the last borrow to be released performs the release. All of the
// bookkeeping needed for that hand-off lives in one State value so that the
// goroutine-safe cell can update it with a single compare-and-swap.
//
// # Layout
//
//	 63                                     2   1   0
//	┌────────────────────────────────────────┬───┬───┐
//	│            shared borrow count         │ P │ B │
//	└────────────────────────────────────────┴───┴───┘
//
//	B: borrowed flag, set while any borrow is live
//	P: pending-drop flag, set once the owner has closed the cell
//
// The resulting states are:
//
//	None         0b000
//	Shared(n)    n<<2 | 0b001
//	Exclusive    0b001
//	+pending     state | 0b010
//
// # Transitions
//
//	AcquireShared:    None → Shared(1), Shared(n) → Shared(n+1); fails otherwise
//	AcquireExclusive: None → Exclusive; fails otherwise
//	ReleaseShared:    Shared(n) → Shared(n-1), Shared(1) → None (free if pending)
//	ReleaseExclusive: Exclusive → None (free if pending)
//	Upgrade:          Shared(1) → Exclusive; fails otherwise
//	Downgrade:        Exclusive → Shared(1)
//	MarkPending:      None → free now; any borrowed state → same state + pending
//
// Acquisition never succeeds on a pending state: once the owner has closed the
// cell no new borrow may begin. Release never fails for a correctly paired
// handle; releasing a borrow that the state does not record is a bug in the
// caller and panics.
//
// # Concurrency
//
// State is a plain value with no synchronization of its own. Callers decide
// how the word is stored: the stable package keeps it either in an ordinary
// field (single goroutine) or in an atomic.Uint64 updated through CAS loops.
package borrow
