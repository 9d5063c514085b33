// Package stable provides single-owner cells whose borrows may outlive the
// owner handle.
//
// A stable cell sits between a reference-counted pointer and a runtime-checked
// read/write guard. There is exactly one owner, obtained from New or NewLock,
// and any number of borrow handles obtained from TryBorrow (shared, read-only)
// or TryBorrowMut (exclusive, read-write). Access is checked at run time:
// shared borrows coexist with each other, an exclusive borrow excludes
// everything else, and a refused borrow is reported by a false result rather
// than by blocking or panicking.
//
// # Ownership
//
// Closing the owner does not invalidate live borrows. The owner marks the cell
// as pending and the last borrow handle to be released frees the storage:
//
//	owner := stable.New(42)
//	ref, _ := owner.TryBorrow()
//	owner.Close()           // storage still live, ref still valid
//	fmt.Println(ref.Get())  // 42
//	ref.Release()           // storage freed here
//
// Freeing zeroes the stored value and runs the WithOnFree hook, exactly once,
// from whichever handle performs the final release.
//
// # Flavors
//
// Cell keeps its borrow state in an ordinary field and must stay on one
// goroutine. Lock keeps the same state in an atomic word updated with
// compare-and-swap loops, so borrows may be acquired and released from any
// goroutine; a successful acquisition observes every write made under the
// previously released borrow. Both flavors hand out the same Ref and Mut types.
//
// # Converting
//
// Ref.TryUpgrade turns the sole shared borrow into the exclusive one and
// Mut.Downgrade turns the exclusive borrow into a shared one. The cell stays
// borrowed across the conversion, so no other goroutine can take it in
// between.
//
// # Releasing
//
// Go has no destructors. Every handle must be released explicitly, normally
// with defer straight after a successful acquisition, or through the View and
// Modify helpers which do it for you. Release is idempotent; using a handle
// after releasing it panics.
package stable
