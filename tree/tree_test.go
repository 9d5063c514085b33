package tree

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkRelations verifies that the relation maps agree with each other and
// with the set of live nodes.
func checkRelations[T any](t *testing.T, tr *Tree[T]) {
	t.Helper()
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	for child, parent := range tr.parents {
		assert.True(t, tr.nodes.Contains(child), "parent entry for missing node %v", child)
		assert.True(t, tr.nodes.Contains(parent), "missing parent %v of %v", parent, child)
		assert.Equal(t, 1, count(tr.children[parent], child), "%v listed under %v", child, parent)
	}
	for parent, kids := range tr.children {
		assert.NotEmpty(t, kids, "empty child list kept for %v", parent)
		for _, k := range kids {
			assert.Equal(t, parent, tr.parents[k], "child list of %v has stray %v", parent, k)
		}
	}

	roots := map[Key]bool{}
	for _, r := range tr.roots {
		assert.False(t, roots[r], "duplicate root %v", r)
		roots[r] = true
	}
	for _, k := range tr.nodes.Keys() {
		_, hasParent := tr.parents[k]
		assert.Equal(t, !hasParent, roots[k], "root status of %v", k)
	}
	assert.Len(t, roots, len(tr.roots))
}

func count(keys []Key, k Key) int {
	n := 0
	for _, x := range keys {
		if x == k {
			n++
		}
	}
	return n
}

func value[T any](t *testing.T, tr *Tree[T], key Key) T {
	t.Helper()
	ref, err := tr.TryGet(key)
	require.NoError(t, err)
	defer ref.Release()
	return ref.Get()
}

func TestAddRoot(t *testing.T) {
	tr := New[int]()
	assert.True(t, tr.IsEmpty())

	root := tr.AddRoot(5)
	assert.Equal(t, 1, tr.Len())
	assert.False(t, tr.IsEmpty())
	assert.True(t, tr.Contains(root))

	n := 0
	for ref, err := range tr.Roots() {
		require.NoError(t, err)
		assert.Equal(t, 5, ref.Get())
		ref.Release()
		n++
	}
	assert.Equal(t, 1, n)
	checkRelations(t, tr)
}

func TestAddChild(t *testing.T) {
	tr := New[int]()
	root := tr.AddRoot(0)
	a, err := tr.AddChild(1, root)
	require.NoError(t, err)
	b, err := tr.AddChild(2, root)
	require.NoError(t, err)

	assert.Equal(t, 3, tr.Len())

	kids := tr.ChildKeysOf(root)
	require.Len(t, kids, 2)
	got := map[int]bool{}
	for _, k := range kids {
		got[value(t, tr, k)] = true
	}
	assert.Equal(t, map[int]bool{1: true, 2: true}, got)
	assert.Equal(t, []Key{a, b}, kids, "children keep attach order")

	p, ok := tr.ParentKeyOf(a)
	assert.True(t, ok)
	assert.Equal(t, root, p)
	_, ok = tr.ParentKeyOf(root)
	assert.False(t, ok)

	t.Run("missing parent inserts nothing", func(t *testing.T) {
		tr.RemoveRecursive(b)
		_, err := tr.AddChild(9, b)
		assert.ErrorIs(t, err, ErrMissing)
		assert.Equal(t, 2, tr.Len())
	})
	checkRelations(t, tr)
}

func TestSetChild(t *testing.T) {
	t.Run("round trip and idempotence", func(t *testing.T) {
		tr := New[string]()
		p := tr.AddRoot("p")
		c := tr.AddRoot("c")

		require.NoError(t, tr.SetChild(p, c))
		require.NoError(t, tr.SetChild(p, c))

		parent, ok := tr.ParentKeyOf(c)
		require.True(t, ok)
		assert.Equal(t, p, parent)
		assert.Equal(t, []Key{c}, tr.ChildKeysOf(p))
		assert.Equal(t, []Key{p}, tr.RootKeys())
		checkRelations(t, tr)
	})

	t.Run("moves between parents", func(t *testing.T) {
		tr := New[string]()
		a := tr.AddRoot("a")
		b := tr.AddRoot("b")
		c, _ := tr.AddChild("c", a)
		d, _ := tr.AddChild("d", c)

		require.NoError(t, tr.SetChild(b, c))
		assert.Empty(t, tr.ChildKeysOf(a))
		assert.Equal(t, []Key{c}, tr.ChildKeysOf(b))
		assert.Equal(t, []Key{d}, tr.ChildKeysOf(c), "subtree moves along")
		checkRelations(t, tr)
	})

	t.Run("rejects cycles", func(t *testing.T) {
		tr := New[string]()
		a := tr.AddRoot("a")
		b, _ := tr.AddChild("b", a)
		c, _ := tr.AddChild("c", b)

		assert.ErrorIs(t, tr.SetChild(c, a), ErrCycle)
		assert.ErrorIs(t, tr.SetChild(b, b), ErrCycle)
		assert.Equal(t, []Key{a}, tr.RootKeys())
		checkRelations(t, tr)
	})

	t.Run("missing nodes", func(t *testing.T) {
		tr := New[string]()
		a := tr.AddRoot("a")
		gone := tr.AddRoot("gone")
		require.NoError(t, tr.RemoveRecursive(gone))

		assert.ErrorIs(t, tr.SetChild(gone, a), ErrMissing)
		assert.ErrorIs(t, tr.SetChild(a, gone), ErrMissing)
		checkRelations(t, tr)
	})
}

func TestRemoveChild(t *testing.T) {
	tr := New[string]()
	a := tr.AddRoot("a")
	b, _ := tr.AddChild("b", a)
	c, _ := tr.AddChild("c", b)
	other := tr.AddRoot("other")

	assert.ErrorIs(t, tr.RemoveChild(other, b), ErrNotChild)
	assert.ErrorIs(t, tr.RemoveChild(b, a), ErrNotChild)

	require.NoError(t, tr.RemoveChild(a, b))
	assert.Equal(t, []Key{a, other, b}, tr.RootKeys(), "detached node becomes the last root")
	assert.Equal(t, []Key{c}, tr.ChildKeysOf(b))
	assert.Empty(t, tr.ChildKeysOf(a))

	assert.ErrorIs(t, tr.RemoveChild(a, b), ErrNotChild)
	checkRelations(t, tr)
}

func TestRemoveRecursive(t *testing.T) {
	t.Run("removes whole subtree", func(t *testing.T) {
		tr := New[int]()
		root := tr.AddRoot(0)
		var keys []Key
		for i := 1; i <= 3; i++ {
			k, err := tr.AddChild(i, root)
			require.NoError(t, err)
			keys = append(keys, k)
			for j := 0; j < 2; j++ {
				g, err := tr.AddChild(i*10+j, k)
				require.NoError(t, err)
				keys = append(keys, g)
			}
		}

		require.NoError(t, tr.RemoveRecursive(root))
		assert.Equal(t, 0, tr.Len())
		assert.Empty(t, tr.UnorderedKeys())
		assert.Empty(t, tr.RootKeys())
		for _, k := range append(keys, root) {
			assert.False(t, tr.Contains(k))
		}
		assert.Empty(t, tr.parents)
		assert.Empty(t, tr.children)

		stats := tr.Stats()
		assert.Equal(t, uint64(10), stats.Ops.Removes)
	})

	t.Run("unlinks from parent", func(t *testing.T) {
		tr := New[int]()
		root := tr.AddRoot(0)
		a, _ := tr.AddChild(1, root)
		b, _ := tr.AddChild(2, root)
		tr.AddChild(3, a)

		require.NoError(t, tr.RemoveRecursive(a))
		assert.Equal(t, []Key{b}, tr.ChildKeysOf(root))
		assert.Equal(t, 2, tr.Len())
		checkRelations(t, tr)
	})

	t.Run("borrowed descendant leaves tree untouched", func(t *testing.T) {
		tr := New[int]()
		root := tr.AddRoot(0)
		a, _ := tr.AddChild(1, root)
		deep, _ := tr.AddChild(2, a)

		ref, err := tr.TryGet(deep)
		require.NoError(t, err)

		err = tr.RemoveRecursive(root)
		assert.ErrorIs(t, err, ErrCantBorrow)
		assert.Equal(t, 3, tr.Len())
		checkRelations(t, tr)

		// Nodes locked before the conflict were released again
		mut, err := tr.TryGetMut(root)
		require.NoError(t, err)
		mut.Release()

		ref.Release()
		require.NoError(t, tr.RemoveRecursive(root))
		assert.True(t, tr.IsEmpty())
	})

	t.Run("stale key", func(t *testing.T) {
		tr := New[int]()
		k := tr.AddRoot(1)
		require.NoError(t, tr.RemoveRecursive(k))
		assert.ErrorIs(t, tr.RemoveRecursive(k), ErrMissing)

		// The slot is reused but the old key stays dead
		fresh := tr.AddRoot(2)
		assert.Equal(t, k.Index, fresh.Index)
		assert.NotEqual(t, k, fresh)
		_, err := tr.TryGet(k)
		assert.ErrorIs(t, err, ErrMissing)
		assert.Equal(t, 2, value(t, tr, fresh))
	})
}

func TestTryGet(t *testing.T) {
	tr := New[int]()
	k := tr.AddRoot(1)

	r1, err := tr.TryGet(k)
	require.NoError(t, err)
	r2, err := tr.TryGet(k)
	require.NoError(t, err)
	assert.Equal(t, r1.Get(), r2.Get())

	_, err = tr.TryGetMut(k)
	assert.ErrorIs(t, err, ErrCantBorrow)

	r1.Release()
	r2.Release()

	mut, err := tr.TryGetMut(k)
	require.NoError(t, err)
	_, err = tr.TryGet(k)
	assert.ErrorIs(t, err, ErrCantBorrow)
	_, err = tr.TryGetMut(k)
	assert.ErrorIs(t, err, ErrCantBorrow)

	mut.Set(2)
	mut.Release()
	assert.Equal(t, 2, value(t, tr, k))

	_, err = tr.TryGet(Key{})
	assert.ErrorIs(t, err, ErrMissing)
	assert.False(t, errors.Is(err, ErrCantBorrow))
}

func TestSimultaneousMutableAccess(t *testing.T) {
	tr := New[[]string]()
	root := tr.AddRoot(nil)
	a, _ := tr.AddChild([]string{"a"}, root)
	b, _ := tr.AddChild([]string{"b"}, root)

	ma, err := tr.TryGetMut(a)
	require.NoError(t, err)
	mb, err := tr.TryGetMut(b)
	require.NoError(t, err)

	ma.Update(func(v *[]string) { *v = append(*v, "from a") })
	mb.Update(func(v *[]string) { *v = append(*v, "from b") })

	// Structural edits don't wait on content borrows
	c, err := ma.AddChild([]string{"c"})
	require.NoError(t, err)

	ma.Release()
	mb.Release()

	assert.Equal(t, []string{"a", "from a"}, value(t, tr, a))
	assert.Equal(t, []string{"b", "from b"}, value(t, tr, b))
	assert.Equal(t, []Key{c}, tr.ChildKeysOf(a))
}

func TestViewUpdate(t *testing.T) {
	tr := New[int]()
	k := tr.AddRoot(10)

	require.NoError(t, tr.Update(k, func(v *int) { *v++ }))

	var seen int
	require.NoError(t, tr.View(k, func(v int) { seen = v }))
	assert.Equal(t, 11, seen)

	ref, _ := tr.TryGet(k)
	err := tr.Update(k, func(*int) { t.Fatal("must not run") })
	assert.ErrorIs(t, err, ErrCantBorrow)
	ref.Release()

	assert.ErrorIs(t, tr.View(Key{Index: 7, Version: 1}, func(int) {}), ErrMissing)
}

func TestIteration(t *testing.T) {
	tr := New[int]()
	r1 := tr.AddRoot(1)
	r2 := tr.AddRoot(2)
	tr.AddChild(3, r1)
	tr.AddChild(4, r2)

	t.Run("roots in order", func(t *testing.T) {
		var got []int
		for ref, err := range tr.Roots() {
			require.NoError(t, err)
			got = append(got, ref.Get())
			ref.Release()
		}
		assert.Equal(t, []int{1, 2}, got)
	})

	t.Run("mutable roots", func(t *testing.T) {
		for mut, err := range tr.RootsMut() {
			require.NoError(t, err)
			mut.Update(func(v *int) { *v *= 10 })
			mut.Release()
		}
		assert.Equal(t, 10, value(t, tr, r1))
		assert.Equal(t, 20, value(t, tr, r2))
	})

	t.Run("unordered covers every node", func(t *testing.T) {
		sum := 0
		for ref, err := range tr.UnorderedIter() {
			require.NoError(t, err)
			sum += ref.Get()
			ref.Release()
		}
		assert.Equal(t, 10+20+3+4, sum)
		assert.Len(t, tr.UnorderedKeys(), 4)
	})

	t.Run("unordered mutable", func(t *testing.T) {
		for mut, err := range tr.UnorderedIterMut() {
			require.NoError(t, err)
			mut.Set(0)
			mut.Release()
		}
		for _, k := range tr.UnorderedKeys() {
			assert.Equal(t, 0, value(t, tr, k))
		}
	})

	t.Run("borrowed node fails alone", func(t *testing.T) {
		held, err := tr.TryGetMut(r1)
		require.NoError(t, err)
		defer held.Release()

		var failed, ok int
		for ref, err := range tr.Roots() {
			if err != nil {
				assert.ErrorIs(t, err, ErrCantBorrow)
				failed++
				continue
			}
			ref.Release()
			ok++
		}
		assert.Equal(t, 1, failed)
		assert.Equal(t, 1, ok)
	})

	t.Run("early stop", func(t *testing.T) {
		n := 0
		for ref, err := range tr.UnorderedIter() {
			require.NoError(t, err)
			ref.Release()
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestStats(t *testing.T) {
	tr := New[int](WithCapacity(8))
	root := tr.AddRoot(0)
	child, _ := tr.AddChild(1, root)

	ref, _ := tr.TryGet(child)
	_, err := tr.TryGetMut(child)
	require.Error(t, err)
	ref.Release()
	tr.TryGet(Key{})
	tr.RemoveChild(root, child)

	stats := tr.Stats()
	assert.Equal(t, OperationStats{
		Gets:      1,
		Inserts:   2,
		Moves:     1,
		Missing:   1,
		Conflicts: 1,
	}, stats.Ops)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 2, stats.Roots)
	assert.Equal(t, 2, stats.Slots)
	assert.Equal(t, 0, stats.FreeSlots)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tr := New[int](WithLogger(logger))
	root := tr.AddRoot(1)
	child, _ := tr.AddChild(2, root)
	assert.Contains(t, buf.String(), "added root")
	assert.Contains(t, buf.String(), "added child")

	ref, _ := tr.TryGet(child)
	defer ref.Release()
	buf.Reset()
	require.Error(t, tr.RemoveRecursive(root))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "refused recursive removal")
	assert.Contains(t, buf.String(), "borrowed="+child.String())
}

// TestConcurrentEdits hammers the tree from several goroutines and checks the
// relations stay consistent.
func TestConcurrentEdits(t *testing.T) {
	tr := New[int]()
	root := tr.AddRoot(0)

	const workers = 8
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				k, err := tr.AddChild(i, root)
				if err != nil {
					t.Errorf("add child: %v", err)
					return
				}
				tr.Update(k, func(v *int) { *v += w })
				tr.View(root, func(int) {})
				if i%3 == 0 {
					tr.RemoveChild(root, k)
				}
				if i%5 == 0 {
					tr.RemoveRecursive(k)
				}
			}
		}(w)
	}

	// A reader walking the structure the whole time
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < iterations; i++ {
			for ref, err := range tr.UnorderedIter() {
				if err == nil {
					ref.Release()
				}
			}
			_ = tr.String()
		}
	}()

	wg.Wait()
	<-done
	checkRelations(t, tr)
	assert.Equal(t, tr.Len(), len(tr.UnorderedKeys()))
}

func BenchmarkAddChild(b *testing.B) {
	tr := New[int]()
	root := tr.AddRoot(0)
	for i := 0; i < b.N; i++ {
		tr.AddChild(i, root)
	}
}

func BenchmarkTryGet(b *testing.B) {
	tr := New[int]()
	k := tr.AddRoot(0)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if ref, err := tr.TryGet(k); err == nil {
				ref.Release()
			}
		}
	})
}

func BenchmarkRemoveRecursive(b *testing.B) {
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		tr := New[int]()
		root := tr.AddRoot(0)
		for j := 0; j < 64; j++ {
			tr.AddChild(j, root)
		}
		b.StartTimer()
		tr.RemoveRecursive(root)
	}
}
