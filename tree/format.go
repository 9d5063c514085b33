package tree

import (
	"fmt"
	"strings"
)

const borrowedNode = "Node { (Borrowed) }"

// String renders the tree as an indented outline with one node per line.
// Nodes that can't be borrowed at the time are shown as "Node { (Borrowed) }"
// and their subtrees are skipped.
func (t *Tree[T]) String() string {
	roots := t.RootKeys()
	if len(roots) == 0 {
		return "Tree {}"
	}

	var b strings.Builder
	b.WriteString("Tree {\n")
	for _, k := range roots {
		t.writeNode(&b, k, 1)
	}
	b.WriteString("}")
	return b.String()
}

func (t *Tree[T]) writeNode(b *strings.Builder, key Key, depth int) {
	indent := strings.Repeat("    ", depth)

	ref, err := t.TryGet(key)
	if err != nil {
		b.WriteString(indent + borrowedNode + "\n")
		return
	}
	defer ref.Release()

	kids := t.ChildKeysOf(key)
	if len(kids) == 0 {
		fmt.Fprintf(b, "%sNode { value: %v }\n", indent, ref.Get())
		return
	}

	fmt.Fprintf(b, "%sNode { value: %v, children: [\n", indent, ref.Get())
	for _, c := range kids {
		t.writeNode(b, c, depth+1)
	}
	fmt.Fprintf(b, "%s] }\n", indent)
}
