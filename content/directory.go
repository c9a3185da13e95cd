package content

import (
	"fmt"
	"path/filepath"
)

// Directory is a composite node owning an ordered list of children.
type Directory struct {
	node
	children []Node
}

var _ Node = (*Directory)(nil)

// NewDirectory creates an empty, parentless directory backed by path.
// An empty path yields a placeholder used only to attach several imports.
func NewDirectory(path string) *Directory {
	if path != "" {
		path = filepath.Clean(path)
	}
	return &Directory{node: node{path: path, icon: newIcon(KindDirectory, path)}}
}

func (d *Directory) Kind() Kind { return KindDirectory }

// IsPlaceholder reports whether d has no backing directory.
func (d *Directory) IsPlaceholder() bool { return d.path == "" }

// Children returns a copy of the child list in order.
func (d *Directory) Children() []Node {
	out := make([]Node, len(d.children))
	copy(out, d.children)
	return out
}

// Len returns the number of direct children.
func (d *Directory) Len() int { return len(d.children) }

// AddChild appends n and makes d its parent. A node that already has a
// parent must be removed from it first.
func (d *Directory) AddChild(n Node) error {
	if n == nil {
		return ErrNilNode
	}
	if n.Parent() != nil {
		return fmt.Errorf("%s: %w", n.Path(), ErrAlreadyOwned)
	}
	if sub, ok := n.(*Directory); ok {
		for p := d; p != nil; p = p.Parent() {
			if p == sub {
				return fmt.Errorf("%s: %w", n.Path(), ErrCycle)
			}
		}
	}
	d.children = append(d.children, n)
	n.setParent(d)
	return nil
}

// RemoveChild detaches a direct child of d and clears its parent.
func (d *Directory) RemoveChild(n Node) error {
	for i, c := range d.children {
		if c == n {
			d.children = append(d.children[:i:i], d.children[i+1:]...)
			n.setParent(nil)
			return nil
		}
	}
	return ErrNotChild
}

// RemoveChildRecursive removes n from whichever directory in d's subtree
// owns it. It reports whether n was found.
func (d *Directory) RemoveChildRecursive(n Node) bool {
	if n == nil {
		return false
	}
	p := n.Parent()
	if p == nil || !d.contains(p) {
		return false
	}
	return p.RemoveChild(n) == nil
}

// contains reports whether dir is d or one of its descendants.
func (d *Directory) contains(dir *Directory) bool {
	for p := dir; p != nil; p = p.Parent() {
		if p == d {
			return true
		}
	}
	return false
}

// Leaves flattens the subtree into its leaf sequence. Each directory
// contributes its own leaf children in child order, then the sequences of its
// sub-directories in child order. The tree is not modified.
func (d *Directory) Leaves() []*Leaf {
	var out []*Leaf
	d.appendLeaves(&out)
	return out
}

func (d *Directory) appendLeaves(out *[]*Leaf) {
	for _, c := range d.children {
		if l, ok := c.(*Leaf); ok {
			*out = append(*out, l)
		}
	}
	for _, c := range d.children {
		if sub, ok := c.(*Directory); ok {
			sub.appendLeaves(out)
		}
	}
}

// Size returns the number of leaves in d's subtree.
func (d *Directory) Size() int {
	n := 0
	for _, c := range d.children {
		switch c := c.(type) {
		case *Leaf:
			n++
		case *Directory:
			n += c.Size()
		}
	}
	return n
}

// Valid reports whether d's subtree holds at least one leaf.
func (d *Directory) Valid() bool {
	for _, c := range d.children {
		switch c := c.(type) {
		case *Leaf:
			return true
		case *Directory:
			if c.Valid() {
				return true
			}
		}
	}
	return false
}

// Walk calls fn for d and every descendant in pre-order. Returning false from
// fn stops the descent below that node.
func (d *Directory) Walk(fn func(n Node, depth int) bool) {
	d.walk(fn, 0)
}

func (d *Directory) walk(fn func(Node, int) bool, depth int) {
	if !fn(d, depth) {
		return
	}
	for _, c := range d.children {
		switch c := c.(type) {
		case *Directory:
			c.walk(fn, depth+1)
		default:
			fn(c, depth+1)
		}
	}
}

func (d *Directory) String() string {
	name := d.Name()
	if d.IsPlaceholder() {
		name = "(imports)"
	}
	return fmt.Sprintf("%s (%d files)", name, d.Size())
}
