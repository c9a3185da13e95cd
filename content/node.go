package content

import (
	"path/filepath"

	"github.com/taigrr/colorhash"
)

// Kind identifies which of the two node variants a Node is.
type Kind uint8

const (
	KindDirectory Kind = iota + 1
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindLeaf:
		return "leaf"
	}
	return "unknown"
}

// Icon is the display handle attached to every node. The tree never
// interprets it; presentation layers use Kind for the glyph and Hue as a
// stable tint in degrees [0, 360).
type Icon struct {
	Kind Kind
	Hue  int
}

func newIcon(kind Kind, path string) Icon {
	name := filepath.Base(path)
	if path == "" {
		name = ""
	}
	hue := colorhash.HashString(name) % 360
	if hue < 0 {
		hue += 360
	}
	return Icon{Kind: kind, Hue: hue}
}

// Node is the identity shared by directories and leaves. The set of
// implementations is closed: *Directory and *Leaf.
type Node interface {
	// Path is the filesystem path the node represents. It is empty for a
	// placeholder directory.
	Path() string
	// Name is the last element of Path.
	Name() string
	Kind() Kind
	Icon() Icon
	// Parent returns the owning directory, or nil for a root.
	Parent() *Directory

	setParent(*Directory)
}

// node holds the fields common to both variants.
type node struct {
	path   string
	icon   Icon
	parent *Directory
}

func (n *node) Path() string { return n.path }

func (n *node) Name() string {
	if n.path == "" {
		return ""
	}
	return filepath.Base(n.path)
}

func (n *node) Icon() Icon { return n.icon }

func (n *node) Parent() *Directory { return n.parent }

func (n *node) setParent(d *Directory) { n.parent = d }

// Root walks parent pointers up from n and returns the topmost directory.
// A parentless directory is its own root; a parentless leaf has none.
func Root(n Node) *Directory {
	var top *Directory
	if d, ok := n.(*Directory); ok {
		top = d
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		top = p
	}
	return top
}
