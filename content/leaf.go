package content

import (
	"sort"
)

// Field is one metadata name/value pair on a Leaf.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Leaf represents exactly one source file.
type Leaf struct {
	node
	fields    []Field
	populated bool
	dirty     bool
}

var _ Node = (*Leaf)(nil)

// NewLeaf creates a parentless leaf for path with no metadata.
func NewLeaf(path string) *Leaf {
	return &Leaf{node: node{path: path, icon: newIcon(KindLeaf, path)}}
}

func (l *Leaf) Kind() Kind { return KindLeaf }

// Fields returns a copy of the metadata fields in order.
func (l *Leaf) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Field returns the value of the named field.
func (l *Leaf) Field(name string) (string, bool) {
	for _, f := range l.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// ReplaceMetadata discards any existing fields, stores the given ones ordered
// by name, marks the leaf populated and clears the dirty flag.
func (l *Leaf) ReplaceMetadata(fields map[string]string) {
	out := make([]Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, Field{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	l.fields = out
	l.populated = true
	l.dirty = false
}

// SetField edits a single field in place, appending it if absent, and marks
// the leaf dirty so a writer knows it differs from the file on disk.
func (l *Leaf) SetField(name, value string) {
	l.dirty = true
	for i := range l.fields {
		if l.fields[i].Name == name {
			l.fields[i].Value = value
			return
		}
	}
	l.fields = append(l.fields, Field{Name: name, Value: value})
}

// Dirty reports whether the fields were edited since they were last read.
func (l *Leaf) Dirty() bool { return l.dirty }

// Populated reports whether a metadata read has succeeded for this leaf.
func (l *Leaf) Populated() bool { return l.populated }

func (l *Leaf) String() string { return l.Name() }
