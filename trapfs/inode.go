package trapfs

import (
	"sync"

	"github.com/dendrascience/trapstash/content"
)

// inodeTable assigns stable inode numbers to tree nodes.
type inodeTable struct {
	mu      sync.Mutex
	highest uint64
	byNode  map[content.Node]uint64
}

func newInodeTable(root content.Node) *inodeTable {
	t := &inodeTable{byNode: make(map[content.Node]uint64)}
	t.get(root)
	return t
}

func (t *inodeTable) get(n content.Node) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ino, ok := t.byNode[n]; ok {
		return ino
	}
	t.highest++
	t.byNode[n] = t.highest
	return t.highest
}
