package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dendrascience/trapstash/content"
)

// CommonAncestor returns the directory entry names are made relative to.
//
// For a tree backed by a directory it is that directory's parent, so entry
// names start with the imported folder's own name. For a placeholder root
// holding several imports it is the deepest directory containing the parent
// of every import.
func CommonAncestor(tree *content.Directory) (string, error) {
	if !tree.IsPlaceholder() {
		return filepath.Dir(tree.Path()), nil
	}
	var anc string
	for _, c := range tree.Children() {
		if c.Path() == "" {
			continue
		}
		p := filepath.Dir(c.Path())
		if anc == "" {
			anc = p
			continue
		}
		for !within(anc, p) {
			next := filepath.Dir(anc)
			if next == anc {
				break
			}
			anc = next
		}
	}
	if anc == "" {
		return "", ErrNoAncestor
	}
	return anc, nil
}

// EntryName converts path into an archive entry name relative to ancestor.
func EntryName(ancestor, path string) (string, error) {
	rel, err := filepath.Rel(ancestor, path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideAncestor)
	}
	return filepath.ToSlash(rel), nil
}

// SourcePath is the inverse of EntryName.
func SourcePath(ancestor, name string) string {
	return filepath.Join(ancestor, filepath.FromSlash(name))
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
