package content

import (
	"mime"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// Importable decides whether a file becomes a leaf.
type Importable interface {
	Importable(path string) bool
}

// ImportableFunc adapts a plain function to Importable.
type ImportableFunc func(path string) bool

func (f ImportableFunc) Importable(path string) bool { return f(path) }

// ignorer is implemented by predicates that can also veto whole directories.
// rel is slash separated and relative to the import root.
type ignorer interface {
	Ignored(rel string) bool
}

// DefaultExtensions are the camera still, RAW and video formats accepted
// without consulting the MIME table.
var DefaultExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff", ".bmp",
	".heic", ".hif", ".dng", ".arw", ".cr2", ".nef", ".raf",
	".mp4", ".avi", ".mov",
}

// DefaultIgnore are gitignore-style patterns for camera and OS droppings.
var DefaultIgnore = []string{
	"._*",
	".DS_Store",
	"Thumbs.db",
	".Trashes",
	".Spotlight-V100",
	".fseventsd",
	".stfolder",
	"PRIVATE",
	"AVF_INFO",
	"THMBNL",
}

// ImportRules is the stock Importable: an extension allow-list, a fallback to
// the MIME table for anything reported as image/*, and a deny list of
// gitignore patterns. The builder matches the deny list against paths
// relative to the import root, so folders above the root never count and a
// leading slash anchors a pattern to the root.
type ImportRules struct {
	exts    map[string]bool
	matcher *ignore.GitIgnore
}

// NewImportRules builds rules from an extension list and extra ignore
// patterns, which are appended to DefaultIgnore. A nil exts uses
// DefaultExtensions.
func NewImportRules(exts []string, patterns ...string) *ImportRules {
	if exts == nil {
		exts = DefaultExtensions
	}
	r := &ImportRules{exts: make(map[string]bool, len(exts))}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.exts[e] = true
	}
	lines := append(append([]string{}, DefaultIgnore...), patterns...)
	r.matcher = ignore.CompileIgnoreLines(lines...)
	return r
}

// Importable reports whether path names an image or video whose base name is
// not ignored. Directory patterns are left to the builder.
func (r *ImportRules) Importable(path string) bool {
	if r.Ignored(filepath.Base(path)) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	if r.exts[ext] {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "image/")
}

// Ignored reports whether rel, a path relative to the import root, matches a
// deny pattern. The builder also uses it to skip whole directories.
func (r *ImportRules) Ignored(rel string) bool {
	return r.matcher.MatchesPath(filepath.ToSlash(rel))
}
