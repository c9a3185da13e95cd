package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"
)

// DefaultIgnoreFile is read from the root of every directory import, if
// present, and holds extra gitignore patterns relative to that root.
const DefaultIgnoreFile = ".trapignore"

// Builder materializes trees from a filesystem.
type Builder struct {
	fs         afero.Fs
	importable Importable
	ignoreFile string
	log        zerolog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithFs sets the filesystem to read from. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) BuilderOption {
	return func(b *Builder) { b.fs = fs }
}

// WithImportable sets the predicate deciding which files become leaves.
// Defaults to NewImportRules(nil).
func WithImportable(p Importable) BuilderOption {
	return func(b *Builder) { b.importable = p }
}

// WithIgnoreFile changes the per-import ignore file name. An empty name
// disables it.
func WithIgnoreFile(name string) BuilderOption {
	return func(b *Builder) { b.ignoreFile = name }
}

// WithLogger sets the logger used to report skipped entries.
func WithLogger(l zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.log = l }
}

// NewBuilder returns a Builder with the given options applied.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		fs:         afero.NewOsFs(),
		ignoreFile: DefaultIgnoreFile,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.importable == nil {
		b.importable = NewImportRules(nil)
	}
	return b
}

// BuildFromDirectory builds a tree rooted at path.
//
// If path is a file, the result is its parent directory holding a single leaf
// for path; the importability predicate is not consulted. If path is a
// directory, every entry is visited in enumeration order: importable regular
// files become leaves and sub-directories are built recursively. Symlinks,
// ignored entries and other files are skipped, as is anything that cannot be
// read below the root. Only a root that cannot be stat'ed is an error.
func (b *Builder) BuildFromDirectory(ctx context.Context, path string) (*Directory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := b.fs.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}

	if !info.IsDir() {
		dir := NewDirectory(filepath.Dir(abs))
		if err := dir.AddChild(NewLeaf(abs)); err != nil {
			return nil, err
		}
		return dir, nil
	}

	w := &walker{b: b, ctx: ctx, root: abs, local: b.loadIgnoreFile(abs)}
	root := NewDirectory(abs)
	if err := w.fill(root); err != nil {
		return nil, err
	}
	b.log.Debug().Str("path", abs).Int("files", root.Size()).Msg("built tree")
	return root, nil
}

// BuildFromFileList builds a single directory holding one leaf per importable
// file. The files are expected to share the first accepted file's parent;
// files elsewhere, missing files and directories are skipped. If nothing is
// accepted the result is an empty placeholder.
func (b *Builder) BuildFromFileList(ctx context.Context, files []string) (*Directory, error) {
	var dir *Directory
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			b.log.Debug().Err(err).Str("path", f).Msg("skipping file")
			continue
		}
		info, err := b.fs.Stat(abs)
		if err != nil {
			b.log.Debug().Err(err).Str("path", abs).Msg("skipping unreadable file")
			continue
		}
		if info.IsDir() || !b.importable.Importable(abs) {
			continue
		}
		if dir == nil {
			dir = NewDirectory(filepath.Dir(abs))
		} else if filepath.Dir(abs) != dir.Path() {
			b.log.Warn().Str("path", abs).Str("dir", dir.Path()).Msg("skipping file outside the list's directory")
			continue
		}
		if err := dir.AddChild(NewLeaf(abs)); err != nil {
			return nil, err
		}
	}
	if dir == nil {
		return NewDirectory(""), nil
	}
	return dir, nil
}

// BuildAll builds every path and, when there is more than one, attaches the
// results to a placeholder root in argument order.
func (b *Builder) BuildAll(ctx context.Context, paths []string) (*Directory, error) {
	if len(paths) == 1 {
		return b.BuildFromDirectory(ctx, paths[0])
	}
	root := NewDirectory("")
	for _, p := range paths {
		sub, err := b.BuildFromDirectory(ctx, p)
		if err != nil {
			return nil, err
		}
		if err := root.AddChild(sub); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func (b *Builder) loadIgnoreFile(root string) *ignore.GitIgnore {
	if b.ignoreFile == "" {
		return nil
	}
	data, err := afero.ReadFile(b.fs, filepath.Join(root, b.ignoreFile))
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	b.log.Debug().Str("root", root).Int("patterns", len(lines)).Msg("loaded ignore file")
	return ignore.CompileIgnoreLines(lines...)
}

// walker carries the per-import state of one BuildFromDirectory call.
type walker struct {
	b     *Builder
	ctx   context.Context
	root  string
	local *ignore.GitIgnore
}

func (w *walker) fill(dir *Directory) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	log := w.b.log

	f, err := w.b.fs.Open(dir.Path())
	if err != nil {
		log.Debug().Err(err).Str("path", dir.Path()).Msg("skipping unreadable directory")
		return nil
	}
	infos, err := f.Readdir(-1)
	f.Close()
	if err != nil {
		// Readdir returns what it managed to read alongside the error.
		log.Debug().Err(err).Str("path", dir.Path()).Msg("partial directory listing")
	}

	for _, info := range infos {
		p := filepath.Join(dir.Path(), info.Name())
		mode := info.Mode()
		switch {
		case mode&os.ModeSymlink != 0:
			log.Debug().Str("path", p).Msg("skipping symlink")
		case info.IsDir():
			if w.ignored(p) {
				continue
			}
			sub := NewDirectory(p)
			if err := dir.AddChild(sub); err != nil {
				return err
			}
			if err := w.fill(sub); err != nil {
				return err
			}
		case mode.IsRegular():
			if info.Name() == w.b.ignoreFile || w.ignored(p) || !w.b.importable.Importable(p) {
				continue
			}
			if err := dir.AddChild(NewLeaf(p)); err != nil {
				return err
			}
		default:
			log.Debug().Str("path", p).Str("mode", mode.String()).Msg("skipping special file")
		}
	}
	return nil
}

// ignored matches path, relative to the import root, against the
// predicate's deny list and the root's ignore file.
func (w *walker) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if ig, ok := w.b.importable.(ignorer); ok && ig.Ignored(rel) {
		return true
	}
	return w.local != nil && w.local.MatchesPath(rel)
}
