package trapfs

import (
	"context"
	"os"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/trapstash/content"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// XattrPrefix namespaces every attribute exposed by the filesystem.
const XattrPrefix = "user.trap."

// FS implements the trapfs FUSE filesystem over one tree.
type FS struct {
	tree    *content.Directory
	src     afero.Fs
	inodes  *inodeTable
	mounted time.Time
	log     zerolog.Logger
}

var _ fs.FS = (*FS)(nil)

// New returns a filesystem showing tree, reading leaf bytes from src.
func New(tree *content.Directory, src afero.Fs, log zerolog.Logger) *FS {
	return &FS{
		tree:    tree,
		src:     src,
		inodes:  newInodeTable(tree),
		mounted: time.Now(),
		log:     log,
	}
}

// Root returns the directory node for the tree's root.
func (f *FS) Root() (fs.Node, error) {
	return &Dir{fs: f, dir: f.tree}, nil
}

func (f *FS) node(n content.Node) fs.Node {
	switch n := n.(type) {
	case *content.Directory:
		return &Dir{fs: f, dir: n}
	case *content.Leaf:
		return &File{fs: f, leaf: n}
	}
	return nil
}

// Dir is a directory node.
type Dir struct {
	fs  *FS
	dir *content.Directory
}

var (
	_ fs.Node               = (*Dir)(nil)
	_ fs.NodeStringLookuper = (*Dir)(nil)
	_ fs.HandleReadDirAller = (*Dir)(nil)
	_ fs.NodeGetxattrer     = (*Dir)(nil)
	_ fs.NodeListxattrer    = (*Dir)(nil)
)

// Attr returns directory attributes
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = d.fs.inodes.get(d.dir)
	a.Mode = os.ModeDir | 0o555
	a.Mtime = d.fs.mounted
	a.Ctime = d.fs.mounted
	a.Atime = d.fs.mounted
	return nil
}

// visible returns the children that get a name in this directory: unnamed
// children are dropped and repeated names keep their first holder.
func (d *Dir) visible() []content.Node {
	seen := make(map[string]bool)
	var out []content.Node
	for _, c := range d.dir.Children() {
		name := c.Name()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, c)
	}
	return out
}

// Lookup resolves a child by name.
func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	for _, c := range d.visible() {
		if c.Name() == name {
			return d.fs.node(c), nil
		}
	}
	return nil, syscall.ENOENT
}

// ReadDirAll lists children in tree order.
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	children := d.visible()
	dirents := make([]fuse.Dirent, 0, len(children))
	for _, c := range children {
		typ := fuse.DT_File
		if c.Kind() == content.KindDirectory {
			typ = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: d.fs.inodes.get(c),
			Name:  c.Name(),
			Type:  typ,
		})
	}
	return dirents, nil
}

func (d *Dir) xattrs() map[string]string {
	return map[string]string{"files": strconv.Itoa(d.dir.Size())}
}

func (d *Dir) Getxattr(ctx context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	return getxattr(d.xattrs(), req, resp)
}

func (d *Dir) Listxattr(ctx context.Context, req *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	listxattr(d.xattrs(), resp)
	return nil
}

// File is a leaf node backed by its source file.
type File struct {
	fs   *FS
	leaf *content.Leaf
}

var (
	_ fs.Node            = (*File)(nil)
	_ fs.HandleReadAller = (*File)(nil)
	_ fs.NodeGetxattrer  = (*File)(nil)
	_ fs.NodeListxattrer = (*File)(nil)
)

// Attr returns file attributes from the source file.
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	info, err := f.fs.src.Stat(f.leaf.Path())
	if err != nil {
		f.fs.log.Debug().Err(err).Str("path", f.leaf.Path()).Msg("stat failed")
		return syscall.ENOENT
	}
	a.Inode = f.fs.inodes.get(f.leaf)
	a.Mode = 0o444
	a.Size = uint64(info.Size())
	a.Mtime = info.ModTime()
	a.Ctime = info.ModTime()
	a.Atime = info.ModTime()
	return nil
}

// ReadAll returns the source file's bytes.
func (f *File) ReadAll(ctx context.Context) ([]byte, error) {
	data, err := afero.ReadFile(f.fs.src, f.leaf.Path())
	if err != nil {
		f.fs.log.Debug().Err(err).Str("path", f.leaf.Path()).Msg("read failed")
		return nil, syscall.EIO
	}
	return data, nil
}

func (f *File) xattrs() map[string]string {
	fields := f.leaf.Fields()
	out := make(map[string]string, len(fields))
	for _, fl := range fields {
		out[fl.Name] = fl.Value
	}
	return out
}

func (f *File) Getxattr(ctx context.Context, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	return getxattr(f.xattrs(), req, resp)
}

func (f *File) Listxattr(ctx context.Context, req *fuse.ListxattrRequest, resp *fuse.ListxattrResponse) error {
	listxattr(f.xattrs(), resp)
	return nil
}

func getxattr(attrs map[string]string, req *fuse.GetxattrRequest, resp *fuse.GetxattrResponse) error {
	if !strings.HasPrefix(req.Name, XattrPrefix) {
		return fuse.ErrNoXattr
	}
	v, ok := attrs[strings.TrimPrefix(req.Name, XattrPrefix)]
	if !ok {
		return fuse.ErrNoXattr
	}
	resp.Xattr = []byte(v)
	return nil
}

func listxattr(attrs map[string]string, resp *fuse.ListxattrResponse) {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, XattrPrefix+k)
	}
	slices.Sort(names)
	resp.Append(names...)
}
