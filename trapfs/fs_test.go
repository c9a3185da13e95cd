package trapfs

import (
	"context"
	"os"
	"syscall"
	"testing"

	"bazil.org/fuse"
	"github.com/dendrascience/trapstash/content"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS(t *testing.T) (*FS, *content.Directory) {
	t.Helper()
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/cam/IMG_0001.JPG", []byte("first"), 0o644))
	require.NoError(t, afero.WriteFile(src, "/cam/day1/IMG_0002.JPG", []byte("second image"), 0o644))

	root := content.NewDirectory("/cam")
	day := content.NewDirectory("/cam/day1")
	first := content.NewLeaf("/cam/IMG_0001.JPG")
	first.ReplaceMetadata(map[string]string{"Model": "TrailCam", "CaptureTime": "2024-05-01T06:00:00Z"})
	require.NoError(t, root.AddChild(first))
	require.NoError(t, root.AddChild(day))
	require.NoError(t, day.AddChild(content.NewLeaf("/cam/day1/IMG_0002.JPG")))

	return New(root, src, zerolog.Nop()), root
}

func rootDir(t *testing.T, f *FS) *Dir {
	t.Helper()
	n, err := f.Root()
	require.NoError(t, err)
	d, ok := n.(*Dir)
	require.True(t, ok)
	return d
}

func TestRootAttr(t *testing.T) {
	f, _ := newTestFS(t)
	var a fuse.Attr
	require.NoError(t, rootDir(t, f).Attr(context.Background(), &a))
	assert.Equal(t, uint64(1), a.Inode)
	assert.True(t, a.Mode.IsDir())
	assert.Equal(t, os.FileMode(0o555), a.Mode.Perm())
}

func TestReadDirAll(t *testing.T) {
	f, _ := newTestFS(t)
	ents, err := rootDir(t, f).ReadDirAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, "IMG_0001.JPG", ents[0].Name)
	assert.Equal(t, fuse.DT_File, ents[0].Type)
	assert.Equal(t, "day1", ents[1].Name)
	assert.Equal(t, fuse.DT_Dir, ents[1].Type)
	assert.NotEqual(t, ents[0].Inode, ents[1].Inode)

	again, err := rootDir(t, f).ReadDirAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ents, again)
}

func TestLookupAndRead(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFS(t)

	n, err := rootDir(t, f).Lookup(ctx, "day1")
	require.NoError(t, err)
	day, ok := n.(*Dir)
	require.True(t, ok)

	n, err = day.Lookup(ctx, "IMG_0002.JPG")
	require.NoError(t, err)
	file, ok := n.(*File)
	require.True(t, ok)

	var a fuse.Attr
	require.NoError(t, file.Attr(ctx, &a))
	assert.Equal(t, uint64(len("second image")), a.Size)
	assert.Equal(t, os.FileMode(0o444), a.Mode)

	data, err := file.ReadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second image", string(data))

	_, err = day.Lookup(ctx, "missing.jpg")
	assert.Equal(t, syscall.ENOENT, err)
}

func TestMissingSource(t *testing.T) {
	ctx := context.Background()
	f, root := newTestFS(t)
	require.NoError(t, f.src.Remove("/cam/IMG_0001.JPG"))

	n, err := rootDir(t, f).Lookup(ctx, "IMG_0001.JPG")
	require.NoError(t, err)
	file := n.(*File)

	var a fuse.Attr
	assert.Equal(t, syscall.ENOENT, file.Attr(ctx, &a))
	_, err = file.ReadAll(ctx)
	assert.Equal(t, syscall.EIO, err)
	assert.Equal(t, 2, root.Size())
}

func TestPlaceholderFirstNameWins(t *testing.T) {
	src := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(src, "/a/x.jpg", []byte("from a"), 0o644))
	require.NoError(t, afero.WriteFile(src, "/b/x.jpg", []byte("from b"), 0o644))

	imports := content.NewDirectory("")
	require.NoError(t, imports.AddChild(content.NewLeaf("/a/x.jpg")))
	require.NoError(t, imports.AddChild(content.NewLeaf("/b/x.jpg")))
	f := New(imports, src, zerolog.Nop())

	ents, err := rootDir(t, f).ReadDirAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ents, 1)

	n, err := rootDir(t, f).Lookup(context.Background(), "x.jpg")
	require.NoError(t, err)
	data, err := n.(*File).ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from a", string(data))
}

func TestXattrs(t *testing.T) {
	ctx := context.Background()
	f, _ := newTestFS(t)
	root := rootDir(t, f)

	var list fuse.ListxattrResponse
	require.NoError(t, root.Listxattr(ctx, &fuse.ListxattrRequest{}, &list))
	assert.Equal(t, "user.trap.files\x00", string(list.Xattr))

	var got fuse.GetxattrResponse
	require.NoError(t, root.Getxattr(ctx, &fuse.GetxattrRequest{Name: "user.trap.files"}, &got))
	assert.Equal(t, "2", string(got.Xattr))

	n, err := root.Lookup(ctx, "IMG_0001.JPG")
	require.NoError(t, err)
	file := n.(*File)

	list = fuse.ListxattrResponse{}
	require.NoError(t, file.Listxattr(ctx, &fuse.ListxattrRequest{}, &list))
	assert.Equal(t, "user.trap.CaptureTime\x00user.trap.Model\x00", string(list.Xattr))

	got = fuse.GetxattrResponse{}
	require.NoError(t, file.Getxattr(ctx, &fuse.GetxattrRequest{Name: "user.trap.Model"}, &got))
	assert.Equal(t, "TrailCam", string(got.Xattr))

	assert.Equal(t, fuse.ErrNoXattr, file.Getxattr(ctx, &fuse.GetxattrRequest{Name: "user.trap.Missing"}, &got))
	assert.Equal(t, fuse.ErrNoXattr, file.Getxattr(ctx, &fuse.GetxattrRequest{Name: "security.selinux"}, &got))
}

func TestInodesStable(t *testing.T) {
	f, root := newTestFS(t)
	leaf := root.Leaves()[0]
	first := f.inodes.get(leaf)
	assert.Equal(t, first, f.inodes.get(leaf))
	assert.Equal(t, uint64(1), f.inodes.get(root))
}
