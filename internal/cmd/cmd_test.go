package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dendrascience/trapstash/config"
	"github.com/dendrascience/trapstash/content"
	"github.com/dendrascience/trapstash/export"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(t *testing.T) *app {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	v := config.New()
	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	return &app{v: v, cfg: cfg, log: zerolog.Nop()}
}

func seedCard(t *testing.T, fs afero.Fs, count int) seedStats {
	t.Helper()
	stats, err := runSeed(fs, seedOptions{output: "/card", count: count, sites: 2, cameras: 2, seed: 7})
	require.NoError(t, err)
	return stats
}

func TestSeed(t *testing.T) {
	fs := afero.NewMemMapFs()
	stats := seedCard(t, fs, 12)
	assert.Equal(t, 12, stats.images)
	assert.NotEmpty(t, stats.deployment)

	matches, err := afero.Glob(fs, "/card/Site01/CamA/*/IMG_0000.JPG")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	_, err = runSeed(fs, seedOptions{output: "/x", count: 1})
	assert.Error(t, err)
}

func TestExportValidate(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedCard(t, fs, 30)
	require.NoError(t, fs.MkdirAll("/out", 0o755))

	a := testApp(t)
	a.cfg.Export.MaxEntriesPerChunk = 11
	a.cfg.Export.ScratchDir = "/scratch"

	var out bytes.Buffer
	err := runExport(context.Background(), a, fs, []string{"/card"}, exportOptions{
		output: "/out",
		bars:   io.Discard,
		out:    &out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Exported 30 files")

	manifest := filepath.Join("/out", export.ManifestName)
	m, err := export.LoadManifest(fs, manifest)
	require.NoError(t, err)
	assert.Equal(t, 30, m.TotalFileCount)
	assert.Equal(t, 3, m.ChunkCount)
	assert.Equal(t, "/", m.Ancestor)
	for _, arch := range m.Archives {
		assert.Len(t, arch.Entries, 10)
		for _, e := range arch.Entries {
			assert.True(t, strings.HasPrefix(e.Name, "card/Site0"), e.Name)
			assert.True(t, strings.HasSuffix(e.Name, ".JPG"), e.Name)
			assert.NotEmpty(t, e.Fields["Make"], e.Name)
			assert.NotEmpty(t, e.Fields["CaptureTime"], e.Name)
		}
	}

	out.Reset()
	require.NoError(t, runValidate(a, fs, manifest, &out, true))
	assert.Contains(t, out.String(), "Validated 3 archives: 0 with problems")

	// Change a source after export.
	src := m.Archives[1].Entries[3].Source
	require.NoError(t, afero.WriteFile(fs, src, []byte("retouched"), 0o644))
	out.Reset()
	assert.ErrorIs(t, runValidate(a, fs, manifest, &out, false), errInvalid)
	assert.Contains(t, out.String(), m.Archives[1].Path)
	assert.Contains(t, out.String(), "1 with problems")
}

func TestExportEmptyImport(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/card/notes.txt", []byte("x"), 0o644))
	a := testApp(t)
	a.cfg.Export.ScratchDir = "/scratch"

	var out bytes.Buffer
	require.NoError(t, runExport(context.Background(), a, fs, []string{"/card"}, exportOptions{bars: io.Discard, out: &out}))
	assert.Contains(t, out.String(), "Nothing to export")
	exists, err := afero.DirExists(fs, "/scratch")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExportCancelled(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedCard(t, fs, 5)
	a := testApp(t)
	a.cfg.Export.ScratchDir = "/scratch"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runExport(ctx, a, fs, []string{"/card"}, exportOptions{bars: io.Discard, out: io.Discard})
	assert.ErrorIs(t, err, context.Canceled)
}

// cancelOnReserve cancels the export as soon as the first archive path is
// reserved, so exactly one chunk finishes.
type cancelOnReserve struct {
	afero.Fs
	cancel context.CancelFunc
}

func (c cancelOnReserve) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_EXCL != 0 {
		c.cancel()
	}
	return c.Fs.OpenFile(name, flag, perm)
}

func TestExportCancelledKeepsFinishedArchives(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedCard(t, fs, 30)
	require.NoError(t, fs.MkdirAll("/out", 0o755))
	a := testApp(t)
	a.cfg.Export.MaxEntriesPerChunk = 11
	a.cfg.Export.ScratchDir = "/scratch"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var out bytes.Buffer
	err := runExport(ctx, a, cancelOnReserve{Fs: fs, cancel: cancel}, []string{"/card"}, exportOptions{
		output: "/out",
		bars:   io.Discard,
		out:    &out,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out.String(), "into 1 archives")

	m, err := export.LoadManifest(fs, filepath.Join("/out", export.ManifestName))
	require.NoError(t, err)
	require.Len(t, m.Archives, 1)
	assert.Equal(t, 10, m.TotalFileCount)
	exists, err := afero.Exists(fs, m.Archives[0].Path)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Empty(t, export.ValidateArchive(fs, m.Archives[0], m.Ancestor))
}

// failOpen loses one source file between building the tree and exporting it.
type failOpen struct {
	afero.Fs
	path string
}

func (f failOpen) Open(name string) (afero.File, error) {
	if name == f.path {
		return nil, os.ErrPermission
	}
	return f.Fs.Open(name)
}

func TestExportFailureRemovesScratch(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedCard(t, fs, 30)
	matches, err := afero.Glob(fs, "/card/Site02/CamB/*/IMG_0003.JPG")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	src := failOpen{Fs: fs, path: matches[0]}

	a := testApp(t)
	a.cfg.Metadata.Enabled = false
	a.cfg.Export.MaxEntriesPerChunk = 11
	a.cfg.Export.ScratchDir = "/scratch"

	err = runExport(context.Background(), a, src, []string{"/card"}, exportOptions{bars: io.Discard, out: io.Discard})
	assert.ErrorIs(t, err, os.ErrPermission)
	left, err := afero.ReadDir(fs, "/scratch")
	require.NoError(t, err)
	assert.Empty(t, left)

	err = runExport(context.Background(), a, src, []string{"/card"}, exportOptions{keepPartial: true, bars: io.Discard, out: io.Discard})
	assert.ErrorIs(t, err, os.ErrPermission)
	left, err = afero.ReadDir(fs, "/scratch")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestExportWithoutMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedCard(t, fs, 4)
	a := testApp(t)
	a.cfg.Metadata.Enabled = false
	a.cfg.Export.ScratchDir = "/scratch"
	require.NoError(t, fs.MkdirAll("/out", 0o755))

	require.NoError(t, runExport(context.Background(), a, fs, []string{"/card"}, exportOptions{
		output: "/out", bars: io.Discard, out: io.Discard,
	}))
	m, err := export.LoadManifest(fs, "/out/"+export.ManifestName)
	require.NoError(t, err)
	require.Len(t, m.Archives, 1)
	for _, e := range m.Archives[0].Entries {
		assert.Nil(t, e.Fields)
	}
}

func TestCount(t *testing.T) {
	fs := afero.NewMemMapFs()
	seedCard(t, fs, 9)

	var out bytes.Buffer
	require.NoError(t, runCount(context.Background(), testApp(t), fs, []string{"/card/Site01", "/card/Site02"}, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "/card/Site01: 5 images"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "/card/Site02: 4 images"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Total: 9 images"), lines[2])
}

func TestPrintTree(t *testing.T) {
	root := content.NewDirectory("/card")
	sub := content.NewDirectory("/card/CamA")
	require.NoError(t, root.AddChild(sub))
	require.NoError(t, sub.AddChild(content.NewLeaf("/card/CamA/IMG_0001.JPG")))

	var out bytes.Buffer
	printTree(&out, root)
	assert.Equal(t, "card (1 files)\n  CamA (1 files)\n    IMG_0001.JPG\n1 images in 2 directories\n", out.String())
}

func TestRootCmd(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	_, err := runSeed(afero.NewOsFs(), seedOptions{output: dir, count: 3, sites: 1, cameras: 1, seed: 1})
	require.NoError(t, err)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"tree", "--log-level", "error", dir})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "3 images in ")
	assert.NotContains(t, out.String(), "PRIVATE")
	assert.NotContains(t, out.String(), "README.txt")

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"export", "--max-entries", "0", dir})
	assert.ErrorIs(t, root.Execute(), export.ErrInvalidChunkSize)

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"tree", "--log-format", "xml", dir})
	assert.Error(t, root.Execute())

	_, err = os.Stat(filepath.Join(dir, "README.txt"))
	assert.NoError(t, err)
}
