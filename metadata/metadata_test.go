package metadata

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dendrascience/trapstash/content"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exifJPEG returns a minimal JPEG whose APP1 segment carries a big-endian
// TIFF block with ASCII Make and DateTime tags in IFD0.
func exifJPEG(camera, dateTime string) []byte {
	type entry struct {
		id  uint16
		val string
	}
	entries := []entry{{0x010F, camera}, {0x0132, dateTime}}

	var tiff bytes.Buffer
	be := binary.BigEndian
	tiff.WriteString("MM")
	binary.Write(&tiff, be, uint16(42))
	binary.Write(&tiff, be, uint32(8))
	binary.Write(&tiff, be, uint16(len(entries)))

	dataOff := uint32(8 + 2 + 12*len(entries) + 4)
	var data bytes.Buffer
	for _, e := range entries {
		v := e.val + "\x00"
		binary.Write(&tiff, be, e.id)
		binary.Write(&tiff, be, uint16(2))
		binary.Write(&tiff, be, uint32(len(v)))
		binary.Write(&tiff, be, dataOff+uint32(data.Len()))
		data.WriteString(v)
	}
	binary.Write(&tiff, be, uint32(0))
	tiff.Write(data.Bytes())

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	binary.Write(&out, be, uint16(2+6+tiff.Len()))
	out.WriteString("Exif\x00\x00")
	out.Write(tiff.Bytes())
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

func TestExifReader(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cam/IMG_0001.JPG", exifJPEG("Bushnell", "2023:06:01 04:12:00"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/cam/plain.jpg", []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0o644))

	r := NewExifReader(fs)
	fields, err := r.Read(context.Background(), "/cam/IMG_0001.JPG")
	require.NoError(t, err)
	assert.Equal(t, "Bushnell", fields["Make"])
	assert.Equal(t, "2023:06:01 04:12:00", fields["DateTime"])

	want, err := time.ParseInLocation("2006:01:02 15:04:05", "2023:06:01 04:12:00", time.Local)
	require.NoError(t, err)
	got, err := time.Parse(time.RFC3339, fields[FieldCaptureTime])
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "capture time %s != %s", got, want)
	_, ok := fields[FieldLatitude]
	assert.False(t, ok)

	_, err = r.Read(context.Background(), "/cam/plain.jpg")
	assert.Error(t, err)
	_, err = r.Read(context.Background(), "/cam/missing.jpg")
	assert.Error(t, err)
}

func buildTree(t *testing.T, n int) *content.Directory {
	t.Helper()
	root := content.NewDirectory("/site")
	sub := content.NewDirectory("/site/cam")
	require.NoError(t, root.AddChild(sub))
	for i := 0; i < n; i++ {
		require.NoError(t, sub.AddChild(content.NewLeaf(fmt.Sprintf("/site/cam/IMG_%04d.JPG", i))))
	}
	return root
}

func TestPopulate(t *testing.T) {
	tree := buildTree(t, 45)
	reader := ReaderFunc(func(ctx context.Context, path string) (map[string]string, error) {
		if path == "/site/cam/IMG_0007.JPG" {
			return nil, errors.New("corrupt")
		}
		return map[string]string{"Path": path}, nil
	})

	// Pre-existing state on the failing leaf must survive.
	bad := tree.Leaves()[7]
	bad.SetField("Note", "keep")

	var reports []float64
	res, err := NewInitializer(reader).Populate(context.Background(), tree, func(f float64) {
		reports = append(reports, f)
	})
	require.NoError(t, err)
	assert.Equal(t, Result{Total: 45, Populated: 44, Failed: 1}, res)
	assert.Equal(t, []float64{0, 20.0 / 45, 40.0 / 45, 1}, reports)

	for i, l := range tree.Leaves() {
		if i == 7 {
			assert.True(t, l.Dirty())
			assert.False(t, l.Populated())
			v, _ := l.Field("Note")
			assert.Equal(t, "keep", v)
			continue
		}
		assert.True(t, l.Populated())
		assert.False(t, l.Dirty())
		v, _ := l.Field("Path")
		assert.Equal(t, l.Path(), v)
	}
}

func TestPopulateInterval(t *testing.T) {
	tree := buildTree(t, 100)
	ok := ReaderFunc(func(context.Context, string) (map[string]string, error) { return map[string]string{}, nil })

	tests := []struct {
		name     string
		interval int
		want     int
	}{
		{"clamped", 1, 6},
		{"default", 0, 6},
		{"wider", 50, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := NewInitializer(ok, WithInterval(tt.interval)).Populate(context.Background(), tree, func(float64) { calls++ })
			require.NoError(t, err)
			assert.Equal(t, tt.want, calls)
		})
	}
}

func TestPopulateEmpty(t *testing.T) {
	reader := ReaderFunc(func(context.Context, string) (map[string]string, error) {
		t.Fatal("reader called on empty tree")
		return nil, nil
	})
	root := content.NewDirectory("/empty")
	require.NoError(t, root.AddChild(content.NewDirectory("/empty/sub")))

	res, err := NewInitializer(reader).Populate(context.Background(), root, func(float64) {
		t.Fatal("progress called on empty tree")
	})
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestPopulateCancel(t *testing.T) {
	tree := buildTree(t, 30)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	reader := ReaderFunc(func(context.Context, string) (map[string]string, error) {
		calls++
		if calls == 5 {
			cancel()
		}
		return map[string]string{"k": "v"}, nil
	})

	var last float64
	res, err := NewInitializer(reader).Populate(ctx, tree, func(f float64) { last = f })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, res.Populated)
	assert.Equal(t, 30, res.Total)
	assert.Less(t, last, 1.0)
}
