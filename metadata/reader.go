// Package metadata reads per-image metadata into content trees.
//
// A Reader turns one file into a flat field map. The Initializer drives a
// Reader over every leaf of a tree in flattened order, replacing each leaf's
// fields on success and leaving it untouched on failure, while reporting
// coalesced progress to the caller.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
	"github.com/spf13/afero"
)

var ErrNoMetadata = errors.New("no metadata found")

// Reader returns the metadata fields of the file at path.
type Reader interface {
	Read(ctx context.Context, path string) (map[string]string, error)
}

// ReaderFunc adapts a plain function to Reader.
type ReaderFunc func(ctx context.Context, path string) (map[string]string, error)

func (f ReaderFunc) Read(ctx context.Context, path string) (map[string]string, error) {
	return f(ctx, path)
}

// Derived fields added by ExifReader next to the raw tags.
const (
	FieldCaptureTime = "CaptureTime"
	FieldLatitude    = "Latitude"
	FieldLongitude   = "Longitude"
)

// ExifReader decodes EXIF blocks from JPEG, TIFF and TIFF-based RAW files.
type ExifReader struct {
	fs afero.Fs
}

// NewExifReader returns a reader over fs.
func NewExifReader(fs afero.Fs) *ExifReader {
	return &ExifReader{fs: fs}
}

// Read returns every EXIF tag by name, plus CaptureTime (RFC 3339) and
// decimal Latitude/Longitude when they can be derived. Damaged sub-IFDs are
// tolerated as long as some tags were read.
func (r *ExifReader) Read(ctx context.Context, path string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := r.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if x == nil || (err != nil && exif.IsCriticalError(err)) {
		if err == nil {
			err = ErrNoMetadata
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	out := make(map[string]string)
	_ = x.Walk(tagWalker{m: out})
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoMetadata)
	}

	if t, err := x.DateTime(); err == nil {
		out[FieldCaptureTime] = t.Format(time.RFC3339)
	}
	if lat, long, err := x.LatLong(); err == nil {
		out[FieldLatitude] = fmt.Sprintf("%.6f", lat)
		out[FieldLongitude] = fmt.Sprintf("%.6f", long)
	}
	return out, nil
}

type tagWalker struct{ m map[string]string }

func (w tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag.Format() == tiff.StringVal {
		if s, err := tag.StringVal(); err == nil {
			w.m[string(name)] = s
			return nil
		}
	}
	w.m[string(name)] = tag.String()
	return nil
}
