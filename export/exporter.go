package export

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dendrascience/trapstash/content"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

// DefaultMaxEntries is the per-chunk entry limit used when none is configured.
const DefaultMaxEntries = 50

// DefaultArchiveName is the name suggested to the scratch manager for every
// chunk.
const DefaultArchiveName = "chunk.tar"

// TempFiles hands out fresh writable paths. *scratch.Manager implements it.
type TempFiles interface {
	NewTempFile(suggested string) (string, error)
}

// Entry is one file stored in an archive.
type Entry struct {
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Digest   Digest    `json:"blake3"`
	// Fields carries the leaf's metadata when it was populated.
	Fields map[string]string `json:"fields,omitempty"`
}

// Archive is one finished chunk.
type Archive struct {
	Index   int     `json:"index"`
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
}

// Size returns the total payload size of the archive's entries.
func (a Archive) Size() int64 {
	var n int64
	for _, e := range a.Entries {
		n += e.Size
	}
	return n
}

// Exporter writes chunk archives for content trees.
type Exporter struct {
	fs          afero.Fs
	temp        TempFiles
	name        string
	parallelism int
	progress    func(float64)
	log         zerolog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFs sets the filesystem sources are read from and archives written to.
func WithFs(fs afero.Fs) Option {
	return func(e *Exporter) { e.fs = fs }
}

// WithArchiveName sets the name suggested for each archive file.
func WithArchiveName(name string) Option {
	return func(e *Exporter) { e.name = name }
}

// WithParallelism writes up to n chunks at once. Values below 2 keep the
// export sequential.
func WithParallelism(n int) Option {
	return func(e *Exporter) { e.parallelism = n }
}

// WithProgress receives the fraction of chunks finished.
func WithProgress(fn func(float64)) Option {
	return func(e *Exporter) { e.progress = fn }
}

// WithLogger sets the exporter's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Exporter) { e.log = l }
}

// NewExporter returns an Exporter writing archives at paths from temp.
func NewExporter(temp TempFiles, opts ...Option) *Exporter {
	e := &Exporter{
		fs:          afero.NewOsFs(),
		temp:        temp,
		name:        DefaultArchiveName,
		parallelism: 1,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// chunkJob is the input of one chunk.
type chunkJob struct {
	index  int
	leaves []*content.Leaf
	names  []string
}

// Export writes tree's leaves into archives of at most maxEntries-1 entries
// and returns them in chunk order.
//
// Any read or write failure aborts the export and returns no archives; files
// already written are left to the scratch manager. If ctx is cancelled
// between chunks, the archives completed so far are returned together with
// the context error. An empty tree produces no archives and no error.
func (e *Exporter) Export(ctx context.Context, tree *content.Directory, maxEntries int) ([]Archive, error) {
	leaves := tree.Leaves()
	plan, err := PlanChunks(len(leaves), maxEntries)
	if err != nil {
		return nil, err
	}
	if plan.Chunks == 0 {
		return nil, nil
	}

	ancestor, err := CommonAncestor(tree)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(leaves))
	for i, l := range leaves {
		if names[i], err = EntryName(ancestor, l.Path()); err != nil {
			return nil, err
		}
	}

	jobs := make([]chunkJob, plan.Chunks)
	for i := range jobs {
		s, end := plan.Bounds(i)
		jobs[i] = chunkJob{index: i, leaves: leaves[s:end], names: names[s:end]}
	}

	e.log.Info().
		Int("leaves", plan.Total).
		Int("chunks", plan.Chunks).
		Int("per_chunk", plan.PerChunk).
		Str("ancestor", ancestor).
		Msg("exporting")

	if e.parallelism > 1 && plan.Chunks > 1 {
		return e.exportParallel(ctx, jobs)
	}
	return e.exportSequential(ctx, jobs)
}

func (e *Exporter) exportSequential(ctx context.Context, jobs []chunkJob) ([]Archive, error) {
	archives := make([]Archive, 0, len(jobs))
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return archives, fmt.Errorf("export stopped after %d of %d chunks: %w", len(archives), len(jobs), err)
		}
		a, err := e.writeChunk(j)
		if err != nil {
			return nil, err
		}
		archives = append(archives, a)
		e.report(len(archives), len(jobs))
	}
	return archives, nil
}

func (e *Exporter) exportParallel(ctx context.Context, jobs []chunkJob) ([]Archive, error) {
	results := make([]*Archive, len(jobs))
	var finished atomic.Int64

	p := pool.New().WithMaxGoroutines(e.parallelism).WithContext(ctx).WithCancelOnError()
	for _, j := range jobs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a, err := e.writeChunk(j)
			if err != nil {
				return err
			}
			results[j.index] = &a
			e.report(int(finished.Add(1)), len(jobs))
			return nil
		})
	}
	err := p.Wait()

	// An I/O failure voids the whole export, even when the parent was
	// cancelled at the same time. A bare cancellation keeps the chunks that
	// were finished.
	if err != nil && (ctx.Err() == nil || !onlyCancelled(err)) {
		return nil, err
	}
	archives := make([]Archive, 0, len(jobs))
	for _, a := range results {
		if a != nil {
			archives = append(archives, *a)
		}
	}
	if err != nil {
		return archives, fmt.Errorf("export stopped after %d of %d chunks: %w", len(archives), len(jobs), ctx.Err())
	}
	return archives, nil
}

// onlyCancelled reports whether every error joined into err comes from a
// cancelled or expired context.
func onlyCancelled(err error) bool {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if !onlyCancelled(e) {
				return false
			}
		}
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (e *Exporter) report(done, total int) {
	if e.progress != nil {
		e.progress(float64(done) / float64(total))
	}
}

func (e *Exporter) writeChunk(j chunkJob) (Archive, error) {
	a := Archive{Index: j.index, Entries: make([]Entry, 0, len(j.leaves))}
	path, err := e.temp.NewTempFile(e.name)
	if err != nil {
		return a, fmt.Errorf("chunk %d: %w", j.index, err)
	}
	a.Path = path

	f, err := e.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return a, fmt.Errorf("chunk %d: %w", j.index, err)
	}
	tw := tar.NewWriter(f)
	for i, leaf := range j.leaves {
		entry, err := e.appendEntry(tw, leaf.Path(), j.names[i])
		if err != nil {
			f.Close()
			return a, fmt.Errorf("chunk %d: %w", j.index, err)
		}
		entry.Fields = leafFields(leaf)
		a.Entries = append(a.Entries, entry)
	}
	if err := tw.Close(); err != nil {
		f.Close()
		return a, fmt.Errorf("chunk %d: finalize %s: %w", j.index, path, err)
	}
	if err := f.Close(); err != nil {
		return a, fmt.Errorf("chunk %d: close %s: %w", j.index, path, err)
	}

	e.log.Debug().Int("chunk", j.index).Str("path", path).Int("entries", len(a.Entries)).Msg("chunk written")
	return a, nil
}

func (e *Exporter) appendEntry(tw *tar.Writer, source, name string) (Entry, error) {
	src, err := e.fs.Open(source)
	if err != nil {
		return Entry{}, err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Entry{}, err
	}
	if !info.Mode().IsRegular() {
		return Entry{}, fmt.Errorf("%s: %w", source, ErrNotRegular)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", source, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return Entry{}, fmt.Errorf("%s: %w", source, err)
	}

	h := blake3.New()
	n, err := io.Copy(io.MultiWriter(tw, h), src)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", source, err)
	}
	if n != info.Size() {
		return Entry{}, fmt.Errorf("%s: copied %d of %d bytes: %w", source, n, info.Size(), ErrShortWrite)
	}

	return Entry{
		Name:     name,
		Source:   source,
		Size:     n,
		Modified: info.ModTime(),
		Digest:   sum(h),
	}, nil
}

func leafFields(l *content.Leaf) map[string]string {
	fields := l.Fields()
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[f.Name] = f.Value
	}
	return m
}
