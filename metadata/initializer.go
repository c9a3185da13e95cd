package metadata

import (
	"context"

	"github.com/dendrascience/trapstash/content"
	"github.com/rs/zerolog"
)

// MinProgressInterval is the tightest progress cadence, in leaves.
const MinProgressInterval = 20

// Result counts what a Populate pass did.
type Result struct {
	Total     int `json:"total"`
	Populated int `json:"populated"`
	Failed    int `json:"failed"`
}

// Initializer populates leaf metadata across a tree.
type Initializer struct {
	reader   Reader
	interval int
	log      zerolog.Logger
}

// Option configures an Initializer.
type Option func(*Initializer)

// WithInterval sets how many leaves pass between progress reports. Values
// below MinProgressInterval are raised to it.
func WithInterval(n int) Option {
	return func(in *Initializer) { in.interval = max(n, MinProgressInterval) }
}

// WithLogger sets the logger used to report per-leaf failures.
func WithLogger(l zerolog.Logger) Option {
	return func(in *Initializer) { in.log = l }
}

// NewInitializer returns an Initializer reading through r.
func NewInitializer(r Reader, opts ...Option) *Initializer {
	in := &Initializer{reader: r, interval: MinProgressInterval, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Populate reads metadata for every leaf of tree in flattened order.
//
// A successful read replaces the leaf's fields and clears its dirty flag; a
// failed read leaves the leaf as it was and the pass moves on. progress, if
// non-nil, receives completed/total every interval leaves and 1 at the end.
// An empty tree returns at once without calling progress. The only error
// returned is the context's, checked between leaves; the partial Result is
// returned with it.
func (in *Initializer) Populate(ctx context.Context, tree *content.Directory, progress func(float64)) (Result, error) {
	leaves := tree.Leaves()
	res := Result{Total: len(leaves)}
	if res.Total == 0 {
		return res, nil
	}

	for i, leaf := range leaves {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if progress != nil && i%in.interval == 0 {
			progress(float64(i) / float64(res.Total))
		}
		fields, err := in.reader.Read(ctx, leaf.Path())
		if err != nil {
			res.Failed++
			in.log.Debug().Err(err).Str("path", leaf.Path()).Msg("metadata read failed")
			continue
		}
		leaf.ReplaceMetadata(fields)
		res.Populated++
	}

	if progress != nil {
		progress(1)
	}
	in.log.Info().Int("total", res.Total).Int("populated", res.Populated).Int("failed", res.Failed).Msg("metadata populated")
	return res, nil
}
