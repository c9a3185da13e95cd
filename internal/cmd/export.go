package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/dendrascience/trapstash/content"
	"github.com/dendrascience/trapstash/export"
	"github.com/dendrascience/trapstash/job"
	"github.com/dendrascience/trapstash/metadata"
	"github.com/dendrascience/trapstash/scratch"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export subcommand.
func NewExportCmd(a *app) *cobra.Command {
	var (
		output      string
		keepPartial bool
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "export PATH...",
		Short: "Pack an import into chunk archives",
		Long: `Build the import tree for one or more paths, prune it, read image
metadata and write the images into tar archives of at most
max-entries - 1 files each, sized as evenly as possible.

Archives are written to a fresh scratch directory. A manifest listing every
archive, entry, digest and metadata field is written next to them, or to
--output when given. On interrupt the archives finished so far are kept and
listed in the manifest. On a read or write failure the scratch directory is
removed unless --keep-partial is set.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var bars io.Writer = cmd.ErrOrStderr()
			if quiet {
				bars = io.Discard
			}
			return runExport(ctx, a, afero.NewOsFs(), args, exportOptions{
				output:      output,
				keepPartial: keepPartial,
				bars:        bars,
				out:         cmd.OutOrStdout(),
			})
		},
	}

	addImportFlags(cmd)
	cmd.Flags().Int("max-entries", export.DefaultMaxEntries, "Maximum entries per chunk; each chunk holds at most one less")
	cmd.Flags().Int("parallelism", 1, "Chunks written at once")
	cmd.Flags().String("scratch-dir", "", "Parent of the scratch directory (default system temp)")
	cmd.Flags().Bool("manifest", true, "Write a manifest")
	cmd.Flags().Bool("metadata", true, "Read EXIF metadata before exporting")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Manifest path or directory (default the scratch directory)")
	cmd.Flags().BoolVar(&keepPartial, "keep-partial", false, "Keep archives written before a read or write failure")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide progress bars")

	return cmd
}

type exportOptions struct {
	output      string
	keepPartial bool
	bars        io.Writer
	out         io.Writer
}

func runExport(ctx context.Context, a *app, fs afero.Fs, paths []string, opts exportOptions) error {
	cfg := a.cfg
	tree, err := a.builder(fs).BuildAll(ctx, paths)
	if err != nil {
		return err
	}
	removed := content.Prune(tree)
	a.log.Info().Int("images", tree.Size()).Int("pruned", removed).Msg("import tree built")
	if tree.Size() == 0 {
		fmt.Fprintln(opts.out, "Nothing to export")
		return nil
	}

	if cfg.Metadata.Enabled {
		populator := metadata.NewInitializer(metadata.NewExifReader(fs),
			metadata.WithInterval(cfg.Metadata.ProgressInterval),
			metadata.WithLogger(a.log),
		)
		j := job.Start(ctx, "metadata", func(ctx context.Context, report job.Reporter) (metadata.Result, error) {
			return populator.Populate(ctx, tree, report)
		})
		res, err := follow(opts.bars, j)
		if err != nil {
			return fmt.Errorf("metadata: %w", err)
		}
		a.log.Info().Int("populated", res.Populated).Int("failed", res.Failed).Msg("metadata read")
	}

	sm, err := scratch.New(fs, cfg.Export.ScratchDir)
	if err != nil {
		return err
	}
	ej := job.Start(ctx, "export", func(ctx context.Context, report job.Reporter) ([]export.Archive, error) {
		return export.NewExporter(sm,
			export.WithFs(fs),
			export.WithParallelism(cfg.Export.Parallelism),
			export.WithLogger(a.log),
			export.WithProgress(report),
		).Export(ctx, tree, cfg.Export.MaxEntriesPerChunk)
	})
	archives, err := follow(opts.bars, ej)
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && (!interrupted || len(archives) == 0) {
		if !opts.keepPartial || len(sm.Files()) == 0 {
			if cerr := sm.Cleanup(); cerr != nil {
				a.log.Error().Err(cerr).Str("dir", sm.Dir()).Msg("failed to remove scratch directory")
			}
		} else {
			a.log.Warn().Str("dir", sm.Dir()).Msg("partial archives kept")
		}
		return fmt.Errorf("export: %w", err)
	}

	ancestor, aerr := export.CommonAncestor(tree)
	if aerr != nil {
		return aerr
	}
	m := export.NewManifest(archives, ancestor, cfg.Export.MaxEntriesPerChunk)
	if cfg.Export.Manifest {
		dest := opts.output
		if dest == "" {
			dest = sm.Dir()
		}
		written, merr := m.Save(fs, dest)
		if merr != nil {
			return fmt.Errorf("manifest: %w", merr)
		}
		fmt.Fprintf(opts.out, "Manifest: %s\n", written)
	}
	printSummary(opts.out, m)

	if err != nil {
		// Finished archives are complete tar files; keep them with their manifest.
		a.log.Warn().Int("archives", len(archives)).Str("dir", sm.Dir()).Msg("export interrupted, finished archives kept")
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, m export.Manifest) {
	for _, a := range m.Archives {
		fmt.Fprintf(w, "  %s  %d files  %s\n", a.Path, len(a.Entries), humanize.Bytes(uint64(a.Size())))
	}
	fmt.Fprintf(w, "Exported %s files (%s) from %s into %d archives\n",
		humanize.Comma(int64(m.TotalFileCount)),
		humanize.Bytes(uint64(m.UncompressedSize)),
		m.Ancestor,
		m.ChunkCount,
	)
	if !m.OldestFileTS.IsZero() {
		fmt.Fprintf(w, "Files modified %s to %s\n", humanize.Time(m.OldestFileTS), humanize.Time(m.NewestFileTS))
	}
}
