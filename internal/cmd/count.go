package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/dendrascience/trapstash/content"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewCountCmd creates the count subcommand.
func NewCountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count [PATH]...",
		Short: "Count importable images",
		Long: `Count the images an import would pick up, and their total size.

Each path is counted with the same rules as export: extension list, ignore
patterns and any .trapignore file at the root. Defaults to the current
directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			return runCount(cmd.Context(), a, afero.NewOsFs(), args, cmd.OutOrStdout())
		},
	}

	addImportFlags(cmd)

	return cmd
}

func runCount(ctx context.Context, a *app, fs afero.Fs, paths []string, w io.Writer) error {
	b := a.builder(fs)
	var files int
	var bytes uint64
	for _, p := range paths {
		tree, err := b.BuildFromDirectory(ctx, p)
		if err != nil {
			return err
		}
		n, size := countLeaves(fs, tree)
		fmt.Fprintf(w, "%s: %s images (%s)\n", p, humanize.Comma(int64(n)), humanize.Bytes(size))
		files += n
		bytes += size
	}
	if len(paths) > 1 {
		fmt.Fprintf(w, "Total: %s images (%s)\n", humanize.Comma(int64(files)), humanize.Bytes(bytes))
	}
	return nil
}

func countLeaves(fs afero.Fs, tree *content.Directory) (int, uint64) {
	var size uint64
	leaves := tree.Leaves()
	for _, l := range leaves {
		if info, err := fs.Stat(l.Path()); err == nil {
			size += uint64(info.Size())
		}
	}
	return len(leaves), size
}
