package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dendrascience/trapstash/content"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewTreeCmd creates the tree subcommand, which prints the pruned import tree.
func NewTreeCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "tree PATH...",
		Short: "Show the import tree",
		Long: `Build the import tree for one or more paths and print it.

Directories are pruned first, so only folders that lead to importable
images are shown. Use --raw to see the tree before pruning.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := a.builder(afero.NewOsFs()).BuildAll(cmd.Context(), args)
			if err != nil {
				return err
			}
			if !raw {
				if n := content.Prune(tree); n > 0 {
					a.log.Debug().Int("removed", n).Msg("pruned directories")
				}
			}
			printTree(cmd.OutOrStdout(), tree)
			return nil
		},
	}

	addImportFlags(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Skip pruning")

	return cmd
}

func printTree(w io.Writer, tree *content.Directory) {
	dirs := 0
	tree.Walk(func(n content.Node, depth int) bool {
		if n.Kind() == content.KindDirectory {
			dirs++
		}
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), n)
		return true
	})
	fmt.Fprintf(w, "%s images in %s directories\n", humanize.Comma(int64(tree.Size())), humanize.Comma(int64(dirs)))
}
