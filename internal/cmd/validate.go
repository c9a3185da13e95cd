package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/dendrascience/trapstash/export"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// errInvalid is returned when validation finds problems.
var errInvalid = errors.New("archives failed validation")

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate MANIFEST",
		Short: "Check exported archives against their manifest",
		Long: `Re-read every archive listed in a manifest and check it.

Each entry must be a regular file with a clean relative name, appear once,
match the digest recorded in the manifest and match the bytes of the source
file it was exported from. Exits non-zero if any archive has problems.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(a, afero.NewOsFs(), args[0], cmd.OutOrStdout(), verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List archives without problems too")

	return cmd
}

func runValidate(a *app, fs afero.Fs, path string, w io.Writer, verbose bool) error {
	m, err := export.LoadManifest(fs, path)
	if err != nil {
		return err
	}
	a.log.Debug().Str("manifest", path).Int("archives", len(m.Archives)).Msg("validating")

	bad := 0
	for _, archive := range m.Archives {
		problems := export.ValidateArchive(fs, archive, m.Ancestor)
		if len(problems) == 0 {
			if verbose {
				fmt.Fprintf(w, "✓ %s (%d entries)\n", archive.Path, len(archive.Entries))
			}
			continue
		}
		bad++
		fmt.Fprintf(w, "✗ %s\n", archive.Path)
		for _, p := range problems {
			fmt.Fprintf(w, "    %s\n", p)
		}
	}
	if len(m.Archives) != m.ChunkCount {
		bad++
		fmt.Fprintf(w, "manifest lists %d archives but records a chunk count of %d\n", len(m.Archives), m.ChunkCount)
	}

	fmt.Fprintf(w, "Validated %d archives: %d with problems\n", len(m.Archives), bad)
	if bad > 0 {
		return errInvalid
	}
	return nil
}
