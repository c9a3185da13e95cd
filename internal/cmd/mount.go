package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/dendrascience/trapstash/content"
	"github.com/dendrascience/trapstash/trapfs"
	"github.com/dendrascience/trapstash/version"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewMountCmd creates the mount subcommand.
func NewMountCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "mount PATH... MOUNTPOINT",
		Short: "Browse an import through a read-only filesystem",
		Long: `Build the import tree for one or more paths and mount it read-only.

The mounted view shows exactly what export would pack. Image metadata is
available as user.trap.* extended attributes. Interrupt to unmount.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, mountpoint := args[:len(args)-1], args[len(args)-1]
			for _, p := range paths {
				if pathsOverlap(p, mountpoint) {
					return fmt.Errorf("mountpoint %s overlaps import path %s", mountpoint, p)
				}
			}

			src := afero.NewOsFs()
			tree, err := a.builder(src).BuildAll(cmd.Context(), paths)
			if err != nil {
				return err
			}
			if !raw {
				content.Prune(tree)
			}
			return serve(a, trapfs.New(tree, src, a.log), mountpoint)
		},
	}

	addImportFlags(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Skip pruning")

	return cmd
}

func serve(a *app, filesystem *trapfs.FS, mountpoint string) error {
	c, err := fuse.Mount(
		mountpoint,
		fuse.FSName("trapstash"),
		fuse.Subtype("trapstash"),
		fuse.ReadOnly(),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		a.log.Info().Msg("received interrupt signal, unmounting")
		if err := fuse.Unmount(mountpoint); err != nil {
			a.log.Error().Err(err).Msg("unmount failed")
		}
	}()

	a.log.Info().Str("version", version.GetVersion()).Str("mountpoint", mountpoint).Msg("trapstash mounted")
	if err := fs.Serve(c, filesystem); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

// pathsOverlap reports whether either path contains the other.
func pathsOverlap(path1, path2 string) bool {
	abs1, err1 := filepath.Abs(path1)
	abs2, err2 := filepath.Abs(path2)
	if err1 != nil || err2 != nil {
		return filepath.Clean(path1) == filepath.Clean(path2)
	}
	if abs1 == abs2 {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(abs1, strings.TrimSuffix(abs2, sep)+sep) ||
		strings.HasPrefix(abs2, strings.TrimSuffix(abs1, sep)+sep)
}
