package cmd

import (
	"github.com/dendrascience/trapstash/config"
	"github.com/dendrascience/trapstash/content"
	"github.com/dendrascience/trapstash/internal/logging"
	"github.com/dendrascience/trapstash/version"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto config keys. Each subcommand only
// declares the flags it uses; the rest are skipped when binding.
var flagKeys = map[string]string{
	"log-level":   "log.level",
	"log-format":  "log.format",
	"ext":         "import.extensions",
	"ignore":      "import.ignore",
	"max-entries": "export.maxEntriesPerChunk",
	"parallelism": "export.parallelism",
	"scratch-dir": "export.scratchDir",
	"manifest":    "export.manifest",
	"metadata":    "metadata.enabled",
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.BindFlags(a.v, cmd.Flags(), flagKeys); err != nil {
		return err
	}
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	if used := a.v.ConfigFileUsed(); used != "" {
		a.log.Debug().Str("file", used).Msg("loaded config")
	}
	return nil
}

func (a *app) builder(fs afero.Fs) *content.Builder {
	return content.NewBuilder(
		content.WithFs(fs),
		content.WithImportable(content.NewImportRules(a.cfg.Import.Extensions, a.cfg.Import.Ignore...)),
		content.WithIgnoreFile(a.cfg.Import.IgnoreFile),
		content.WithLogger(a.log),
	)
}

// addImportFlags declares the flags that shape tree building.
func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("ext", content.DefaultExtensions, "File extensions to import")
	cmd.Flags().StringSlice("ignore", nil, "Extra gitignore-style patterns to skip")
}

// NewRootCmd creates and returns the root cobra command for the trapstash CLI.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New(), log: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "trapstash",
		Short: "trapstash - Stage camera trap imports into fixed-size archives",
		Long: `trapstash imports camera trap image folders, prunes everything that holds
no images, reads EXIF metadata and packs the images into evenly sized tar
archives ready for upload.

Use subcommands to perform different operations:
  - tree: Show the import tree that would be exported
  - export: Build, populate and export archives with a manifest
  - validate: Check exported archives against their manifest
  - mount: Browse an import through a read-only FUSE filesystem
  - count: Count importable files
  - seed: Generate a fake camera trap card for testing`,
		Version:           version.GetFullVersion(),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default ./trapstash.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")

	groupImports := "imports"
	groupUtilities := "utilities"

	rootCmd.AddGroup(&cobra.Group{
		ID:    groupImports,
		Title: "Import Operations",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    groupUtilities,
		Title: "Utility Commands",
	})

	treeCmd := NewTreeCmd(a)
	exportCmd := NewExportCmd(a)
	validateCmd := NewValidateCmd(a)
	mountCmd := NewMountCmd(a)
	countCmd := NewCountCmd(a)
	seedCmd := NewSeedCmd(a)

	treeCmd.GroupID = groupImports
	exportCmd.GroupID = groupImports
	validateCmd.GroupID = groupImports
	mountCmd.GroupID = groupImports
	countCmd.GroupID = groupUtilities
	seedCmd.GroupID = groupUtilities

	rootCmd.AddCommand(treeCmd, exportCmd, validateCmd, mountCmd, countCmd, seedCmd)

	return rootCmd
}
