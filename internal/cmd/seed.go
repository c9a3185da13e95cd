package cmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewSeedCmd creates the seed subcommand, which writes a fake camera trap
// import for trying out the other commands.
func NewSeedCmd(a *app) *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate a fake camera trap import",
		Long: `Generate a directory tree shaped like a camera trap field collection.

Creates SITE/CAMERA/YYYY-MM-DD folders holding small JPEGs with EXIF
Make, Model, DateTime and ImageDescription tags. Sprinkles in the clutter a
real card carries: sidecar notes, macOS metadata files, camcorder folders
and empty directories, all of which import should leave out.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := runSeed(afero.NewOsFs(), opts)
			if err != nil {
				return err
			}
			a.log.Info().
				Int("images", stats.images).
				Int("clutter", stats.clutter).
				Str("deployment", stats.deployment).
				Msg("seeded")
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Path to output directory (required)")
	cmd.Flags().IntVarP(&opts.count, "count", "c", 500, "Number of images to generate")
	cmd.Flags().IntVar(&opts.sites, "sites", 2, "Number of sites")
	cmd.Flags().IntVar(&opts.cameras, "cameras", 2, "Cameras per site")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "Random seed")

	cmd.MarkFlagRequired("output")

	return cmd
}

type seedOptions struct {
	output  string
	count   int
	sites   int
	cameras int
	seed    uint64
}

type seedStats struct {
	images     int
	clutter    int
	deployment string
}

var cameraModels = [][2]string{
	{"Bushnell", "Core DS-4K"},
	{"Reconyx", "HyperFire 2"},
	{"Browning", "Recon Force Elite"},
	{"Spypoint", "Flex"},
}

func runSeed(fs afero.Fs, opts seedOptions) (seedStats, error) {
	stats := seedStats{deployment: uuid.New().String()}
	if opts.sites < 1 || opts.cameras < 1 {
		return stats, fmt.Errorf("need at least one site and camera, got %d and %d", opts.sites, opts.cameras)
	}
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	write := func(path string, data []byte) error {
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return afero.WriteFile(fs, path, data, 0o644)
	}

	readme := fmt.Sprintf("deployment %s\nsites %d, cameras per site %d\n", stats.deployment, opts.sites, opts.cameras)
	if err := write(filepath.Join(opts.output, "README.txt"), []byte(readme)); err != nil {
		return stats, err
	}
	stats.clutter++

	for i := 0; i < opts.count; i++ {
		site := fmt.Sprintf("Site%02d", i%opts.sites+1)
		camIdx := (i / opts.sites) % opts.cameras
		camera := fmt.Sprintf("Cam%c", 'A'+camIdx)
		model := cameraModels[camIdx%len(cameraModels)]

		shot := base.Add(time.Duration(rng.IntN(30*24*3600)) * time.Second)
		dir := filepath.Join(opts.output, site, camera, shot.Format("2006-01-02"))
		name := fmt.Sprintf("IMG_%04d.JPG", i)

		img := seedJPEG(model[0], model[1], shot.Format("2006:01:02 15:04:05"), stats.deployment, rng)
		if err := write(filepath.Join(dir, name), img); err != nil {
			return stats, err
		}
		stats.images++

		switch rng.IntN(20) {
		case 0:
			err := write(filepath.Join(dir, "._"+name), []byte{0x00, 0x05, 0x16, 0x07})
			if err != nil {
				return stats, err
			}
			stats.clutter++
		case 1:
			err := write(filepath.Join(dir, fmt.Sprintf("IMG_%04d.txt", i)), []byte("field note\n"))
			if err != nil {
				return stats, err
			}
			stats.clutter++
		}
	}

	for s := 1; s <= opts.sites; s++ {
		site := filepath.Join(opts.output, fmt.Sprintf("Site%02d", s))
		if err := write(filepath.Join(site, ".DS_Store"), []byte("Bud1")); err != nil {
			return stats, err
		}
		if err := write(filepath.Join(site, "PRIVATE", "AVF_INFO", "AVIN0001.BNP"), []byte{0x01}); err != nil {
			return stats, err
		}
		if err := fs.MkdirAll(filepath.Join(site, "empty", "nothing"), 0o755); err != nil {
			return stats, err
		}
		stats.clutter += 2
	}
	return stats, nil
}

// seedJPEG returns a tiny JPEG whose APP1 segment holds a big-endian TIFF IFD
// with ASCII tags, followed by a few random bytes of "scan data".
func seedJPEG(cameraMake, model, dateTime, description string, rng *rand.Rand) []byte {
	tags := []struct {
		id  uint16
		val string
	}{
		{0x010E, description},
		{0x010F, cameraMake},
		{0x0110, model},
		{0x0132, dateTime},
	}

	var ifd, data bytes.Buffer
	be := binary.BigEndian
	ifd.WriteString("MM")
	binary.Write(&ifd, be, uint16(42))
	binary.Write(&ifd, be, uint32(8))
	binary.Write(&ifd, be, uint16(len(tags)))
	dataOff := uint32(8 + 2 + 12*len(tags) + 4)
	for _, t := range tags {
		v := t.val + "\x00"
		binary.Write(&ifd, be, t.id)
		binary.Write(&ifd, be, uint16(2))
		binary.Write(&ifd, be, uint32(len(v)))
		binary.Write(&ifd, be, dataOff+uint32(data.Len()))
		data.WriteString(v)
	}
	binary.Write(&ifd, be, uint32(0))
	ifd.Write(data.Bytes())

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	binary.Write(&out, be, uint16(2+6+ifd.Len()))
	out.WriteString("Exif\x00\x00")
	out.Write(ifd.Bytes())
	scan := make([]byte, 64+rng.IntN(192))
	for i := range scan {
		// No 0xFF, so no stray markers.
		scan[i] = byte(rng.IntN(0xFF))
	}
	out.Write(scan)
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}
