package export

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dendrascience/trapstash/version"
	"github.com/spf13/afero"
)

// ManifestName is the file name used when Save is given a directory.
const ManifestName = "manifest.json"

// Manifest summarises one export. It is written next to the archives, never
// into them.
type Manifest struct {
	Version          string    `json:"trapstash_version"`
	Created          time.Time `json:"created"`
	Ancestor         string    `json:"ancestor"`
	MaxEntries       int       `json:"max_entries_per_chunk"`
	ChunkCount       int       `json:"chunk_count"`
	TotalFileCount   int       `json:"total_file_count"`
	UncompressedSize int64     `json:"uncompressed_size"`
	OldestFileTS     time.Time `json:"oldest_file_ts"`
	NewestFileTS     time.Time `json:"newest_file_ts"`
	Archives         []Archive `json:"archives"`
}

// NewManifest builds the manifest for archives written under ancestor.
func NewManifest(archives []Archive, ancestor string, maxEntries int) Manifest {
	m := Manifest{
		Version:    version.GetVersion(),
		Created:    time.Now().UTC(),
		Ancestor:   ancestor,
		MaxEntries: maxEntries,
		ChunkCount: len(archives),
		Archives:   archives,
	}
	for _, a := range archives {
		for _, e := range a.Entries {
			m.TotalFileCount++
			m.UncompressedSize += e.Size
			if m.OldestFileTS.IsZero() || e.Modified.Before(m.OldestFileTS) {
				m.OldestFileTS = e.Modified
			}
			if e.Modified.After(m.NewestFileTS) {
				m.NewestFileTS = e.Modified
			}
		}
	}
	return m
}

// Save writes the manifest as JSON to path, or to path/manifest.json when
// path is an existing directory. It returns the file written.
func (m Manifest) Save(fs afero.Fs, path string) (string, error) {
	if ok, _ := afero.IsDir(fs, path); ok {
		path = filepath.Join(path, ManifestName)
	}
	f, err := fs.Create(path)
	if err != nil {
		return "", err
	}
	je := json.NewEncoder(f)
	je.SetIndent("", "  ")
	if err := je.Encode(m); err != nil {
		f.Close()
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close manifest %s: %w", path, err)
	}
	return path, nil
}

// LoadManifest reads a manifest written by Save.
func LoadManifest(fs afero.Fs, path string) (Manifest, error) {
	var m Manifest
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}
