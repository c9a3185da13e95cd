package export

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/spf13/afero"
)

// ValidateArchive re-reads archive a and checks it against the entries it
// claims to hold and against the source files under ancestor. It returns one
// message per problem; an empty result means the archive round-trips.
func ValidateArchive(fs afero.Fs, a Archive, ancestor string) []string {
	var problems []string

	f, err := fs.Open(a.Path)
	if err != nil {
		return []string{fmt.Sprintf("failed to open archive: %v", err)}
	}
	defer f.Close()

	expected := make(map[string]Entry, len(a.Entries))
	for _, e := range a.Entries {
		expected[e.Name] = e
	}
	seen := make(map[string]bool)

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("failed to read archive: %v", err))
			break
		}
		name := hdr.Name
		if seen[name] {
			problems = append(problems, fmt.Sprintf("duplicate entry %s", name))
		}
		seen[name] = true

		if hdr.Typeflag != tar.TypeReg {
			problems = append(problems, fmt.Sprintf("entry %s is not a regular file", name))
			continue
		}
		if strings.HasPrefix(name, "/") || path.Clean(name) != name || name == ".." || strings.HasPrefix(name, "../") {
			problems = append(problems, fmt.Sprintf("entry %s is not a clean relative path", name))
			continue
		}

		got, n, err := HashReader(tr)
		if err != nil {
			problems = append(problems, fmt.Sprintf("failed to read entry %s: %v", name, err))
			continue
		}

		want, listed := expected[name]
		if len(a.Entries) > 0 && !listed {
			problems = append(problems, fmt.Sprintf("entry %s is not in the manifest", name))
		}
		if listed && want.Digest != got {
			problems = append(problems, fmt.Sprintf("entry %s digest %s does not match manifest %s", name, got, want.Digest))
		}

		src := SourcePath(ancestor, name)
		if listed && want.Source != "" && want.Source != src {
			problems = append(problems, fmt.Sprintf("entry %s resolves to %s, manifest says %s", name, src, want.Source))
		}
		sf, err := fs.Open(src)
		if err != nil {
			problems = append(problems, fmt.Sprintf("source for %s: %v", name, err))
			continue
		}
		srcSum, srcSize, err := HashReader(sf)
		sf.Close()
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("failed to read source %s: %v", src, err))
		case srcSize != n:
			problems = append(problems, fmt.Sprintf("entry %s has %d bytes, source has %d", name, n, srcSize))
		case srcSum != got:
			problems = append(problems, fmt.Sprintf("entry %s content differs from %s", name, src))
		}
	}

	for _, e := range a.Entries {
		if !seen[e.Name] {
			problems = append(problems, fmt.Sprintf("manifest entry %s missing from archive", e.Name))
		}
	}
	return problems
}
