// Package scratch owns the temporary files an export writes into.
//
// A Manager creates one private directory per session and hands out unique,
// already-reserved file paths inside it. Writers never delete what they were
// given; the Manager's owner decides when to call Cleanup.
package scratch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// DirPrefix names every session directory.
const DirPrefix = "trapstash-"

var ErrClosed = errors.New("scratch directory already cleaned up")

// Manager hands out temp file paths under one session directory.
type Manager struct {
	fs    afero.Fs
	dir   string
	mu    sync.Mutex
	files []string
	done  bool
}

// New creates a session directory under parent. An empty parent uses the OS
// temp directory.
func New(fs afero.Fs, parent string) (*Manager, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir := filepath.Join(parent, DirPrefix+uuid.NewString())
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &Manager{fs: fs, dir: dir}, nil
}

// Dir returns the session directory.
func (m *Manager) Dir() string { return m.dir }

// NewTempFile returns a fresh path whose name keeps the base and extension of
// suggested with ten random characters in between, e.g. chunk-1a2b3c4d5e.tar.
// The file is created empty so no later call can hand out the same name.
func (m *Manager) NewTempFile(suggested string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return "", ErrClosed
	}

	name := filepath.Base(suggested)
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "tmp"
	}

	for {
		p := filepath.Join(m.dir, base+"-"+randomSuffix()+ext)
		f, err := m.fs.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reserve %s: %w", p, err)
		}
		f.Close()
		m.files = append(m.files, p)
		return p, nil
	}
}

// Files lists every path handed out so far, in order.
func (m *Manager) Files() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.files...)
}

// Cleanup removes the session directory and everything in it.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	m.done = true
	return m.fs.RemoveAll(m.dir)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
