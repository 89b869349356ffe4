// Package staging persists uploaded blobs to uniquely named local files for
// the duration of one upload-and-infer cycle and guarantees their deletion.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store writes staged artifacts under a base directory and tracks them until
// they are released.
type Store struct {
	baseDir string
	ttl     time.Duration

	mu   sync.Mutex
	live map[string]time.Time // path -> staged-at
}

// Staged is a handle to one artifact on local storage. Release is safe to
// call more than once and when the file no longer exists.
type Staged struct {
	Path     string
	Name     string // original file name
	Size     int64
	store    *Store
	released bool
	mu       sync.Mutex
}

// NewStore creates the staging directory if needed. ttl bounds how long a
// leaked artifact may survive before the sweeper removes it.
func NewStore(baseDir string, ttl time.Duration) (*Store, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "mediachat-staging")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultStagedTTL
	}
	return &Store{
		baseDir: baseDir,
		ttl:     ttl,
		live:    make(map[string]time.Time),
	}, nil
}

// Stage writes the reader's bytes to a fresh collision-free path derived from
// the original file name.
func (s *Store) Stage(name string, r io.Reader) (*Staged, error) {
	base := sanitize(filepath.Base(name))
	path := filepath.Join(s.baseDir, uuid.NewString()+"-"+base)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("stage artifact: %w", err)
	}
	size, err := io.Copy(f, r)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("stage artifact: %w", err)
	}

	s.mu.Lock()
	s.live[path] = time.Now()
	s.mu.Unlock()

	return &Staged{Path: path, Name: base, Size: size, store: s}, nil
}

// Release deletes the staged file. Missing files are not an error.
func (f *Staged) Release() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return nil
	}
	f.released = true
	f.store.forget(f.Path)
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release artifact: %w", err)
	}
	return nil
}

// WithStaged stages the reader and runs fn, releasing the artifact on every
// exit path.
func (s *Store) WithStaged(name string, r io.Reader, fn func(*Staged) error) error {
	staged, err := s.Stage(name, r)
	if err != nil {
		return err
	}
	defer staged.Release()
	return fn(staged)
}

// Group tracks several staged artifacts (per-file inputs plus a merged
// output) so they can be released together.
type Group struct {
	store *Store
	files []*Staged
}

// NewGroup starts an empty artifact group.
func (s *Store) NewGroup() *Group {
	return &Group{store: s}
}

// Stage stages one more artifact into the group.
func (g *Group) Stage(name string, r io.Reader) (*Staged, error) {
	staged, err := g.store.Stage(name, r)
	if err != nil {
		return nil, err
	}
	g.files = append(g.files, staged)
	return staged, nil
}

// Release deletes every artifact the group staged. All files are attempted
// even if some removals fail.
func (g *Group) Release() error {
	var errs []error
	for _, f := range g.files {
		if err := f.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) forget(path string) {
	s.mu.Lock()
	delete(s.live, path)
	s.mu.Unlock()
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || strings.Trim(name, ".") == "" {
		name = "artifact"
	}
	return name
}
