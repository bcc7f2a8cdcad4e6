// Package files is the filesystem capability the storage core runs on:
// text reads and writes relative to two well-known roots.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"vdstore/internal/logging"
)

var logger = logging.For("files")

// Dir selects one of the well-known roots.
type Dir int

const (
	Documents Dir = iota
	Cache
)

func (d Dir) String() string {
	switch d {
	case Documents:
		return "documents"
	case Cache:
		return "cache"
	default:
		return fmt.Sprintf("dir(%d)", int(d))
	}
}

// ErrNotFound matches (errors.Is) reads and removes of missing files.
var ErrNotFound = fs.ErrNotExist

const tempMarker = ".tmp-"

// FS is the capability contract. Names are slash separated and relative
// to the selected root.
type FS interface {
	Exists(dir Dir, name string) (bool, error)
	ReadText(dir Dir, name string) (string, error)
	WriteText(dir Dir, name, text string) error
	Remove(dir Dir, name string) error
	Root(dir Dir) string
}

type root struct {
	path string
	fs   afero.Fs
}

// Store implements FS on top of afero, each root jailed in a BasePathFs.
type Store struct {
	documents root
	cache     root
}

// New returns a Store on the OS filesystem.
func New(documentsDir, cacheDir string) *Store {
	return NewWithFs(afero.NewOsFs(), documentsDir, cacheDir)
}

// NewWithFs returns a Store on an arbitrary afero filesystem, typically
// afero.NewMemMapFs() in tests.
func NewWithFs(base afero.Fs, documentsDir, cacheDir string) *Store {
	return &Store{
		documents: root{path: documentsDir, fs: afero.NewBasePathFs(base, documentsDir)},
		cache:     root{path: cacheDir, fs: afero.NewBasePathFs(base, cacheDir)},
	}
}

func (s *Store) root(dir Dir) (root, error) {
	switch dir {
	case Documents:
		return s.documents, nil
	case Cache:
		return s.cache, nil
	default:
		return root{}, fmt.Errorf("unknown root %s", dir)
	}
}

func (s *Store) Root(dir Dir) string {
	r, err := s.root(dir)
	if err != nil {
		return ""
	}
	return r.path
}

func (s *Store) Exists(dir Dir, name string) (bool, error) {
	r, err := s.root(dir)
	if err != nil {
		return false, err
	}
	ok, err := afero.Exists(r.fs, name)
	if err != nil {
		return false, fmt.Errorf("stat %s/%s: %w", dir, name, err)
	}
	return ok, nil
}

func (s *Store) ReadText(dir Dir, name string) (string, error) {
	r, err := s.root(dir)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(r.fs, name)
	if err != nil {
		return "", fmt.Errorf("reading %s/%s: %w", dir, name, err)
	}
	return string(data), nil
}

// WriteText replaces the file with text. The content goes to a uniquely
// named sibling first and is renamed into place, so readers observe
// either the previous or the new content. Parent directories are created.
func (s *Store) WriteText(dir Dir, name, text string) error {
	r, err := s.root(dir)
	if err != nil {
		return err
	}
	if err := r.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return fmt.Errorf("creating parent of %s/%s: %w", dir, name, err)
	}

	tmp := name + tempMarker + uuid.NewString()
	if err := afero.WriteFile(r.fs, tmp, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s/%s: %w", dir, name, err)
	}
	if err := r.fs.Rename(tmp, name); err != nil {
		_ = r.fs.Remove(tmp)
		return fmt.Errorf("replacing %s/%s: %w", dir, name, err)
	}
	logger.Debug("wrote file", "dir", dir.String(), "name", name, "bytes", len(text))
	return nil
}

func (s *Store) Remove(dir Dir, name string) error {
	r, err := s.root(dir)
	if err != nil {
		return err
	}
	if err := r.fs.Remove(name); err != nil {
		return fmt.Errorf("removing %s/%s: %w", dir, name, err)
	}
	return nil
}

// IsTemp reports whether a file name belongs to an in-flight WriteText.
func IsTemp(name string) bool {
	return strings.Contains(path.Base(name), tempMarker)
}

// IsNotFound reports whether err means the file does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
