package catalog

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// FileStorage keeps uploads under a root on an afero filesystem. Stored
// paths are relative to that root and use forward slashes.
type FileStorage struct {
	fs afero.Fs
}

// NewFileStorage roots storage at dir on fs. Paths that would escape dir
// are rejected by afero.BasePathFs.
func NewFileStorage(fs afero.Fs, dir string) *FileStorage {
	if dir == "" {
		dir = "uploads"
	}
	return &FileStorage{fs: afero.NewBasePathFs(fs, dir)}
}

// Save writes r to <folder>/<uuid>_<name> and returns that relative path.
func (s *FileStorage) Save(r io.Reader, folder, name string) (string, error) {
	if err := s.fs.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", folder, err)
	}

	rel := path.Join(folder, uuid.New().String()+"_"+sanitize(name))
	f, err := s.fs.OpenFile(rel, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", rel, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(rel)
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", rel, err)
	}
	return rel, nil
}

// Open opens a stored file for reading.
func (s *FileStorage) Open(rel string) (afero.File, os.FileInfo, error) {
	clean := path.Clean("/" + rel)
	f, err := s.fs.Open(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrFileNotFound
		}
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, ErrFileNotFound
	}
	return f, info, nil
}

// Remove deletes a stored file, ignoring files that are already gone.
func (s *FileStorage) Remove(rel string) error {
	err := s.fs.Remove(path.Clean("/" + rel))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "." || name == "" {
		return "file"
	}
	return name
}
