// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package settings

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// DirStore keeps one plain-text file per key in a directory. The filename
// is the key and the trimmed file contents are the value. A missing
// directory or file reads as absent.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir. The directory is created on
// the first Set.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

// Get reads the file named key.
func (s *DirStore) Get(_ context.Context, key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, eris.Wrapf(err, "settings: reading %s", key)
	}
	value := strings.TrimSpace(string(data))
	return value, value != "", nil
}

// Set writes value to the file named key via a temp file and rename.
func (s *DirStore) Set(_ context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return eris.Wrapf(err, "settings: creating directory %s", s.dir)
	}

	tmp, err := os.CreateTemp(s.dir, ".settings-*.tmp")
	if err != nil {
		return eris.Wrap(err, "settings: creating temp file")
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.WriteString(strings.TrimSpace(value) + "\n")
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(writeErr, "settings: writing %s", key)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(closeErr, "settings: closing %s", key)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, key)); err != nil {
		os.Remove(tmpPath)
		return eris.Wrapf(err, "settings: storing %s", key)
	}
	return nil
}

// Close is a no-op for the directory store.
func (s *DirStore) Close() error { return nil }

// validKey rejects keys that would escape the directory or hide as dotfiles.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) {
		return eris.Errorf("settings: invalid key %q", key)
	}
	return nil
}
