package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"redundancy-analyzer/src/model"
)

// Store persists JSON documents by analysis id and document kind
type Store interface {
	Put(id, kind string, v any) error
	// Get decodes the document into v and reports whether it exists
	Get(id, kind string, v any) (bool, error)
	Delete(id string) error
	List() ([]string, error)
}

// FileStore keeps one directory per analysis: <dir>/<id>/<kind>.json
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory
func (s *FileStore) Dir() string {
	return s.dir
}

// Put writes v atomically, replacing any previous document
func (s *FileStore) Put(id, kind string, v any) error {
	if err := checkKey(id, kind); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s for %s: %w", kind, id, err)
	}

	dir := filepath.Join(s.dir, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.WrapError(model.ErrFileAccess, err, "creating state directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, kind+".*.tmp")
	if err != nil {
		return model.WrapError(model.ErrFileAccess, err, "creating temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return model.WrapError(model.ErrFileAccess, err, "writing %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return model.WrapError(model.ErrFileAccess, err, "syncing %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return model.WrapError(model.ErrFileAccess, err, "closing %s", tmpName)
	}
	if err := os.Rename(tmpName, s.path(id, kind)); err != nil {
		return model.WrapError(model.ErrFileAccess, err, "replacing %s", s.path(id, kind))
	}
	return nil
}

// Get reads a document; a missing one is not an error
func (s *FileStore) Get(id, kind string, v any) (bool, error) {
	if err := checkKey(id, kind); err != nil {
		return false, err
	}
	data, err := os.ReadFile(s.path(id, kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, model.WrapError(model.ErrFileAccess, err, "reading %s for %s", kind, id)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, model.WrapError(model.ErrFileAccess, err, "decoding %s for %s", kind, id).WithRecoverable(false)
	}
	return true, nil
}

// Delete removes every document of an analysis
func (s *FileStore) Delete(id string) error {
	if err := checkKey(id, "state"); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.dir, id)); err != nil {
		return model.WrapError(model.ErrFileAccess, err, "removing state of %s", id)
	}
	return nil
}

// List returns the ids of all stored analyses, sorted
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, model.WrapError(model.ErrFileAccess, err, "listing %s", s.dir)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) path(id, kind string) string {
	return filepath.Join(s.dir, id, kind+".json")
}

func checkKey(id, kind string) error {
	for _, part := range []string{id, kind} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return model.NewError(model.ErrInvalidOptions, "invalid state key %q/%q", id, kind).WithRecoverable(false)
		}
	}
	return nil
}
