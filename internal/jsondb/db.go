// Package jsondb implements a simple database of JSON documents, backed by
// the filesystem.
//
// Each document is stored in its own file, named after the document with a
// ".json" suffix. Writes are atomic: a document is first written to a
// temporary file in the same directory and then renamed into place, so
// readers never observe a partially written document.
//
// The database does not lock. Callers that need read-modify-write semantics
// must serialize access themselves.
package jsondb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const suffix = ".json"

type JSONDatabase struct {
	dir  string
	perm os.FileMode
}

// New creates a database rooted at dir. Documents are written with
// permissions perm. The directory is not created or checked here; a missing
// directory is noticed on the first write.
func New(dir string, perm os.FileMode) *JSONDatabase {
	return &JSONDatabase{dir, perm}
}

// Read reads the document called name into document. It returns false and
// no error if the document does not exist.
func (db *JSONDatabase) Read(name string, document interface{}) (bool, error) {
	f, err := os.Open(db.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("error accessing db file %s: %w", name, err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(document); err != nil {
		return false, fmt.Errorf("error reading db file %s: %w", name, err)
	}

	return true, nil
}

// Exists reports whether a document called name has been written.
func (db *JSONDatabase) Exists(name string) (bool, error) {
	_, err := os.Stat(db.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error accessing db file %s: %w", name, err)
	}
	return true, nil
}

// List returns the sorted names of all documents in the database.
func (db *JSONDatabase) List() ([]string, error) {
	entries, err := os.ReadDir(db.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("error reading db dir %s: %w", db.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), suffix))
	}
	sort.Strings(names)

	return names, nil
}

// Write serializes document as JSON and stores it under name, replacing any
// previous document with that name.
func (db *JSONDatabase) Write(name string, document interface{}) error {
	return writeFileAtomically(db.dir, name+suffix, db.perm, func(f *os.File) error {
		return json.NewEncoder(f).Encode(document)
	})
}

func (db *JSONDatabase) path(name string) string {
	return filepath.Join(db.dir, name+suffix)
}

// writeFileAtomically creates filename in dir with mode, filling it with
// whatever writer writes. The file appears under its final name only if
// writer and every filesystem operation succeed.
func writeFileAtomically(dir, filename string, mode os.FileMode, writer func(f *os.File) error) error {
	tmpfile, err := os.CreateTemp(dir, filename+"-*.tmp")
	if err != nil {
		return err
	}

	// Remove the temporary file on any error. After a successful rename it
	// no longer exists and the error is ignored.
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	err = tmpfile.Chmod(mode)
	if err == nil {
		err = writer(tmpfile)
	}
	if err == nil {
		err = tmpfile.Sync()
	}

	if cerr := tmpfile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	return os.Rename(tmpfile.Name(), filepath.Join(dir, filename))
}
