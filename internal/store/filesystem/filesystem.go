// Package filesystem keeps catalog snapshot files in a local directory. Files
// are written once under a timestamped name and never modified; retention is
// handled by deleting the oldest names.
package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// nameFormat is the UTC timestamp layout embedded in snapshot names. It sorts
// lexically in chronological order.
const nameFormat = "20060102T150405.000Z"

var nameRE = regexp.MustCompile(`^catalog-[0-9]{8}T[0-9]{6}\.[0-9]{3}Z\.(csv|yaml)$`)

// ErrInvalidName is returned for names that are not snapshot names.
var ErrInvalidName = errors.New("invalid snapshot name")

// Entry describes one stored snapshot.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Store implements snapshot storage on the local filesystem.
type Store struct {
	root string
}

// New returns a filesystem-backed snapshot store rooted at dir. The directory
// must already exist (0700 recommended).
func New(root string) (*Store, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("snapshot root is not a directory")
	}
	return &Store{root: root}, nil
}

// Name builds the snapshot name for t with the given extension ("csv" or "yaml").
func Name(t time.Time, ext string) string {
	return "catalog-" + t.UTC().Format(nameFormat) + "." + ext
}

func (s *Store) path(name string) string { return filepath.Join(s.root, name) }

// Write stores the contents of r under name. Data goes to a temporary file
// that is synced and renamed into place, so readers never see partial files.
func (s *Store) Write(name string, r io.Reader) error {
	if err := validateName(name); err != nil {
		return err
	}
	final := s.path(name)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("snapshot %s: %w", name, os.ErrExist)
	}
	tmp := s.path("." + name + ".tmp")
	// #nosec G304: path is a fixed root plus a validated name.
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err = os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Open returns a reader for a stored snapshot.
func (s *Store) Open(name string) (io.ReadCloser, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return os.Open(s.path(name)) // #nosec G304 path constructed internally
}

// Delete removes a snapshot. An empty name is a no-op.
func (s *Store) Delete(name string) error {
	if name == "" {
		return nil
	}
	if err := validateName(name); err != nil {
		return err
	}
	return os.Remove(s.path(name))
}

// List returns stored snapshots, oldest first. Temporary and foreign files
// are skipped.
func (s *Store) List() ([]Entry, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if e.IsDir() || !nameRE.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, Entry{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// validateName accepts only names produced by Name. This rules out path
// separators and traversal.
func validateName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
