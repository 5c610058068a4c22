// Package cursor persists the single opaque cursor string each configured
// source resumes from across restarts. One file per source lives under a
// shared directory; writes are crash-safe via write-temp-then-rename so a
// reader never observes a partially written cursor.
package cursor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shedrachokonofua/otel-journal-gatewayd-forwarder/internal/errs"
)

// Store persists cursors under a single directory, one file per source,
// named "{source}.cursor".
type Store struct {
	dir string
}

// NewStore creates cursor_dir (mode 0700) if it does not already exist.
// Failure here is fatal per spec.md §4.1 and is returned as an
// errs.KindCursorIO error naming the directory so the Supervisor can abort
// startup.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errs.New(errs.KindCursorIO, "cursor.NewStore", fmt.Errorf("creating cursor_dir %s: %w", dir, err))
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".cursor")
}

// Load returns the persisted cursor for name. ok is false when the file is
// missing or empty ("no prior state"); a read failure returns a
// errs.KindCursorIO error.
func (s *Store) Load(name string) (cursor string, ok bool, err error) {
	data, readErr := os.ReadFile(s.path(name))
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return "", false, nil
		}
		return "", false, errs.New(errs.KindCursorIO, "cursor.Load", readErr)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// Store atomically persists cursor as the new contents of name's cursor
// file: write a ".tmp" sibling in the same directory, flush it to durable
// storage, then rename it over the final path. The rename is atomic on a
// single filesystem, so a crash at any point leaves either the previous
// contents or the full new contents — never a partial write (invariant 5).
func (s *Store) Store(name, cursorValue string) error {
	final := s.path(name)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errs.New(errs.KindCursorIO, "cursor.Store", err)
	}

	if _, err := f.WriteString(cursorValue); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.New(errs.KindCursorIO, "cursor.Store", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.New(errs.KindCursorIO, "cursor.Store", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.New(errs.KindCursorIO, "cursor.Store", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return errs.New(errs.KindCursorIO, "cursor.Store", err)
	}

	// Best effort: fsync the directory entry so the rename itself survives
	// a crash on filesystems that require it (ext4, xfs).
	if dir, err := os.Open(s.dir); err == nil {
		dir.Sync()
		dir.Close()
	}
	return nil
}

// Reset deletes name's cursor file. A missing file is not an error.
func (s *Store) Reset(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
		return errs.New(errs.KindCursorIO, "cursor.Reset", err)
	}
	return nil
}
