package profile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Entry describes one profile directory found on disk.
type Entry struct {
	SessionID   string
	ProfileName string
	Dir         string
	ModifiedAt  time.Time
}

// Store manages profile directories under a single root.
type Store struct {
	root string
}

// NewStore returns a store rooted at root. The directory is created lazily.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the base storage directory.
func (s *Store) Root() string { return s.root }

// Dir returns the profile directory for a session id.
func (s *Store) Dir(sessionID string) string {
	return filepath.Join(s.root, DirName(sessionID))
}

// Ensure creates the profile directory for a session id if missing.
func (s *Store) Ensure(sessionID string) (string, error) {
	dir := s.Dir(sessionID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("profile.Store.Ensure: %w", err)
	}
	return dir, nil
}

// Exists reports whether a profile directory exists for a session id.
func (s *Store) Exists(sessionID string) bool {
	info, err := os.Stat(s.Dir(sessionID))
	return err == nil && info.IsDir()
}

// List scans the root for profile directories, newest first. A missing root
// yields an empty list.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("profile.Store.List: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !d.IsDir() {
			continue
		}
		id, ok := SessionIDFromDir(d.Name())
		if !ok {
			continue
		}
		var mod time.Time
		if info, err := d.Info(); err == nil {
			mod = info.ModTime()
		}
		entries = append(entries, Entry{
			SessionID:   id,
			ProfileName: ProfileName(id),
			Dir:         filepath.Join(s.root, d.Name()),
			ModifiedAt:  mod,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ModifiedAt.Equal(entries[j].ModifiedAt) {
			return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
		}
		return entries[i].SessionID < entries[j].SessionID
	})
	return entries, nil
}

// Purge removes the profile directory for a session id. Purging a missing
// profile is not an error.
func (s *Store) Purge(sessionID string) error {
	if err := os.RemoveAll(s.Dir(sessionID)); err != nil {
		return fmt.Errorf("profile.Store.Purge: %w", err)
	}
	return nil
}
