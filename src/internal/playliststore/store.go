// Package playliststore keeps the last playlist text that was loaded successfully for each
// source, so the server can still start when the source is unreachable.
package playliststore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Latest when nothing was stored for a source.
var ErrNotFound = errors.New("playliststore: no stored playlist")

// Entry is one stored playlist.
type Entry struct {
	Source    string    `json:"source"`
	Content   string    `json:"-"`
	Channels  int       `json:"channels"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Store struct {
	dir   string
	db    *sql.DB
	mutex sync.RWMutex
}

const schema = `
CREATE TABLE IF NOT EXISTS playlists (
	source TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	channels INTEGER NOT NULL,
	fetched_at INTEGER NOT NULL
);
`

// Open opens (and creates) playlists.db below dir. Inside a snap the database lives in
// SNAP_COMMON instead.
func Open(dir string) (*Store, error) {
	if common := os.Getenv("SNAP_COMMON"); common != "" {
		dir = filepath.Join(common, "pandatv_store")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "playlists.db"))
	if err != nil {
		return nil, err
	}

	// WAL keeps readers from blocking the loader.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{dir: dir, db: db}, nil
}

// Dir returns the folder holding the database.
func (s *Store) Dir() string {
	return s.dir
}

// Save replaces the stored copy for source.
func (s *Store) Save(ctx context.Context, source, content string, channels int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO playlists (source, content, channels, fetched_at) VALUES (?, ?, ?, ?)`,
		source, content, channels, time.Now().UnixNano())
	return err
}

// Latest returns the stored copy for source, or ErrNotFound.
func (s *Store) Latest(ctx context.Context, source string) (Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var entry = Entry{Source: source}
	var fetchedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT content, channels, fetched_at FROM playlists WHERE source = ?`, source,
	).Scan(&entry.Content, &entry.Channels, &fetchedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return Entry{}, ErrNotFound
	case err != nil:
		return Entry{}, err
	}

	entry.FetchedAt = time.Unix(0, fetchedAt)
	return entry, nil
}

// List returns every stored source without its content, most recent first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT source, channels, fetched_at FROM playlists ORDER BY fetched_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries = []Entry{}
	for rows.Next() {
		var entry Entry
		var fetchedAt int64
		if err := rows.Scan(&entry.Source, &entry.Channels, &fetchedAt); err != nil {
			return nil, err
		}
		entry.FetchedAt = time.Unix(0, fetchedAt)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Delete removes the stored copy for source. Deleting a missing source is not an error.
func (s *Store) Delete(ctx context.Context, source string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM playlists WHERE source = ?`, source)
	return err
}

func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.db.Close()
}
