// Package store persists playlists, NFC tag associations and playback
// preferences in SQLite.
package store

import (
	"database/sql"
	"errors"
	"path/filepath"

	"github.com/adrg/xdg"

	dbutil "github.com/llehouerou/musicbox/internal/db"
)

const (
	appName    = "musicbox"
	dbFileName = "musicbox.db"
)

// ErrNotFound is returned when a playlist or tag does not exist.
var ErrNotFound = errors.New("not found")

// Store owns the database handle.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and initializes the schema. An empty
// path uses the XDG data directory.
func Open(path string) (*Store, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	db, err := dbutil.Open(path)
	if err != nil {
		return nil, err
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// DefaultPath returns the database path in the XDG data directory.
func DefaultPath() (string, error) {
	return xdg.DataFile(filepath.Join(appName, dbFileName))
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Playlists returns the playlist repository.
func (s *Store) Playlists() *Playlists {
	return &Playlists{db: s.db}
}

// Tags returns the NFC tag repository.
func (s *Store) Tags() *Tags {
	return &Tags{db: s.db}
}

// Prefs returns the playback preferences repository.
func (s *Store) Prefs() *Prefs {
	return &Prefs{db: s.db}
}
