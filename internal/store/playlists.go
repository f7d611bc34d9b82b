package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/llehouerou/musicbox/internal/db"
	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/playlist"
)

// Playlist represents playlist metadata (without tracks).
type Playlist struct {
	ID         int64
	Name       string
	CreatedAt  int64
	UpdatedAt  int64
	TrackCount int
}

// Playlists provides database operations for playlists.
type Playlists struct {
	db *sql.DB
}

// Create creates a new empty playlist.
func (p *Playlists) Create(name string) (int64, error) {
	now := time.Now().Unix()
	result, err := p.db.Exec(`
		INSERT INTO playlists (name, created_at, updated_at)
		VALUES (?, ?, ?)
	`, name, now, now)
	if err != nil {
		return 0, fmt.Errorf("create playlist %q: %w", name, err)
	}
	return result.LastInsertId()
}

// Get returns a playlist by its ID.
func (p *Playlists) Get(id int64) (*Playlist, error) {
	row := p.db.QueryRow(`
		SELECT p.id, p.name, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM playlist_tracks pt WHERE pt.playlist_id = p.id)
		FROM playlists p
		WHERE p.id = ?
	`, id)

	var pl Playlist
	err := row.Scan(&pl.ID, &pl.Name, &pl.CreatedAt, &pl.UpdatedAt, &pl.TrackCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

// Update renames a playlist.
func (p *Playlists) Update(id int64, name string) error {
	result, err := p.db.Exec(`
		UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?
	`, name, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return expectRow(result, "playlist", id)
}

// Delete deletes a playlist, its tracks and its tag associations.
// Deleting a missing playlist returns ErrNotFound and changes nothing.
func (p *Playlists) Delete(id int64) error {
	result, err := p.db.Exec(`DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result, "playlist", id)
}

// List returns all playlists ordered by name.
func (p *Playlists) List() ([]Playlist, error) {
	rows, err := p.db.Query(`
		SELECT p.id, p.name, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM playlist_tracks pt WHERE pt.playlist_id = p.id)
		FROM playlists p
		ORDER BY p.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var playlists []Playlist
	for rows.Next() {
		var pl Playlist
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.CreatedAt, &pl.UpdatedAt, &pl.TrackCount); err != nil {
			return nil, err
		}
		playlists = append(playlists, pl)
	}
	return playlists, rows.Err()
}

// Tracks returns the tracks of a playlist in order.
func (p *Playlists) Tracks(playlistID int64) ([]playlist.Track, error) {
	rows, err := p.db.Query(`
		SELECT id, path, title, artist, album, track_number, duration_ms
		FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position
	`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []playlist.Track
	for rows.Next() {
		var t playlist.Track
		var artist, album sql.NullString
		var trackNum sql.NullInt64
		var durationMs int64
		if err := rows.Scan(&t.ID, &t.Path, &t.Title, &artist, &album, &trackNum, &durationMs); err != nil {
			return nil, err
		}
		t.Artist = dbutil.NullStringValue(artist)
		t.Album = dbutil.NullStringValue(album)
		t.TrackNumber = int(dbutil.NullInt64Value(trackNum))
		t.Duration = time.Duration(durationMs) * time.Millisecond
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// AddTracks appends tracks to a playlist.
func (p *Playlists) AddTracks(ctx context.Context, playlistID int64, tracks []playlist.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	return dbutil.WithTx(ctx, p.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRow(`SELECT COUNT(*) FROM playlists WHERE id = ?`, playlistID).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("playlist %d: %w", playlistID, ErrNotFound)
		}

		var maxPos sql.NullInt64
		err = tx.QueryRow(`
			SELECT MAX(position) FROM playlist_tracks WHERE playlist_id = ?
		`, playlistID).Scan(&maxPos)
		if err != nil {
			return err
		}
		nextPos := 0
		if maxPos.Valid {
			nextPos = int(maxPos.Int64) + 1
		}

		stmt, err := tx.Prepare(`
			INSERT INTO playlist_tracks
				(playlist_id, position, path, title, artist, album, track_number, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, t := range tracks {
			if _, err := stmt.Exec(
				playlistID, nextPos+i, t.Path, t.Title, t.Artist, t.Album,
				t.TrackNumber, t.Duration.Milliseconds(),
			); err != nil {
				return err
			}
		}

		_, err = tx.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ?`, time.Now().Unix(), playlistID)
		return err
	})
}

// PlaylistTracks returns the name and tracks of a playlist.
func (p *Playlists) PlaylistTracks(id int64) (string, []playlist.Track, error) {
	pl, err := p.Get(id)
	if err != nil {
		return "", nil, err
	}
	tracks, err := p.Tracks(id)
	if err != nil {
		return "", nil, err
	}
	return pl.Name, tracks, nil
}

func expectRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

var _ playback.Library = (*Playlists)(nil)
