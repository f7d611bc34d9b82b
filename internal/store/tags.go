package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TagAssociation binds an NFC tag id to a playlist.
type TagAssociation struct {
	TagID      string
	PlaylistID int64
	CreatedAt  int64
}

// Tags provides database operations for NFC tag associations.
type Tags struct {
	db *sql.DB
}

// Associate binds tagID to playlistID, replacing any previous binding.
func (t *Tags) Associate(tagID string, playlistID int64) error {
	_, err := t.db.Exec(`
		INSERT INTO nfc_tags (tag_id, playlist_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(tag_id) DO UPDATE SET
			playlist_id = excluded.playlist_id,
			created_at = excluded.created_at
	`, tagID, playlistID, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("associate tag %q: %w", tagID, err)
	}
	return nil
}

// Dissociate removes the binding of tagID.
func (t *Tags) Dissociate(tagID string) error {
	result, err := t.db.Exec(`DELETE FROM nfc_tags WHERE tag_id = ?`, tagID)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("tag %q: %w", tagID, ErrNotFound)
	}
	return nil
}

// Lookup returns the playlist bound to tagID.
func (t *Tags) Lookup(tagID string) (int64, error) {
	var id int64
	err := t.db.QueryRow(`SELECT playlist_id FROM nfc_tags WHERE tag_id = ?`, tagID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("tag %q: %w", tagID, ErrNotFound)
	}
	return id, err
}

// List returns every association ordered by tag id.
func (t *Tags) List() ([]TagAssociation, error) {
	rows, err := t.db.Query(`
		SELECT tag_id, playlist_id, created_at FROM nfc_tags ORDER BY tag_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []TagAssociation
	for rows.Next() {
		var a TagAssociation
		if err := rows.Scan(&a.TagID, &a.PlaylistID, &a.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, a)
	}
	return tags, rows.Err()
}
