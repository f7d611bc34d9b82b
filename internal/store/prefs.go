package store

import (
	"database/sql"
	"errors"

	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/playlist"
)

// Prefs persists playback preferences in a single row.
type Prefs struct {
	db *sql.DB
}

// LoadPrefs returns the saved preferences. ok is false when none were saved.
func (p *Prefs) LoadPrefs() (playback.Prefs, bool, error) {
	var prefs playback.Prefs
	var repeat int
	row := p.db.QueryRow(`
		SELECT volume, repeat_mode, shuffle, auto_advance FROM preferences WHERE id = 1
	`)
	err := row.Scan(&prefs.Volume, &repeat, &prefs.Shuffle, &prefs.AutoAdvance)
	if errors.Is(err, sql.ErrNoRows) {
		return playback.DefaultPrefs(), false, nil
	}
	if err != nil {
		return playback.Prefs{}, false, err
	}
	prefs.Repeat = playlist.RepeatMode(repeat)
	return prefs, true, nil
}

// SavePrefs stores the preferences.
func (p *Prefs) SavePrefs(prefs playback.Prefs) error {
	_, err := p.db.Exec(`
		INSERT INTO preferences (id, volume, repeat_mode, shuffle, auto_advance)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			volume = excluded.volume,
			repeat_mode = excluded.repeat_mode,
			shuffle = excluded.shuffle,
			auto_advance = excluded.auto_advance
	`, prefs.Volume, int(prefs.Repeat), prefs.Shuffle, prefs.AutoAdvance)
	return err
}

var _ playback.PrefsStore = (*Prefs)(nil)
