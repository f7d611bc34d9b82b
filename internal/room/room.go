// Package room defines the closed grammar of broadcast topic names.
package room

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRoom is returned for names outside the room grammar.
var ErrInvalidRoom = errors.New("invalid room")

// Global is the topic every client joins to follow playback state.
const Global = "playlists"

const (
	playlistPrefix = "playlist:"
	nfcPrefix      = "nfc:"
)

// Kind identifies which branch of the grammar a name matched.
type Kind int

const (
	KindGlobal Kind = iota
	KindPlaylist
	KindNFC
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindPlaylist:
		return "playlist"
	case KindNFC:
		return "nfc"
	default:
		return "unknown"
	}
}

// Name is a parsed, valid room name.
type Name struct {
	Kind Kind
	ID   string // empty for KindGlobal
}

// String returns the wire form of the name.
func (n Name) String() string {
	switch n.Kind {
	case KindPlaylist:
		return playlistPrefix + n.ID
	case KindNFC:
		return nfcPrefix + n.ID
	default:
		return Global
	}
}

// Parse validates s against the grammar:
//
//	"playlists" | "playlist:" id | "nfc:" id   (id non-empty)
func Parse(s string) (Name, error) {
	switch {
	case s == Global:
		return Name{Kind: KindGlobal}, nil
	case strings.HasPrefix(s, playlistPrefix) && len(s) > len(playlistPrefix):
		return Name{Kind: KindPlaylist, ID: s[len(playlistPrefix):]}, nil
	case strings.HasPrefix(s, nfcPrefix) && len(s) > len(nfcPrefix):
		return Name{Kind: KindNFC, ID: s[len(nfcPrefix):]}, nil
	}
	return Name{}, fmt.Errorf("%w: %q", ErrInvalidRoom, s)
}

// Valid reports whether s is a valid room name.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Playlist returns the room name for a playlist id.
func Playlist(id int64) string {
	return fmt.Sprintf("%s%d", playlistPrefix, id)
}

// NFC returns the room name for a tag id.
func NFC(tagID string) string {
	return nfcPrefix + tagID
}
