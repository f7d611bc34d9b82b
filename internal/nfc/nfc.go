// Package nfc maps proximity tags to playlists and turns tag scans into
// playback commands.
package nfc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/errmsg"
	"github.com/llehouerou/musicbox/internal/room"
	"github.com/llehouerou/musicbox/internal/statesync"
	"github.com/llehouerou/musicbox/internal/store"
)

// ErrUnknownTag is returned when a tag has no playlist association.
var ErrUnknownTag = errors.New("unknown tag")

const defaultCacheSize = 128

// TagStore persists tag associations.
type TagStore interface {
	Associate(tagID string, playlistID int64) error
	Dissociate(tagID string) error
	Lookup(tagID string) (int64, error)
}

// Player starts playlists.
type Player interface {
	PlayPlaylist(ctx context.Context, id int64) bool
}

// Broadcaster publishes scan events.
type Broadcaster interface {
	Broadcast(roomName, eventType string, payload any) (statesync.Event, error)
}

// ScanEvent is the payload broadcast to the tag's room.
type ScanEvent struct {
	TagID      string `json:"tag_id"`
	PlaylistID int64  `json:"playlist_id,omitempty"`
}

// Service resolves tags through an LRU cache in front of the store.
type Service struct {
	tags   TagStore
	player Player
	bc     Broadcaster
	cache  *lru.Cache[string, int64]
	log    zerolog.Logger
}

// New creates a service. cacheSize <= 0 uses a default size.
func New(tags TagStore, player Player, bc Broadcaster, cacheSize int, log zerolog.Logger) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, int64](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create tag cache: %w", err)
	}
	return &Service{
		tags:   tags,
		player: player,
		bc:     bc,
		cache:  cache,
		log:    log.With().Str("component", "nfc").Logger(),
	}, nil
}

// Normalize returns the canonical form of a tag id: trimmed, lowercase,
// without separators.
func Normalize(tagID string) string {
	r := strings.NewReplacer(":", "", "-", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(tagID)))
}

// Associate binds a tag to a playlist.
func (s *Service) Associate(tagID string, playlistID int64) error {
	tagID = Normalize(tagID)
	if tagID == "" {
		return fmt.Errorf("%w: empty tag id", ErrUnknownTag)
	}
	if err := s.tags.Associate(tagID, playlistID); err != nil {
		return err
	}
	s.cache.Add(tagID, playlistID)
	s.log.Info().Str("tag", tagID).Int64("playlist", playlistID).Msg("Tag associated")
	return nil
}

// Dissociate removes a tag binding.
func (s *Service) Dissociate(tagID string) error {
	tagID = Normalize(tagID)
	s.cache.Remove(tagID)
	if err := s.tags.Dissociate(tagID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownTag, tagID)
		}
		return err
	}
	return nil
}

// Resolve returns the playlist bound to a tag.
func (s *Service) Resolve(tagID string) (int64, error) {
	tagID = Normalize(tagID)
	if tagID == "" {
		return 0, fmt.Errorf("%w: empty tag id", ErrUnknownTag)
	}
	if id, ok := s.cache.Get(tagID); ok {
		return id, nil
	}

	id, err := s.tags.Lookup(tagID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTag, tagID)
	}
	if err != nil {
		return 0, err
	}
	s.cache.Add(tagID, id)
	return id, nil
}

// HandleScan resolves a scanned tag, announces it on the tag's room and
// starts the bound playlist. Returns false for unknown tags and failed
// playback.
func (s *Service) HandleScan(ctx context.Context, tagID string) bool {
	tagID = Normalize(tagID)
	id, err := s.Resolve(tagID)
	if err != nil {
		if errors.Is(err, ErrUnknownTag) {
			s.log.Info().Str("tag", tagID).Msg("Unknown tag scanned")
			if tagID != "" {
				s.broadcast(tagID, statesync.EventNFCUnknownTag, ScanEvent{TagID: tagID})
			}
			return false
		}
		s.log.Error().Err(err).Str("tag", tagID).Msg(errmsg.Format(errmsg.OpTagScan, err))
		return false
	}

	s.log.Info().Str("tag", tagID).Int64("playlist", id).Msg("Tag scanned")
	s.broadcast(tagID, statesync.EventNFCScanned, ScanEvent{TagID: tagID, PlaylistID: id})
	return s.player.PlayPlaylist(ctx, id)
}

func (s *Service) broadcast(tagID, eventType string, payload ScanEvent) {
	if _, err := s.bc.Broadcast(room.NFC(tagID), eventType, payload); err != nil {
		s.log.Error().Err(err).Str("tag", tagID).Msg("Broadcast failed")
	}
}
