package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/llehouerou/musicbox/internal/playlist"
)

// Command names accepted in command messages.
const (
	CmdPlay           = "play"
	CmdPause          = "pause"
	CmdTogglePause    = "toggle_pause"
	CmdStop           = "stop"
	CmdNext           = "next"
	CmdPrevious       = "previous"
	CmdSetVolume      = "set_volume"
	CmdAdjustVolume   = "adjust_volume"
	CmdJump           = "jump"
	CmdSeek           = "seek"
	CmdSetRepeat      = "set_repeat"
	CmdCycleRepeat    = "cycle_repeat"
	CmdSetShuffle     = "set_shuffle"
	CmdSetAutoAdvance = "set_auto_advance"
	CmdLoadPlaylist   = "load_playlist"
	CmdPlayPlaylist   = "play_playlist"
	CmdDeletePlaylist = "delete_playlist"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errMissingValue   = errors.New("missing value")
)

// runCommand dispatches a command message. The error is set only when the
// message itself is unusable; a rejected command reports false.
func (g *Gateway) runCommand(ctx context.Context, msg inbound) (bool, error) {
	p := g.player
	switch msg.Command {
	case CmdPlay:
		return p.Play(ctx), nil
	case CmdPause:
		return p.Pause(ctx), nil
	case CmdTogglePause:
		return p.TogglePause(ctx), nil
	case CmdStop:
		return p.Stop(ctx), nil
	case CmdNext:
		return p.NextTrack(ctx), nil
	case CmdPrevious:
		return p.PreviousTrack(ctx), nil
	case CmdCycleRepeat:
		return p.CycleRepeatMode(ctx), nil

	case CmdSetVolume:
		v, err := decodeValue[int](msg.Value)
		if err != nil {
			return false, err
		}
		return p.SetVolume(ctx, v), nil
	case CmdAdjustVolume:
		v, err := decodeValue[int](msg.Value)
		if err != nil {
			return false, err
		}
		return p.AdjustVolume(ctx, v), nil
	case CmdJump:
		v, err := decodeValue[int](msg.Value)
		if err != nil {
			return false, err
		}
		return p.JumpTo(ctx, v), nil
	case CmdSeek:
		ms, err := decodeValue[int64](msg.Value)
		if err != nil {
			return false, err
		}
		return p.Seek(ctx, time.Duration(ms)*time.Millisecond), nil
	case CmdSetRepeat:
		name, err := decodeValue[string](msg.Value)
		if err != nil {
			return false, err
		}
		mode, err := playlist.ParseRepeatMode(name)
		if err != nil {
			return false, err
		}
		return p.SetRepeatMode(ctx, mode), nil
	case CmdSetShuffle:
		v, err := decodeValue[bool](msg.Value)
		if err != nil {
			return false, err
		}
		return p.SetShuffle(ctx, v), nil
	case CmdSetAutoAdvance:
		v, err := decodeValue[bool](msg.Value)
		if err != nil {
			return false, err
		}
		return p.SetAutoAdvance(ctx, v), nil
	case CmdLoadPlaylist:
		id, err := decodeValue[int64](msg.Value)
		if err != nil {
			return false, err
		}
		return p.LoadPlaylist(ctx, id), nil
	case CmdPlayPlaylist:
		id, err := decodeValue[int64](msg.Value)
		if err != nil {
			return false, err
		}
		return p.PlayPlaylist(ctx, id), nil
	case CmdDeletePlaylist:
		id, err := decodeValue[int64](msg.Value)
		if err != nil {
			return false, err
		}
		if err := g.playlists.DeletePlaylist(id); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, fmt.Errorf("%w %q", errUnknownCommand, msg.Command)
}

func decodeValue[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, errMissingValue
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("bad value %s: %w", raw, err)
	}
	return v, nil
}
