// Package gateway accepts WebSocket clients, binds each connection to a
// session of the state manager and routes inbound messages to the room
// registry, the playback coordinator and the NFC service.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/errmsg"
	"github.com/llehouerou/musicbox/internal/playback"
	"github.com/llehouerou/musicbox/internal/playlist"
	"github.com/llehouerou/musicbox/internal/statesync"
)

const (
	defaultWriteTimeout   = 5 * time.Second
	defaultOutboundBuffer = 64
	readLimit             = 64 << 10
)

// Registry is the session and room side of the state manager.
type Registry interface {
	Register(sessionID string, sink statesync.Deliverer)
	Unregister(sessionID string)
	Subscribe(sessionID, roomName string) error
	Unsubscribe(sessionID, roomName string) error
	UnsubscribeClient(sessionID string)
	GlobalSequence() uint64
	Rooms() []statesync.RoomInfo
	Sessions() int
}

// Player is the command surface of the playback coordinator.
type Player interface {
	Play(ctx context.Context) bool
	Pause(ctx context.Context) bool
	TogglePause(ctx context.Context) bool
	Stop(ctx context.Context) bool
	NextTrack(ctx context.Context) bool
	PreviousTrack(ctx context.Context) bool
	SetVolume(ctx context.Context, level int) bool
	AdjustVolume(ctx context.Context, delta int) bool
	JumpTo(ctx context.Context, index int) bool
	Seek(ctx context.Context, position time.Duration) bool
	SetRepeatMode(ctx context.Context, mode playlist.RepeatMode) bool
	CycleRepeatMode(ctx context.Context) bool
	SetShuffle(ctx context.Context, enabled bool) bool
	SetAutoAdvance(ctx context.Context, enabled bool) bool
	LoadPlaylist(ctx context.Context, id int64) bool
	PlayPlaylist(ctx context.Context, id int64) bool
	Status() playback.Status
	BackendName() string
}

// Scanner handles NFC tag scans.
type Scanner interface {
	HandleScan(ctx context.Context, tagID string) bool
}

// PlaylistRemover deletes playlists and announces the deletion.
type PlaylistRemover interface {
	DeletePlaylist(id int64) error
}

// Options configures a Gateway.
type Options struct {
	WriteTimeout   time.Duration
	OutboundBuffer int
	// OriginPatterns lists extra hosts allowed to open cross-origin
	// connections (see websocket.AcceptOptions).
	OriginPatterns []string
	Log            zerolog.Logger
}

// Gateway serves the client endpoints.
type Gateway struct {
	reg       Registry
	player    Player
	scanner   Scanner
	playlists PlaylistRemover
	opts      Options
	log       zerolog.Logger
	started   time.Time
}

// New creates a gateway.
func New(reg Registry, player Player, scanner Scanner, playlists PlaylistRemover, opts Options) *Gateway {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.OutboundBuffer <= 0 {
		opts.OutboundBuffer = defaultOutboundBuffer
	}
	return &Gateway{
		reg:       reg,
		player:    player,
		scanner:   scanner,
		playlists: playlists,
		opts:      opts,
		log:       opts.Log.With().Str("component", "gateway").Logger(),
		started:   time.Now(),
	}
}

// Handler returns the HTTP handler with every endpoint mounted.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", g.handleWS)
	mux.HandleFunc("GET /healthz", g.handleHealth)
	mux.HandleFunc("GET /debug/rooms", g.handleRooms)
	return mux
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.opts.OriginPatterns,
	})
	if err != nil {
		g.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket accept failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := uuid.NewString()
	log := g.log.With().Str("id", id).Logger()
	c := newClient(id, g.opts.OutboundBuffer, cancel, log)

	g.reg.Register(id, c)
	defer func() {
		g.reg.UnsubscribeClient(id)
		g.reg.Unregister(id)
		log.Info().Msg("Client disconnected")
	}()

	// The ack is queued before the writer starts, so it is always the
	// first frame the client sees.
	c.send(Ack{
		Status:         "connected",
		ClientID:       id,
		ServerSequence: g.reg.GlobalSequence(),
		ServerTime:     time.Now().UTC(),
	})
	log.Info().Str("remote", r.RemoteAddr).Msg("Client connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		g.writeLoop(ctx, conn, c)
	}()

	g.readLoop(ctx, conn, c, log)

	c.close()
	<-writerDone
	conn.Close(websocket.StatusNormalClosure, "")
}

func (g *Gateway) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, g.opts.WriteTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.log.Debug().Err(err).Msg("Write failed")
				c.close()
				return
			}
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, c *client, log zerolog.Logger) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					log.Debug().Err(err).Msg("Read failed")
				}
			}
			return
		}
		if typ != websocket.MessageText {
			c.send(ErrorReply{Type: TypeError, Message: "expected a text frame"})
			continue
		}
		g.handleMessage(ctx, c, data, log)
	}
}

func (g *Gateway) handleMessage(ctx context.Context, c *client, data []byte, log zerolog.Logger) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Msg("Malformed message")
		c.send(ErrorReply{Type: TypeError, Message: errmsg.Format(errmsg.OpDecodeMessage, err)})
		return
	}

	switch msg.Type {
	case TypeJoin:
		err := g.reg.Subscribe(c.id, msg.Room)
		log.Debug().Str("room", msg.Room).Err(err).Msg("Join")
		c.send(roomReply(TypeJoinAck, msg.Room, errmsg.OpRoomJoin, err))
	case TypeLeave:
		err := g.reg.Unsubscribe(c.id, msg.Room)
		log.Debug().Str("room", msg.Room).Err(err).Msg("Leave")
		c.send(roomReply(TypeLeaveAck, msg.Room, errmsg.OpRoomLeave, err))
	case TypeCommand:
		ok, err := g.runCommand(ctx, msg)
		log.Debug().Str("command", msg.Command).Bool("ok", ok).Err(err).Msg("Command")
		res := CommandResult{
			Type:      TypeCommandResult,
			RequestID: msg.RequestID,
			Command:   msg.Command,
			OK:        ok,
		}
		if err != nil {
			res.Error = errmsg.FormatWith(errmsg.OpCommand, msg.Command, err)
		}
		c.send(res)
	case TypeNFCScan:
		ok := g.scanner.HandleScan(ctx, msg.TagID)
		log.Debug().Str("tag", msg.TagID).Bool("ok", ok).Msg("Tag scan")
		c.send(ScanResult{Type: TypeScanResult, TagID: msg.TagID, OK: ok})
	case TypeGetStatus:
		c.send(g.statusReply())
	default:
		log.Warn().Str("type", msg.Type).Msg("Unknown message type")
		c.send(ErrorReply{Type: TypeError, Message: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

// statusReply reads the sequence before the status so that no event with
// a sequence at or below ServerSequence is missing from Status.
func (g *Gateway) statusReply() StatusReply {
	seq := g.reg.GlobalSequence()
	return StatusReply{
		Type:           TypeStatus,
		ServerSequence: seq,
		Status:         g.player.Status(),
	}
}

func roomReply(typ, name string, op errmsg.Op, err error) RoomReply {
	r := RoomReply{Type: typ, Room: name, OK: err == nil}
	if err != nil {
		r.Error = errmsg.FormatWith(op, name, err)
	}
	return r
}

// Health is the /healthz payload.
type Health struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Sequence  uint64 `json:"sequence"`
	Clients   int    `json:"clients"`
	StartedAt string `json:"started"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, Health{
		Status:    "ok",
		Backend:   g.player.BackendName(),
		Sequence:  g.reg.GlobalSequence(),
		Clients:   g.reg.Sessions(),
		StartedAt: humanize.Time(g.started),
	})
}

func (g *Gateway) handleRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, g.reg.Rooms())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
