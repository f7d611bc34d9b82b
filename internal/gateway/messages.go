package gateway

import (
	"encoding/json"
	"time"

	"github.com/llehouerou/musicbox/internal/playback"
)

// Inbound message types.
const (
	TypeJoin      = "join"
	TypeLeave     = "leave"
	TypeCommand   = "command"
	TypeNFCScan   = "nfc_scan"
	TypeGetStatus = "get_status"
)

// Outbound reply types.
const (
	TypeJoinAck       = "join_ack"
	TypeLeaveAck      = "leave_ack"
	TypeCommandResult = "command_result"
	TypeScanResult    = "nfc_scan_result"
	TypeStatus        = "status"
	TypeError         = "error"
)

// inbound is any message a client may send. Fields not used by a type are
// ignored.
type inbound struct {
	Type      string          `json:"type"`
	Room      string          `json:"room,omitempty"`
	Command   string          `json:"command,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	TagID     string          `json:"tag_id,omitempty"`
}

// Ack is sent once, first, on every new connection.
type Ack struct {
	Status         string    `json:"status"`
	ClientID       string    `json:"client_id"`
	ServerSequence uint64    `json:"server_sequence"`
	ServerTime     time.Time `json:"server_time"`
}

// RoomReply answers join and leave.
type RoomReply struct {
	Type  string `json:"type"`
	Room  string `json:"room"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CommandResult answers a command. State changes arrive separately as
// broadcasts.
type CommandResult struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Command   string `json:"command"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// ScanResult answers nfc_scan.
type ScanResult struct {
	Type  string `json:"type"`
	TagID string `json:"tag_id"`
	OK    bool   `json:"ok"`
}

// StatusReply answers get_status. Events with a sequence above
// ServerSequence are newer than Status.
type StatusReply struct {
	Type           string          `json:"type"`
	ServerSequence uint64          `json:"server_sequence"`
	Status         playback.Status `json:"status"`
}

// ErrorReply reports a message the server could not handle.
type ErrorReply struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
