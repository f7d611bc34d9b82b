// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Client session operations
	OpDecodeMessage Op = "decode message"
	OpRoomJoin      Op = "join room"
	OpRoomLeave     Op = "leave room"
	OpCommand       Op = "run command"

	// Playlist operations
	OpPlaylistCreate Op = "create playlist"
	OpPlaylistImport Op = "import playlist"
	OpPlaylistList   Op = "list playlists"

	// Tag operations
	OpTagAssociate Op = "associate tag"
	OpTagScan      Op = "handle tag scan"
	OpTagRead      Op = "read file tags"

	// Startup
	OpConfigLoad   Op = "load configuration"
	OpDatabaseOpen Op = "open database"
	OpInitialize   Op = "initialize music box"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// Error carries the operation and its cause, rendering as Format or
// FormatWith does. errors.Is and errors.As see through it.
type Error struct {
	Op      Op
	Context string
	Err     error
}

func (e *Error) Error() string { return FormatWith(e.Op, e.Context, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, otherwise an *Error for op.
func Wrap(op Op, err error) error {
	return WrapWith(op, "", err)
}

// WrapWith is Wrap with a context value such as a path or id.
func WrapWith(op Op, context string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Context: context, Err: err}
}
