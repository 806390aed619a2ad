package chat

import (
	"context"
	"errors"

	"github.com/crewlink/crewchat/internal/types"
)

var (
	// ErrNotMember is returned by the history loader when the caller has
	// no access to the room, so a UI can distinguish "no access" from
	// "no messages yet".
	ErrNotMember = errors.New("not a member of this room")

	// ErrNotConnected is returned by Send when no live channel is open.
	ErrNotConnected = errors.New("live channel is not connected")
)

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusAuthenticating
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusAuthenticating:
		return "authenticating"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// LiveChannel is a single-room, single-connection duplex channel. Opening
// while already open transfers ownership: the previous connection is
// closed first, never multiplexed. Handler registration replaces any
// previous handler so nothing leaks across room switches.
type LiveChannel interface {
	// Open establishes one connection scoped to exactly one room,
	// authenticating with the given bearer credential.
	Open(ctx context.Context, roomId, token string) error
	// Send transmits without local echo; whether the sender sees its own
	// message depends entirely on the server's fan-out.
	Send(content string, attachments []types.Attachment) error
	OnMessage(handler func(types.Message))
	OnStatus(handler func(Status))
	// Close tears down the connection and clears both handlers. Safe to
	// call when already closed.
	Close() error
}
