package chat

import (
	"context"

	"github.com/crewlink/crewchat/internal/types"
)

// OfflineChannel is the LiveChannel used when no credentials are on hand.
// Rooms open in a history-only mode: Open succeeds without connecting and
// Send reports the channel as not connected.
type OfflineChannel struct{}

func (OfflineChannel) Open(ctx context.Context, roomId, token string) error { return nil }

func (OfflineChannel) Send(content string, attachments []types.Attachment) error {
	return ErrNotConnected
}

func (OfflineChannel) OnMessage(handler func(types.Message)) {}

func (OfflineChannel) OnStatus(handler func(Status)) {}

func (OfflineChannel) Close() error { return nil }
