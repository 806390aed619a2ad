package chat

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/crewlink/crewchat/internal/types"
)

const defaultHistoryLimit = 50

type messageLister interface {
	Messages(ctx context.Context, roomId string, limit int, before time.Time) ([]types.Message, error)
}

type LoadOptions struct {
	// Limit bounds the page size; zero means the default of 50.
	Limit int
	// Before is an exclusive upper bound on sent time, used to page
	// back through older messages. Zero means the latest page.
	Before time.Time
}

// History is the persisted message read path, independent of the live
// channel.
type History struct {
	api messageLister
	log *log.Logger
}

func NewHistory(api messageLister, logger *log.Logger) *History {
	return &History{api: api, log: logger}
}

// Load returns up to opts.Limit messages for the room, oldest first.
// A membership failure is surfaced as ErrNotMember; any other failure
// degrades to an empty page.
func (h *History) Load(ctx context.Context, roomId string, opts LoadOptions) ([]types.Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	messages, err := h.api.Messages(ctx, roomId, limit, opts.Before)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return nil, ErrNotMember
		}

		h.log.Printf("load history for room %s: %v", roomId, err)
		return []types.Message{}, nil
	}

	return messages, nil
}
