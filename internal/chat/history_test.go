package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crewlink/crewchat/internal/testutil"
	"github.com/crewlink/crewchat/internal/types"
	"github.com/stretchr/testify/assert"
)

type stubMessageLister struct {
	messages  []types.Message
	err       error
	lastLimit int
	lastRoom  string
}

func (s *stubMessageLister) Messages(ctx context.Context, roomId string, limit int, before time.Time) ([]types.Message, error) {
	s.lastRoom = roomId
	s.lastLimit = limit
	return s.messages, s.err
}

func TestHistoryLoad(t *testing.T) {
	lister := &stubMessageLister{
		messages: []types.Message{
			{Id: "m1", Content: "call sheet is up"},
			{Id: "m2", Content: "thanks"},
		},
	}

	h := NewHistory(lister, testutil.TestLogger(t))

	messages, err := h.Load(context.Background(), "p1", LoadOptions{})
	assert.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, "p1", lister.lastRoom)
	assert.Equal(t, defaultHistoryLimit, lister.lastLimit)
}

func TestHistoryLoadNotMember(t *testing.T) {
	lister := &stubMessageLister{err: ErrNotMember}
	h := NewHistory(lister, testutil.TestLogger(t))

	messages, err := h.Load(context.Background(), "p1", LoadOptions{})
	assert.ErrorIs(t, err, ErrNotMember)
	assert.Nil(t, messages)
}

func TestHistoryLoadFailSoft(t *testing.T) {
	lister := &stubMessageLister{err: errors.New("connection refused")}
	h := NewHistory(lister, testutil.TestLogger(t))

	messages, err := h.Load(context.Background(), "p1", LoadOptions{Limit: 10})
	assert.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
	assert.Equal(t, 10, lister.lastLimit)
}
