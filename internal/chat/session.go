package chat

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/crewlink/crewchat/internal/types"
)

type historyLoader interface {
	Load(ctx context.Context, roomId string, opts LoadOptions) ([]types.Message, error)
}

type messageDeleter interface {
	DeleteMessage(ctx context.Context, messageId string) error
}

// Session owns the state of the currently selected room: its loaded
// messages, the live channel status, and the transition between rooms.
// At most one room is active at a time; selecting a room always tears
// down the previous channel before anything for the new room starts.
type Session struct {
	history historyLoader
	deleter messageDeleter
	channel LiveChannel
	creds   CredentialProvider
	log     *log.Logger

	mu       sync.Mutex
	room     *types.Room
	messages []types.Message
	seen     map[string]struct{}
	status   Status
	onUpdate func()
}

func NewSession(history historyLoader, deleter messageDeleter, channel LiveChannel, creds CredentialProvider, logger *log.Logger) *Session {
	return &Session{
		history: history,
		deleter: deleter,
		channel: channel,
		creds:   creds,
		log:     logger,
		status:  StatusDisconnected,
	}
}

// SelectRoom makes room the active room. The previous channel is closed
// and previous state dropped before any work for the new room begins,
// including when the same room is selected again. History loads first,
// then the live channel opens; without credentials the room stays in a
// history-only, disconnected state.
func (s *Session) SelectRoom(ctx context.Context, room types.Room) error {
	if err := s.channel.Close(); err != nil {
		s.log.Println("close channel:", err)
	}

	s.mu.Lock()
	s.room = &room
	s.messages = nil
	s.seen = make(map[string]struct{})
	s.status = StatusDisconnected
	s.mu.Unlock()
	s.notify()

	messages, err := s.history.Load(ctx, room.Id, LoadOptions{})
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return ErrNotMember
		}
		return err
	}

	s.mu.Lock()
	// a slow load for a room the user already left is dropped
	if s.room == nil || s.room.Id != room.Id {
		s.mu.Unlock()
		return nil
	}
	for _, m := range messages {
		if _, ok := s.seen[m.Id]; ok {
			continue
		}
		s.seen[m.Id] = struct{}{}
		s.messages = append(s.messages, m)
	}
	s.mu.Unlock()
	s.notify()

	token, ok := s.creds.Token()
	if !ok {
		return nil
	}

	s.channel.OnMessage(func(m types.Message) {
		s.appendMessage(room.Id, m)
	})
	s.channel.OnStatus(func(status Status) {
		s.setStatus(room.Id, status)
	})

	if err := s.channel.Open(ctx, room.Id, token); err != nil {
		s.log.Printf("open channel for room %s: %v", room.Id, err)
		return err
	}

	return nil
}

func (s *Session) appendMessage(roomId string, m types.Message) {
	s.mu.Lock()
	if s.room == nil || s.room.Id != roomId {
		s.mu.Unlock()
		return
	}
	if _, ok := s.seen[m.Id]; ok {
		s.mu.Unlock()
		return
	}
	s.seen[m.Id] = struct{}{}
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setStatus(roomId string, status Status) {
	s.mu.Lock()
	if s.room == nil || s.room.Id != roomId {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.mu.Unlock()
	s.notify()
}

// SendMessage hands content to the live channel. Nothing is appended
// locally; the message shows up when the server echoes it back.
func (s *Session) SendMessage(content string, attachments []types.Attachment) error {
	if err := s.channel.Send(content, attachments); err != nil {
		if errors.Is(err, ErrNotConnected) {
			s.log.Println("send skipped: not connected")
			return ErrNotConnected
		}
		return err
	}
	return nil
}

// DeleteMessage deletes the message remotely, then masks it in place.
// The entry keeps its position in the list so surrounding context stays
// readable.
func (s *Session) DeleteMessage(ctx context.Context, messageId string) error {
	if err := s.deleter.DeleteMessage(ctx, messageId); err != nil {
		return err
	}

	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].Id == messageId {
			s.messages[i].IsDeleted = true
			s.messages[i].Content = types.DeletedPlaceholder
			s.messages[i].Attachments = nil
			break
		}
	}
	s.mu.Unlock()
	s.notify()

	return nil
}

// Messages returns a snapshot of the active room's messages, oldest
// first.
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) ActiveRoom() *types.Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == nil {
		return nil
	}
	room := *s.room
	return &room
}

// OnUpdate registers the single callback fired after any state change.
// A later call replaces the previous callback.
func (s *Session) OnUpdate(fn func()) {
	s.mu.Lock()
	s.onUpdate = fn
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Close shuts the live channel and clears the active room.
func (s *Session) Close() error {
	err := s.channel.Close()

	s.mu.Lock()
	s.room = nil
	s.messages = nil
	s.seen = nil
	s.status = StatusDisconnected
	s.mu.Unlock()
	s.notify()

	return err
}
