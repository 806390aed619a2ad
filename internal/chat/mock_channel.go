package chat

import (
	"context"

	"github.com/crewlink/crewchat/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockLiveChannel struct {
	mock.Mock
}

func (m *MockLiveChannel) Open(ctx context.Context, roomId, token string) error {
	args := m.Called(ctx, roomId, token)
	return args.Error(0)
}

func (m *MockLiveChannel) Send(content string, attachments []types.Attachment) error {
	args := m.Called(content, attachments)
	return args.Error(0)
}

func (m *MockLiveChannel) OnMessage(handler func(types.Message)) {
	m.Called(handler)
}

func (m *MockLiveChannel) OnStatus(handler func(Status)) {
	m.Called(handler)
}

func (m *MockLiveChannel) Close() error {
	args := m.Called()
	return args.Error(0)
}
