package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockCrewChatRepository struct {
	mock.Mock
}

func (m *MockCrewChatRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockCrewChatRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockCrewChatRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockCrewChatRepository) CreateProject(params CreateProjectParams) (Project, error) {
	args := m.Called(params)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockCrewChatRepository) GetProjectByExternalId(externalId string) (Project, error) {
	args := m.Called(externalId)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockCrewChatRepository) ListOwnedProjects(accountId int) ([]Project, error) {
	args := m.Called(accountId)
	return args.Get(0).([]Project), args.Error(1)
}
func (m *MockCrewChatRepository) ListMemberProjects(accountId int) ([]MemberProject, error) {
	args := m.Called(accountId)
	return args.Get(0).([]MemberProject), args.Error(1)
}
func (m *MockCrewChatRepository) AddMember(projectId, accountId int, roleTitle string) (Membership, error) {
	args := m.Called(projectId, accountId, roleTitle)
	return args.Get(0).(Membership), args.Error(1)
}
func (m *MockCrewChatRepository) IsMember(projectId, accountId int) bool {
	args := m.Called(projectId, accountId)
	return args.Bool(0)
}
func (m *MockCrewChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockCrewChatRepository) GetMessage(messageId string) (Message, error) {
	args := m.Called(messageId)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockCrewChatRepository) MarkMessageDeleted(messageId string) error {
	args := m.Called(messageId)
	return args.Error(0)
}
func (m *MockCrewChatRepository) GetMessages(projectId int, before time.Time, limit int) ([]Message, error) {
	args := m.Called(projectId, before, limit)
	return args.Get(0).([]Message), args.Error(1)
}
