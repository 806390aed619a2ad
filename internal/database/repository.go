package database

import "time"

type CrewChatRepository interface {
	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	CreateProject(params CreateProjectParams) (Project, error)
	GetProjectByExternalId(externalId string) (Project, error)
	ListOwnedProjects(accountId int) ([]Project, error)
	ListMemberProjects(accountId int) ([]MemberProject, error)
	AddMember(projectId, accountId int, roleTitle string) (Membership, error)
	IsMember(projectId, accountId int) bool
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessage(messageId string) (Message, error)
	MarkMessageDeleted(messageId string) error
	GetMessages(projectId int, before time.Time, limit int) ([]Message, error)
}
