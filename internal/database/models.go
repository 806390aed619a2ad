package database

import (
	"database/sql"
	"time"
)

type Account struct {
	Id           int
	Name         string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	Id          int
	ExternalId  string
	Name        string
	Description string
	Status      string
	ProjectType string
	CreatorId   int
	CreatorName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Membership struct {
	Id        int
	ProjectId int
	AccountId int
	RoleTitle string
	CreatedAt time.Time
}

// MemberProject is a project joined with the caller's membership row and
// the creator's display name, as returned by ListMemberProjects.
type MemberProject struct {
	Project
	MyRole string
}

type Message struct {
	Id          string
	ProjectId   int
	SenderId    int
	SenderName  string
	Content     string
	Attachments []byte
	IsDeleted   bool
	SentAt      time.Time
	EditedAt    sql.NullTime
}

type CreateAccountParams struct {
	Name         string
	EmailAddress string
	PasswordHash string
}

type CreateProjectParams struct {
	ExternalId  string
	Name        string
	Description string
	Status      string
	ProjectType string
	CreatorId   int
}

type CreateMessageParams struct {
	Id          string
	ProjectId   int
	SenderId    int
	Content     string
	Attachments []byte
	SentAt      time.Time
}
