package types

import (
	"time"
)

// DeletedPlaceholder replaces the content of a tombstoned message. The
// message itself keeps its place in the sequence so surrounding context
// and scroll position are stable across a delete.
const DeletedPlaceholder = "[Message deleted]"

type User struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Project struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	ProjectName string    `json:"project_name,omitempty"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	ProjectType string    `json:"project_type"`
	CreatorId   int       `json:"creator_id,omitempty"`
	CreatorName string    `json:"creator_name,omitempty"`
	MyRole      string    `json:"my_role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Room is the chat conversation bound one-to-one with a project.
type Room struct {
	Id              string    `json:"id"`
	Name            string    `json:"name"`
	LastMessage     string    `json:"last_message,omitempty"`
	LastMessageTime time.Time `json:"last_message_time,omitempty"`
	// UnreadCount has no populating source yet and is always zero.
	UnreadCount int       `json:"unread_count"`
	IsCreator   bool      `json:"is_creator"`
	MyRole      string    `json:"my_role,omitempty"`
	CreatorName string    `json:"creator_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Attachment struct {
	Name        string `json:"name"`
	Url         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

type Message struct {
	Id          string       `json:"id"`
	RoomId      string       `json:"room_id"`
	SenderId    int          `json:"sender_id"`
	SenderName  string       `json:"sender_name"`
	Content     string       `json:"content"`
	SentAt      time.Time    `json:"sent_at"`
	EditedAt    *time.Time   `json:"edited_at,omitempty"`
	IsDeleted   bool         `json:"is_deleted"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Wire frames for the live channel. The auth frame is the client's first
// text frame after the upgrade; after the server acks with a ready frame,
// the client sends send frames and receives full Message pushes.

type AuthFrame struct {
	Token string `json:"token"`
}

type SendFrame struct {
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type ReadyFrame struct {
	Ready bool `json:"ready"`
}

type ErrorFrame struct {
	Error string `json:"error"`
}
