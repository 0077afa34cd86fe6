package domain

import (
	"fmt"
	"time"
)

// Message represents a chat message entity
type Message struct {
	ID         string
	ChatID     string
	Content    string
	SenderID   string
	SenderName string
	MsgType    string // text, image, post, etc.
	CreateTime time.Time
	IsBot      bool // Whether the message was sent by a bot
}

// TranscriptLine formats the message for a summary transcript
func (m *Message) TranscriptLine() string {
	name := m.SenderName
	if name == "" {
		name = m.SenderID
	}
	return fmt.Sprintf("%s: %s", name, m.Content)
}
