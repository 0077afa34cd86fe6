package domain

import "fmt"

// Member represents a chat member (value object)
type Member struct {
	UserID string
	Name   string
}

// FormatMention formats the platform @ mention syntax
func (m *Member) FormatMention() string {
	return fmt.Sprintf("<at user_id=\"%s\">%s</at>", m.UserID, m.Name)
}

// FormatCardMention formats the @ mention syntax used inside card markdown
func (m *Member) FormatCardMention() string {
	return fmt.Sprintf("<at id=%s></at>", m.UserID)
}

// FormatDisplay formats for display
func (m *Member) FormatDisplay() string {
	return fmt.Sprintf("%s (user_id: %s)", m.Name, m.UserID)
}

// Actor is the staff member acting on a review or command
type Actor struct {
	UserID string
	Name   string
}

// GuildContext carries the ids that scope moderation actions to one community
type GuildContext struct {
	ChatID       string // moderated community chat
	JailRoleID   string // restrictive role (Feishu user group)
	ReviewChatID string // where review cases are posted
	LogChatID    string // where violations and bans are logged
}
