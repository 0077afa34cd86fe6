package repo

import (
	"context"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

// PlatformRepo is the chat platform capability interface.
// Implementations normalize failures to domain.ErrPermissionDenied and domain.ErrNotFound.
type PlatformRepo interface {
	// DeleteMessage removes a message from its chat
	DeleteMessage(ctx context.Context, msgID string) error

	// SendDirect sends a private notification to a user
	SendDirect(ctx context.Context, userID, text string) error

	// SendText posts a plain message to a chat
	SendText(ctx context.Context, chatID, text string) error

	// AddRole and RemoveRole assign or withdraw a named role
	AddRole(ctx context.Context, roleID, userID string) error
	RemoveRole(ctx context.Context, roleID, userID string) error

	// BanMember removes a member from the community
	BanMember(ctx context.Context, chatID, userID, reason string) error

	// GetMember looks up a member of a chat, domain.ErrNotFound if absent
	GetMember(ctx context.Context, chatID, userID string) (*domain.Member, error)

	// PostReview posts a review case with the two decisions and returns its message id
	PostReview(ctx context.Context, chatID string, card domain.ReviewCard) (string, error)

	// FetchMessage checks that a previously posted message still exists
	FetchMessage(ctx context.Context, msgID string) error

	// ReplyToMessage attaches a threaded reply to a message
	ReplyToMessage(ctx context.Context, msgID, text string) error

	// CloseReview replaces a review case with a closing notice and removes its decisions
	CloseReview(ctx context.Context, msgID, notice string) error

	// GetChatHistory returns recent messages, oldest first
	GetChatHistory(ctx context.Context, chatID string, limit int) ([]domain.Message, error)
}
