package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/infra/feishu"
)

// ReviewAction is the card button value marking a review decision
const ReviewAction = "jail_review"

// feishuAPI is the subset of the Feishu client used by the platform repository
type feishuAPI interface {
	SendText(ctx context.Context, chatID, text string) error
	SendDirect(ctx context.Context, openID, text string) error
	SendCard(ctx context.Context, chatID, card string) (string, error)
	ReplyText(ctx context.Context, messageID, text string) error
	UpdateCard(ctx context.Context, messageID, card string) error
	DeleteMessage(ctx context.Context, messageID string) error
	MessageExists(ctx context.Context, messageID string) (bool, error)
	RemoveChatMember(ctx context.Context, chatID, openID string) error
	AddGroupMember(ctx context.Context, groupID, openID string) error
	RemoveGroupMember(ctx context.Context, groupID, openID string) error
	GetChatMember(ctx context.Context, chatID, openID string) (*feishu.ChatMember, error)
	GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error)
	GetChatHistory(ctx context.Context, chatID string, limit int) ([]*feishu.HistoryMessage, error)
}

// feishuRepo implements the platform repository on Feishu.
// Roles are contact user groups, bans remove the member from the community chat.
type feishuRepo struct {
	client feishuAPI
}

// NewFeishuRepo creates a new Feishu platform repository
func NewFeishuRepo(client *feishu.Client) repo.PlatformRepo {
	return &feishuRepo{client: client}
}

// mapError normalizes open platform failures to domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *feishu.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.NotFound():
			return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
		case apiErr.PermissionDenied():
			return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
		}
	}
	return err
}

func (r *feishuRepo) DeleteMessage(ctx context.Context, msgID string) error {
	return mapError(r.client.DeleteMessage(ctx, msgID))
}

func (r *feishuRepo) SendDirect(ctx context.Context, userID, text string) error {
	return mapError(r.client.SendDirect(ctx, userID, text))
}

func (r *feishuRepo) SendText(ctx context.Context, chatID, text string) error {
	return mapError(r.client.SendText(ctx, chatID, text))
}

func (r *feishuRepo) AddRole(ctx context.Context, roleID, userID string) error {
	return mapError(r.client.AddGroupMember(ctx, roleID, userID))
}

func (r *feishuRepo) RemoveRole(ctx context.Context, roleID, userID string) error {
	return mapError(r.client.RemoveGroupMember(ctx, roleID, userID))
}

// BanMember removes the user from the chat. Feishu has no ban reason, the caller logs it.
func (r *feishuRepo) BanMember(ctx context.Context, chatID, userID, reason string) error {
	return mapError(r.client.RemoveChatMember(ctx, chatID, userID))
}

func (r *feishuRepo) GetMember(ctx context.Context, chatID, userID string) (*domain.Member, error) {
	m, err := r.client.GetChatMember(ctx, chatID, userID)
	if err != nil {
		return nil, mapError(err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s is not in %s", domain.ErrNotFound, userID, chatID)
	}
	return &domain.Member{UserID: m.MemberID, Name: m.Name}, nil
}

func (r *feishuRepo) PostReview(ctx context.Context, chatID string, card domain.ReviewCard) (string, error) {
	id, err := r.client.SendCard(ctx, chatID, reviewCard(card))
	if err != nil {
		return "", mapError(err)
	}
	return id, nil
}

func (r *feishuRepo) FetchMessage(ctx context.Context, msgID string) error {
	ok, err := r.client.MessageExists(ctx, msgID)
	if err != nil {
		return mapError(err)
	}
	if !ok {
		return fmt.Errorf("%w: message %s", domain.ErrNotFound, msgID)
	}
	return nil
}

func (r *feishuRepo) ReplyToMessage(ctx context.Context, msgID, text string) error {
	return mapError(r.client.ReplyText(ctx, msgID, text))
}

// CloseReview replaces the card with the closing notice and no buttons
func (r *feishuRepo) CloseReview(ctx context.Context, msgID, notice string) error {
	card := feishu.BuildCard(reviewCardTitle, "grey", notice, nil)
	return mapError(r.client.UpdateCard(ctx, msgID, card))
}

// GetChatHistory gets chat history with sender names resolved from the member list
func (r *feishuRepo) GetChatHistory(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	msgs, err := r.client.GetChatHistory(ctx, chatID, limit)
	if err != nil {
		return nil, mapError(err)
	}

	// Get member list for resolving sender names
	members, _ := r.client.GetChatMembers(ctx, chatID)
	memberMap := make(map[string]string)
	for _, m := range members {
		memberMap[m.MemberID] = m.Name
	}

	result := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		createTime := time.Now()
		if m.CreateTime != "" {
			// Feishu timestamp is millisecond string
			if ms, err := strconv.ParseInt(m.CreateTime, 10, 64); err == nil {
				createTime = time.UnixMilli(ms)
			}
		}

		senderID := ""
		senderName := ""
		isBot := false
		if m.Sender != nil {
			senderID = m.Sender.SenderID
			senderName = memberMap[senderID]
			isBot = m.Sender.SenderType == "app"
		}

		result = append(result, domain.Message{
			ID:         m.MsgID,
			ChatID:     chatID,
			Content:    m.Content,
			SenderID:   senderID,
			SenderName: senderName,
			MsgType:    m.MsgType,
			CreateTime: createTime,
			IsBot:      isBot,
		})
	}
	return result, nil
}

const reviewCardTitle = "🚨 Jail review"

func reviewCard(card domain.ReviewCard) string {
	user := domain.Member{UserID: card.UserID}
	body := fmt.Sprintf("**User:** %s\n**Reason:** reached %d warnings\n\n**Recent flagged messages:**\n%s",
		user.FormatCardMention(), domain.WarningThreshold, card.Evidence)

	return feishu.BuildCard(reviewCardTitle, "orange", body, []feishu.Button{
		{
			Text:  "Jail not warranted (unjail + exempt)",
			Style: "primary",
			Value: map[string]string{"action": ReviewAction, "decision": string(domain.DecisionUnjailExempt)},
		},
		{
			Text:  "Jail correct (keep)",
			Style: "danger",
			Value: map[string]string{"action": ReviewAction, "decision": string(domain.DecisionKeepJailed)},
		},
	})
}
