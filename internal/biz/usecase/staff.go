package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// MaxSummaryMessages bounds how much history a summary may cover
const MaxSummaryMessages = 100

// DefaultSummaryMessages is used when no count is given
const DefaultSummaryMessages = 20

// ErrSummaryTooLong is returned when more than MaxSummaryMessages are requested
var ErrSummaryTooLong = fmt.Errorf("can only summarize up to %d messages at a time", MaxSummaryMessages)

// StaffPolicy decides who may act as a reviewer or use staff commands
type StaffPolicy struct {
	ids map[string]struct{}
}

// NewStaffPolicy creates a policy from a list of user ids
func NewStaffPolicy(userIDs []string) *StaffPolicy {
	ids := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = struct{}{}
		}
	}
	return &StaffPolicy{ids: ids}
}

// IsStaff reports whether userID is staff. A nil policy has no staff.
func (p *StaffPolicy) IsStaff(userID string) bool {
	if p == nil {
		return false
	}
	_, ok := p.ids[userID]
	return ok
}

// StaffUsecase implements the staff tooling around moderation state
type StaffUsecase struct {
	moderationRepo repo.ModerationRepo
	escalation     *EscalationUsecase
	reviews        *ReviewUsecase
	platform       repo.PlatformRepo
	classifier     repo.ClassifierRepo
	logger         *slog.Logger
}

// NewStaffUsecase creates a new staff usecase
func NewStaffUsecase(
	moderationRepo repo.ModerationRepo,
	escalation *EscalationUsecase,
	reviews *ReviewUsecase,
	platform repo.PlatformRepo,
	classifier repo.ClassifierRepo,
	logger *slog.Logger,
) *StaffUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaffUsecase{
		moderationRepo: moderationRepo,
		escalation:     escalation,
		reviews:        reviews,
		platform:       platform,
		classifier:     classifier,
		logger:         logger.With("component", "staff"),
	}
}

// ResetWarnings clears a user's warning counter
func (uc *StaffUsecase) ResetWarnings(ctx context.Context, userID string) error {
	if err := uc.escalation.Reset(ctx, userID); err != nil {
		return err
	}
	uc.logger.Info("warnings reset", "user", userID)
	return nil
}

// AddExempt moves a user to the lenient profile. Returns false if already exempt.
func (uc *StaffUsecase) AddExempt(ctx context.Context, userID string) (bool, error) {
	exempt, err := uc.moderationRepo.SetContains(ctx, domain.SetExempt, userID)
	if err != nil {
		return false, fmt.Errorf("check exempt: %w", err)
	}
	if exempt {
		return false, nil
	}
	if err := uc.moderationRepo.AddToSet(ctx, domain.SetExempt, userID); err != nil {
		return false, fmt.Errorf("add exempt: %w", err)
	}
	return true, nil
}

// RemoveExempt returns a user to the strict profile. Returns false if not exempt.
func (uc *StaffUsecase) RemoveExempt(ctx context.Context, userID string) (bool, error) {
	exempt, err := uc.moderationRepo.SetContains(ctx, domain.SetExempt, userID)
	if err != nil {
		return false, fmt.Errorf("check exempt: %w", err)
	}
	if !exempt {
		return false, nil
	}
	if err := uc.moderationRepo.RemoveFromSet(ctx, domain.SetExempt, userID); err != nil {
		return false, fmt.Errorf("remove exempt: %w", err)
	}
	return true, nil
}

// ListExempt returns the exempt user ids
func (uc *StaffUsecase) ListExempt(ctx context.Context) ([]string, error) {
	return uc.moderationRepo.ListSet(ctx, domain.SetExempt)
}

// ListJailed returns the jailed user ids
func (uc *StaffUsecase) ListJailed(ctx context.Context) ([]string, error) {
	return uc.moderationRepo.ListSet(ctx, domain.SetJailed)
}

// UserState composes the moderation state of one user
func (uc *StaffUsecase) UserState(ctx context.Context, userID string) (*domain.UserState, error) {
	count, err := uc.escalation.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get warnings: %w", err)
	}
	jailed, err := uc.moderationRepo.SetContains(ctx, domain.SetJailed, userID)
	if err != nil {
		return nil, fmt.Errorf("check jailed: %w", err)
	}
	exempt, err := uc.moderationRepo.SetContains(ctx, domain.SetExempt, userID)
	if err != nil {
		return nil, fmt.Errorf("check exempt: %w", err)
	}
	return &domain.UserState{
		UserID:       userID,
		WarningCount: count,
		Jailed:       jailed,
		Exempt:       exempt,
	}, nil
}

// DirectMessage sends a staff-authored private message
func (uc *StaffUsecase) DirectMessage(ctx context.Context, userID, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message is required")
	}
	return uc.platform.SendDirect(ctx, userID, text)
}

// Summarize condenses the last n messages of a chat, DefaultSummaryMessages when n is zero
func (uc *StaffUsecase) Summarize(ctx context.Context, chatID string, n int) (string, error) {
	if n <= 0 {
		n = DefaultSummaryMessages
	}
	if n > MaxSummaryMessages {
		return "", ErrSummaryTooLong
	}
	if uc.classifier == nil {
		return "", domain.ErrClassifierUnavailable
	}

	msgs, err := uc.platform.GetChatHistory(ctx, chatID, n)
	if err != nil {
		return "", fmt.Errorf("get chat history: %w", err)
	}

	var sb strings.Builder
	for i := range msgs {
		if msgs[i].IsBot || strings.TrimSpace(msgs[i].Content) == "" {
			continue
		}
		sb.WriteString(msgs[i].TranscriptLine())
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "No messages to summarize.", nil
	}

	summary, err := uc.classifier.Summarize(ctx, sb.String())
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}
