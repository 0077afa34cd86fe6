package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// ReviewOpener opens a review case for a jailed user, folding repeats into the existing case
type ReviewOpener interface {
	Open(ctx context.Context, guild domain.GuildContext, userID string, evidence []domain.EvidenceEntry) (*OpenResult, error)
}

// JailResult describes a jail call
type JailResult struct {
	AlreadyJailed bool
	Review        *OpenResult
}

// UnjailResult describes an unjail call
type UnjailResult struct {
	// UserAbsent is set when the member had already left; local state was cleared anyway
	UserAbsent bool
}

// SanctionUsecase applies and reverses the jail sanction and owns the jailed set
type SanctionUsecase struct {
	moderationRepo repo.ModerationRepo
	platform       repo.PlatformRepo
	evidence       *EvidenceUsecase
	reviews        ReviewOpener
	notices        NoticeConfig
	logger         *slog.Logger
}

// NewSanctionUsecase creates a sanction controller. The review opener is bound with SetReviewOpener.
func NewSanctionUsecase(
	moderationRepo repo.ModerationRepo,
	platform repo.PlatformRepo,
	evidence *EvidenceUsecase,
	notices NoticeConfig,
	logger *slog.Logger,
) *SanctionUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SanctionUsecase{
		moderationRepo: moderationRepo,
		platform:       platform,
		evidence:       evidence,
		notices:        notices.WithDefaults(),
		logger:         logger.With("component", "sanction"),
	}
}

// SetReviewOpener binds the review coordinator
func (uc *SanctionUsecase) SetReviewOpener(opener ReviewOpener) {
	uc.reviews = opener
}

// IsJailed consults the authoritative jailed set
func (uc *SanctionUsecase) IsJailed(ctx context.Context, userID string) (bool, error) {
	return uc.moderationRepo.SetContains(ctx, domain.SetJailed, userID)
}

// Jail applies the jail role, marks the user jailed and forwards to review.
// An already jailed user gets no role change but is still forwarded, the review opener dedupes.
// If the role cannot be applied the user is not marked jailed and ErrSanctionNotApplied is returned.
func (uc *SanctionUsecase) Jail(ctx context.Context, guild domain.GuildContext, userID string) (*JailResult, error) {
	logger := uc.logger.With("user", userID)

	jailed, err := uc.IsJailed(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check jailed: %w", err)
	}

	result := &JailResult{AlreadyJailed: jailed}
	if !jailed {
		if err := uc.platform.AddRole(ctx, guild.JailRoleID, userID); err != nil {
			logger.Error("failed to apply jail role, sanction not applied", "role", guild.JailRoleID, "err", err)
			jailCount.WithLabelValues("role_failed").Inc()
			return nil, fmt.Errorf("%w: add jail role: %w", domain.ErrSanctionNotApplied, err)
		}

		notifyBestEffort(ctx, uc.platform, logger, userID, uc.notices.Jailed)

		if err := uc.moderationRepo.AddToSet(ctx, domain.SetJailed, userID); err != nil {
			logger.Error("jail role applied but jailed state not persisted", "err", err)
			jailCount.WithLabelValues("state_failed").Inc()
			return nil, fmt.Errorf("%w: mark jailed: %w", domain.ErrSanctionNotApplied, err)
		}
		jailCount.WithLabelValues("applied").Inc()
		logger.Info("user jailed")
	} else {
		jailCount.WithLabelValues("already_jailed").Inc()
	}

	if uc.reviews == nil {
		return result, fmt.Errorf("no review opener bound")
	}
	review, err := uc.reviews.Open(ctx, guild, userID, uc.evidence.Get(ctx, userID))
	if err != nil {
		logger.Error("user jailed but review could not be opened", "err", err)
		return result, fmt.Errorf("open review: %w", err)
	}
	result.Review = review
	return result, nil
}

// UnjailAndExempt removes the jail, clears the jailed flag and exempts the user.
// A member who already left is a normal outcome: local state is cleared and UserAbsent reported.
func (uc *SanctionUsecase) UnjailAndExempt(ctx context.Context, guild domain.GuildContext, userID string) (*UnjailResult, error) {
	present := true
	if _, err := uc.platform.GetMember(ctx, guild.ChatID, userID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lookup member: %w", err)
		}
		present = false
	}
	return uc.UnjailAndExemptMember(ctx, guild, userID, present)
}

// UnjailAndExemptMember is UnjailAndExempt for a caller that already looked up membership
func (uc *SanctionUsecase) UnjailAndExemptMember(ctx context.Context, guild domain.GuildContext, userID string, present bool) (*UnjailResult, error) {
	logger := uc.logger.With("user", userID)
	result := &UnjailResult{UserAbsent: !present}

	if !result.UserAbsent {
		err := uc.platform.RemoveRole(ctx, guild.JailRoleID, userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.Error("failed to remove jail role", "role", guild.JailRoleID, "err", err)
			return nil, fmt.Errorf("remove jail role: %w", err)
		}
	}

	if err := uc.moderationRepo.RemoveFromSet(ctx, domain.SetJailed, userID); err != nil {
		return nil, fmt.Errorf("clear jailed: %w", err)
	}
	if err := uc.moderationRepo.AddToSet(ctx, domain.SetExempt, userID); err != nil {
		return nil, fmt.Errorf("mark exempt: %w", err)
	}

	if result.UserAbsent {
		logger.Info("cleared jail for absent user")
		return result, nil
	}

	notifyBestEffort(ctx, uc.platform, logger, userID, uc.notices.Unjailed)
	logger.Info("user unjailed and exempted")
	return result, nil
}

// KeepJailed confirms the jail. No role change, notification only.
func (uc *SanctionUsecase) KeepJailed(ctx context.Context, guild domain.GuildContext, userID string) error {
	notifyBestEffort(ctx, uc.platform, uc.logger.With("user", userID), userID, uc.notices.KeptJailed)
	return nil
}

// notifyBestEffort sends a direct notification; failures are swallowed
func notifyBestEffort(ctx context.Context, platform repo.PlatformRepo, logger *slog.Logger, userID, text string) {
	if err := platform.SendDirect(ctx, userID, text); err != nil {
		notificationFailureCount.Inc()
		logger.Warn("direct notification failed", "err", err)
	}
}
