package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// RejoinUsecase removes jailed users who re-enter the community
type RejoinUsecase struct {
	moderationRepo repo.ModerationRepo
	platform       repo.PlatformRepo
	notices        NoticeConfig
	logger         *slog.Logger
}

// NewRejoinUsecase creates a rejoin guard
func NewRejoinUsecase(moderationRepo repo.ModerationRepo, platform repo.PlatformRepo, notices NoticeConfig, logger *slog.Logger) *RejoinUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RejoinUsecase{
		moderationRepo: moderationRepo,
		platform:       platform,
		notices:        notices.WithDefaults(),
		logger:         logger.With("component", "rejoin"),
	}
}

// OnJoin bans userID if it is in the jailed set and reports whether it did.
// The jailed set is authoritative; a user may be jailed with no pending review.
func (uc *RejoinUsecase) OnJoin(ctx context.Context, guild domain.GuildContext, userID string) (bool, error) {
	jailed, err := uc.moderationRepo.SetContains(ctx, domain.SetJailed, userID)
	if err != nil {
		return false, fmt.Errorf("check jailed: %w", err)
	}
	if !jailed {
		return false, nil
	}

	logger := uc.logger.With("user", userID)
	if err := uc.platform.BanMember(ctx, guild.ChatID, userID, uc.notices.RejoinBanReason); err != nil {
		logger.Error("failed to remove rejoining jailed user", "err", err)
		rejoinBanCount.WithLabelValues("failed").Inc()
		return false, fmt.Errorf("ban member: %w", err)
	}
	rejoinBanCount.WithLabelValues("banned").Inc()
	logger.Info("jailed user removed on rejoin")

	m := domain.Member{UserID: userID}
	if guild.LogChatID != "" {
		if err := uc.platform.SendText(ctx, guild.LogChatID, fmt.Sprintf(uc.notices.RejoinBanLog, m.FormatMention())); err != nil {
			logger.Warn("failed to write rejoin audit log", "err", err)
		}
	}
	return true, nil
}
