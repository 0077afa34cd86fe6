package usecase

import (
	"context"
	"log/slog"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// EvidenceUsecase is the bounded per-user cache of flagged excerpts shown to reviewers
type EvidenceUsecase struct {
	evidenceRepo repo.EvidenceRepo
	logger       *slog.Logger
}

// NewEvidenceUsecase creates a new evidence usecase
func NewEvidenceUsecase(evidenceRepo repo.EvidenceRepo, logger *slog.Logger) *EvidenceUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvidenceUsecase{evidenceRepo: evidenceRepo, logger: logger.With("component", "evidence")}
}

// Record stores an entry. Failures are logged only, evidence is best-effort.
func (uc *EvidenceUsecase) Record(ctx context.Context, userID string, entry domain.EvidenceEntry) {
	if err := uc.evidenceRepo.Record(ctx, userID, entry); err != nil {
		uc.logger.Warn("failed to record evidence", "user", userID, "err", err)
	}
}

// Get returns the cached entries for a user, oldest first (most recent last)
func (uc *EvidenceUsecase) Get(ctx context.Context, userID string) []domain.EvidenceEntry {
	entries, err := uc.evidenceRepo.Get(ctx, userID)
	if err != nil {
		uc.logger.Warn("failed to load evidence", "user", userID, "err", err)
		return nil
	}
	return entries
}

// Render returns the reviewer-facing evidence text, or the explicit no-evidence marker
func (uc *EvidenceUsecase) Render(ctx context.Context, userID string) string {
	return domain.RenderEvidence(uc.Get(ctx, userID))
}
