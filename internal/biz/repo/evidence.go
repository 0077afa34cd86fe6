package repo

import (
	"context"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

// EvidenceRepo keeps the bounded recent history of flagged excerpts per user.
// It is best-effort and not transactional with the warning counter.
type EvidenceRepo interface {
	// Record appends an entry, dropping the oldest beyond domain.EvidenceCap
	Record(ctx context.Context, userID string, entry domain.EvidenceEntry) error
	// Get returns entries oldest first
	Get(ctx context.Context, userID string) ([]domain.EvidenceEntry, error)
}
