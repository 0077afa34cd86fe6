package repo

import (
	"context"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

// ReviewRepo persists the pending review mapping (case id <-> user id) and the decision audit trail
type ReviewRepo interface {
	// CreatePending inserts the mapping, failing with domain.ErrReviewExists if the user already has a case
	CreatePending(ctx context.Context, review *domain.PendingReview) error

	// GetByUser and GetByCase return nil, nil when there is no pending case
	GetByUser(ctx context.Context, userID string) (*domain.PendingReview, error)
	GetByCase(ctx context.Context, caseID string) (*domain.PendingReview, error)

	// DeletePending removes both directions of the mapping; false if nothing was pending
	DeletePending(ctx context.Context, caseID string) (bool, error)

	ListPending(ctx context.Context) ([]*domain.PendingReview, error)

	// RecordDecision appends to the audit trail
	RecordDecision(ctx context.Context, rec *domain.ReviewDecisionRecord) error
	ListDecisions(ctx context.Context, userID string, limit int) ([]*domain.ReviewDecisionRecord, error)
}
