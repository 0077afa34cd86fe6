package repo

import (
	"context"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

// ModerationRepo is the persisted per-user moderation state: the warning counter and named user sets.
// All operations are safe for concurrent callers; same-key ordering is the caller's job.
type ModerationRepo interface {
	// IncrementWarnings atomically adds one warning. When the new count reaches threshold the counter
	// is reset to zero within the same operation and reset is true. count is the value reached.
	IncrementWarnings(ctx context.Context, userID string, threshold int) (count int, reset bool, err error)

	// GetWarnings returns the current counter, zero for unknown users
	GetWarnings(ctx context.Context, userID string) (int, error)

	// SetWarnings overwrites the counter
	SetWarnings(ctx context.Context, userID string, n int) error

	// Set operations
	AddToSet(ctx context.Context, set domain.UserSet, userID string) error
	RemoveFromSet(ctx context.Context, set domain.UserSet, userID string) error
	SetContains(ctx context.Context, set domain.UserSet, userID string) (bool, error)
	ListSet(ctx context.Context, set domain.UserSet) ([]string, error)

	Close() error
}
