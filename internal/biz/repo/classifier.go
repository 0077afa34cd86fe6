package repo

import (
	"context"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

// ClassifierRepo is the external verdict oracle
type ClassifierRepo interface {
	// Classify returns SAFE or DELETE. Failures, timeouts and malformed replies are errors.
	Classify(ctx context.Context, content string, profile domain.Profile) (domain.Verdict, error)

	// Summarize condenses a chat transcript into a short paragraph
	Summarize(ctx context.Context, transcript string) (string, error)
}
