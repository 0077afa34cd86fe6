package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// DefaultClassifierTimeout bounds a single classifier call
const DefaultClassifierTimeout = 10 * time.Second

// GateUsecase decides SAFE or DELETE for a message
type GateUsecase struct {
	whitelist  *WhitelistUsecase
	classifier repo.ClassifierRepo
	timeout    time.Duration
	logger     *slog.Logger
}

// NewGateUsecase creates a moderation gate
func NewGateUsecase(whitelist *WhitelistUsecase, classifier repo.ClassifierRepo, timeout time.Duration, logger *slog.Logger) *GateUsecase {
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GateUsecase{
		whitelist:  whitelist,
		classifier: classifier,
		timeout:    timeout,
		logger:     logger.With("component", "gate"),
	}
}

// Classify returns the verdict for content.
// A whitelisted phrase forces SAFE. Classifier failures fail open to SAFE and are logged as degraded.
func (uc *GateUsecase) Classify(ctx context.Context, content string, lenient bool) domain.Verdict {
	matched, err := uc.whitelist.Matches(ctx, content)
	if err != nil {
		uc.logger.Warn("whitelist lookup failed, continuing to classifier", "err", err)
	}
	if matched {
		whitelistHitCount.Inc()
		return domain.VerdictSafe
	}

	profile := domain.ProfileFor(lenient)
	if uc.classifier == nil {
		uc.logger.Warn("degraded: no classifier configured, failing open", "profile", profile)
		classifierFailureCount.WithLabelValues("unconfigured").Inc()
		return domain.VerdictSafe
	}

	cctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	verdict, err := uc.classifier.Classify(cctx, content, profile)
	if err != nil {
		reason := failureReason(err)
		uc.logger.Warn("degraded: classifier failed, failing open to SAFE",
			"profile", profile, "reason", reason, "err", err)
		classifierFailureCount.WithLabelValues(reason).Inc()
		return domain.VerdictSafe
	}

	verdictCount.WithLabelValues(string(profile), string(verdict)).Inc()
	return verdict
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrMalformedVerdict):
		return "malformed"
	default:
		return "unavailable"
	}
}
