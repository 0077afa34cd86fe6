package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// Sanctions is what a resolved review applies
type Sanctions interface {
	UnjailAndExemptMember(ctx context.Context, guild domain.GuildContext, userID string, present bool) (*UnjailResult, error)
	KeepJailed(ctx context.Context, guild domain.GuildContext, userID string) error
}

// OpenResult describes an Open call
type OpenResult struct {
	CaseID string
	// Existing is set when the trigger was folded into an already pending case
	Existing bool
}

// Resolution describes a successful Resolve call
type Resolution struct {
	CaseID   string
	UserID   string
	Decision domain.Decision
	Outcome  domain.ReviewOutcome
	Actor    domain.Actor
}

// ReviewUsecase opens, deduplicates and resolves human review cases, one per jailed user
type ReviewUsecase struct {
	reviewRepo repo.ReviewRepo
	platform   repo.PlatformRepo
	sanctions  Sanctions
	staff      *StaffPolicy
	notices    NoticeConfig
	locks      *KeyedMutex
	logger     *slog.Logger
	now        func() time.Time
}

// NewReviewUsecase creates a review coordinator
func NewReviewUsecase(
	reviewRepo repo.ReviewRepo,
	platform repo.PlatformRepo,
	sanctions Sanctions,
	staff *StaffPolicy,
	notices NoticeConfig,
	logger *slog.Logger,
) *ReviewUsecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewUsecase{
		reviewRepo: reviewRepo,
		platform:   platform,
		sanctions:  sanctions,
		staff:      staff,
		notices:    notices.WithDefaults(),
		locks:      NewKeyedMutex(),
		logger:     logger.With("component", "review"),
		now:        time.Now,
	}
}

// Open creates a review case for userID, or annotates the pending one.
// A pending case whose post no longer exists is treated as stale and replaced.
func (uc *ReviewUsecase) Open(ctx context.Context, guild domain.GuildContext, userID string, evidence []domain.EvidenceEntry) (*OpenResult, error) {
	unlock := uc.locks.Lock(userID)
	defer unlock()

	logger := uc.logger.With("user", userID)

	existing, err := uc.reviewRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get pending review: %w", err)
	}
	if existing != nil {
		err := uc.platform.FetchMessage(ctx, existing.CaseID)
		switch {
		case err == nil:
			if err := uc.platform.ReplyToMessage(ctx, existing.CaseID, uc.notices.AdditionalTrigger); err != nil {
				logger.Warn("failed to annotate pending review", "case", existing.CaseID, "err", err)
			}
			reviewOpenCount.WithLabelValues("folded").Inc()
			logger.Info("trigger folded into pending review", "case", existing.CaseID)
			return &OpenResult{CaseID: existing.CaseID, Existing: true}, nil

		case errors.Is(err, domain.ErrNotFound):
			logger.Info("pending review post is gone, opening a fresh case", "case", existing.CaseID)
			if _, err := uc.reviewRepo.DeletePending(ctx, existing.CaseID); err != nil {
				return nil, fmt.Errorf("clear stale review: %w", err)
			}
			reviewOpenCount.WithLabelValues("stale").Inc()

		default:
			// Unverifiable is not stale; keep the case rather than risk a duplicate.
			logger.Warn("could not verify pending review post", "case", existing.CaseID, "err", err)
			return &OpenResult{CaseID: existing.CaseID, Existing: true}, nil
		}
	}

	card := domain.ReviewCard{UserID: userID, Evidence: domain.RenderEvidence(evidence)}
	caseID, err := uc.platform.PostReview(ctx, guild.ReviewChatID, card)
	if err != nil {
		reviewOpenCount.WithLabelValues("post_failed").Inc()
		return nil, fmt.Errorf("post review: %w", err)
	}

	review := &domain.PendingReview{
		CaseID:   caseID,
		UserID:   userID,
		ChatID:   guild.ReviewChatID,
		OpenedAt: uc.now(),
	}
	if err := uc.reviewRepo.CreatePending(ctx, review); err != nil {
		if !errors.Is(err, domain.ErrReviewExists) {
			return nil, fmt.Errorf("save pending review: %w", err)
		}
		// Another instance won the race, retire our post.
		if cerr := uc.platform.CloseReview(ctx, caseID, "Duplicate review closed."); cerr != nil {
			logger.Warn("failed to close duplicate review post", "case", caseID, "err", cerr)
		}
		winner, gerr := uc.reviewRepo.GetByUser(ctx, userID)
		if gerr != nil || winner == nil {
			return nil, fmt.Errorf("save pending review: %w", err)
		}
		reviewOpenCount.WithLabelValues("folded").Inc()
		return &OpenResult{CaseID: winner.CaseID, Existing: true}, nil
	}

	reviewOpenCount.WithLabelValues("created").Inc()
	logger.Info("review opened", "case", caseID)
	return &OpenResult{CaseID: caseID}, nil
}

// Resolve applies a reviewer decision to a pending case.
// Order: validate, apply the sanction side effect, clear the mapping, close the case. A failure before the
// mapping is cleared leaves the case pending and safe to retry.
func (uc *ReviewUsecase) Resolve(ctx context.Context, guild domain.GuildContext, caseID string, decision domain.Decision, actor domain.Actor) (*Resolution, error) {
	pending, err := uc.reviewRepo.GetByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("get pending review: %w", err)
	}
	if pending == nil {
		return nil, domain.ErrAlreadyClosed
	}
	if !uc.staff.IsStaff(actor.UserID) {
		return nil, domain.ErrUnauthorized
	}

	unlock := uc.locks.Lock(pending.UserID)
	defer unlock()

	// A concurrent resolver may have finished while we waited.
	pending, err = uc.reviewRepo.GetByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("get pending review: %w", err)
	}
	if pending == nil {
		return nil, domain.ErrAlreadyClosed
	}

	logger := uc.logger.With("case", caseID, "user", pending.UserID, "actor", actor.UserID)
	res := &Resolution{
		CaseID:   caseID,
		UserID:   pending.UserID,
		Decision: decision,
		Actor:    actor,
	}

	_, err = uc.platform.GetMember(ctx, guild.ChatID, pending.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Outcome = domain.OutcomeUserLeft
		if decision == domain.DecisionUnjailExempt {
			if _, err := uc.sanctions.UnjailAndExemptMember(ctx, guild, pending.UserID, false); err != nil {
				return nil, fmt.Errorf("unjail absent user: %w", err)
			}
		}
	case err != nil:
		return nil, fmt.Errorf("lookup member: %w", err)
	default:
		res.Outcome = domain.OutcomeFor(decision)
		if err := uc.apply(ctx, guild, pending.UserID, decision); err != nil {
			return nil, err
		}
	}

	removed, err := uc.reviewRepo.DeletePending(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("clear pending review: %w", err)
	}
	if !removed {
		logger.Warn("pending review vanished during resolution")
	}

	rec := &domain.ReviewDecisionRecord{
		CaseID:    caseID,
		UserID:    pending.UserID,
		Decision:  decision,
		ActorID:   actor.UserID,
		Outcome:   res.Outcome,
		DecidedAt: uc.now(),
	}
	if err := uc.reviewRepo.RecordDecision(ctx, rec); err != nil {
		logger.Error("failed to record review decision", "err", err)
	}

	if err := uc.platform.CloseReview(ctx, caseID, uc.closeNotice(actor, decision, res.Outcome)); err != nil {
		logger.Warn("failed to close review post", "err", err)
	}

	reviewResolveCount.WithLabelValues(string(decision), string(res.Outcome)).Inc()
	logger.Info("review resolved", "decision", decision, "outcome", res.Outcome)
	return res, nil
}

func (uc *ReviewUsecase) apply(ctx context.Context, guild domain.GuildContext, userID string, decision domain.Decision) error {
	switch decision {
	case domain.DecisionUnjailExempt:
		if _, err := uc.sanctions.UnjailAndExemptMember(ctx, guild, userID, true); err != nil {
			return fmt.Errorf("unjail: %w", err)
		}
	case domain.DecisionKeepJailed:
		if err := uc.sanctions.KeepJailed(ctx, guild, userID); err != nil {
			return fmt.Errorf("keep jailed: %w", err)
		}
	default:
		return fmt.Errorf("unknown review decision %q", decision)
	}
	return nil
}

func (uc *ReviewUsecase) closeNotice(actor domain.Actor, decision domain.Decision, outcome domain.ReviewOutcome) string {
	who := actorDisplay(actor)
	if outcome == domain.OutcomeUserLeft {
		return fmt.Sprintf(uc.notices.ReviewClosedAbsent, who)
	}
	return fmt.Sprintf(uc.notices.ReviewClosed, who, decision.Verdict())
}

// ListPending returns all open cases
func (uc *ReviewUsecase) ListPending(ctx context.Context) ([]*domain.PendingReview, error) {
	return uc.reviewRepo.ListPending(ctx)
}

// PendingFor returns the open case for a user, or nil
func (uc *ReviewUsecase) PendingFor(ctx context.Context, userID string) (*domain.PendingReview, error) {
	return uc.reviewRepo.GetByUser(ctx, userID)
}

// SweepStale drops pending cases whose review post no longer exists and returns how many were dropped.
// Posts that cannot be verified are kept.
func (uc *ReviewUsecase) SweepStale(ctx context.Context) (int, error) {
	pending, err := uc.reviewRepo.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending reviews: %w", err)
	}

	swept := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return swept, ctx.Err()
		}
		if uc.sweepOne(ctx, p) {
			swept++
		}
	}
	return swept, nil
}

func (uc *ReviewUsecase) sweepOne(ctx context.Context, p *domain.PendingReview) bool {
	unlock := uc.locks.Lock(p.UserID)
	defer unlock()

	logger := uc.logger.With("user", p.UserID, "case", p.CaseID)
	err := uc.platform.FetchMessage(ctx, p.CaseID)
	if err == nil {
		return false
	}
	if !errors.Is(err, domain.ErrNotFound) {
		logger.Debug("could not verify pending review post during sweep", "err", err)
		return false
	}
	removed, err := uc.reviewRepo.DeletePending(ctx, p.CaseID)
	if err != nil {
		logger.Warn("failed to drop stale review", "err", err)
		return false
	}
	if removed {
		reviewOpenCount.WithLabelValues("swept").Inc()
		logger.Info("stale review dropped, its post was deleted")
	}
	return removed
}

// History returns recent decisions for a user
func (uc *ReviewUsecase) History(ctx context.Context, userID string, limit int) ([]*domain.ReviewDecisionRecord, error) {
	return uc.reviewRepo.ListDecisions(ctx, userID, limit)
}

func actorDisplay(a domain.Actor) string {
	m := domain.Member{UserID: a.UserID, Name: a.Name}
	return m.FormatCardMention()
}
