package usecase

import (
	"context"
	"fmt"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// EscalationResult is the outcome of one warning
type EscalationResult struct {
	// Reached is the count this warning reached (1..threshold)
	Reached int
	// Stored is the persisted count afterwards; zero when the jail was triggered
	Stored int
	// JailTriggered is the sole authority to jail the user
	JailTriggered bool
}

// EscalationUsecase tracks per-user warnings
type EscalationUsecase struct {
	moderationRepo repo.ModerationRepo
	threshold      int
	locks          *KeyedMutex
}

// NewEscalationUsecase creates a new escalation tracker with the standard threshold
func NewEscalationUsecase(moderationRepo repo.ModerationRepo) *EscalationUsecase {
	return &EscalationUsecase{
		moderationRepo: moderationRepo,
		threshold:      domain.WarningThreshold,
		locks:          NewKeyedMutex(),
	}
}

// Threshold returns the jail threshold
func (uc *EscalationUsecase) Threshold() int {
	return uc.threshold
}

// Increment adds a warning. The store performs the read-modify-write and threshold reset atomically;
// the per-user lock keeps increments for one user ordered within this process.
func (uc *EscalationUsecase) Increment(ctx context.Context, userID string) (EscalationResult, error) {
	unlock := uc.locks.Lock(userID)
	defer unlock()

	count, reset, err := uc.moderationRepo.IncrementWarnings(ctx, userID, uc.threshold)
	if err != nil {
		return EscalationResult{}, fmt.Errorf("increment warnings: %w", err)
	}
	warningCount.Inc()

	if reset {
		return EscalationResult{Reached: count, Stored: 0, JailTriggered: true}, nil
	}
	return EscalationResult{Reached: count, Stored: count}, nil
}

// Reset zeroes the warning counter without other side effects
func (uc *EscalationUsecase) Reset(ctx context.Context, userID string) error {
	unlock := uc.locks.Lock(userID)
	defer unlock()

	if err := uc.moderationRepo.SetWarnings(ctx, userID, 0); err != nil {
		return fmt.Errorf("reset warnings: %w", err)
	}
	return nil
}

// Get returns the current warning count
func (uc *EscalationUsecase) Get(ctx context.Context, userID string) (int, error) {
	return uc.moderationRepo.GetWarnings(ctx, userID)
}
