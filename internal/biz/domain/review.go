package domain

import (
	"fmt"
	"time"
)

// Decision is a reviewer's verdict on a jail
type Decision string

const (
	// DecisionUnjailExempt means the jail was not warranted
	DecisionUnjailExempt Decision = "unjail_exempt"
	// DecisionKeepJailed means the jail was correct
	DecisionKeepJailed Decision = "keep_jailed"
)

// ParseDecision validates a decision value coming from a card button
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionUnjailExempt, DecisionKeepJailed:
		return Decision(s), nil
	}
	return "", fmt.Errorf("unknown review decision %q", s)
}

// Verdict returns the wording used when closing a case
func (d Decision) Verdict() string {
	if d == DecisionUnjailExempt {
		return "not warranted"
	}
	return "correct"
}

// ReviewOutcome describes how a case was closed
type ReviewOutcome string

const (
	OutcomeUnjailed  ReviewOutcome = "unjailed"
	OutcomeConfirmed ReviewOutcome = "confirmed"
	OutcomeUserLeft  ReviewOutcome = "user_left"
)

// PendingReview ties an open review case to exactly one jailed user
type PendingReview struct {
	CaseID   string    `json:"case_id"`
	UserID   string    `json:"user_id"`
	ChatID   string    `json:"chat_id"`
	OpenedAt time.Time `json:"opened_at"`
}

// ReviewCard is what gets rendered for reviewers
type ReviewCard struct {
	UserID   string
	Evidence string
}

// ReviewDecisionRecord is the audit trail entry for a resolution
type ReviewDecisionRecord struct {
	CaseID    string        `json:"case_id"`
	UserID    string        `json:"user_id"`
	Decision  Decision      `json:"decision"`
	ActorID   string        `json:"actor_id"`
	Outcome   ReviewOutcome `json:"outcome"`
	DecidedAt time.Time     `json:"decided_at"`
}

// OutcomeFor maps a decision applied to a present member to its outcome
func OutcomeFor(d Decision) ReviewOutcome {
	if d == DecisionUnjailExempt {
		return OutcomeUnjailed
	}
	return OutcomeConfirmed
}
