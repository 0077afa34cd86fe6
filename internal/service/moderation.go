package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
)

// MessageRequest is a chat message to moderate
type MessageRequest struct {
	ChatID     string
	ChatName   string
	ChatType   string // p2p, group
	MsgID      string
	Content    string
	SenderID   string
	SenderName string
	CreateTime time.Time
}

// ModerationOutcome describes what happened to one message
type ModerationOutcome struct {
	Skipped    string // non-empty when the message was not classified
	Verdict    domain.Verdict
	Deleted    bool
	Escalation *usecase.EscalationResult
	Jail       *usecase.JailResult
	// Review is set when the trigger was folded into the review of an already jailed user
	Review *usecase.OpenResult
}

// ModerationService runs the per-message moderation pipeline and the join and review callbacks
type ModerationService struct {
	guild          domain.GuildContext
	staff          *usecase.StaffPolicy
	ignored        map[string]struct{}
	gate           *usecase.GateUsecase
	evidence       *usecase.EvidenceUsecase
	escalation     *usecase.EscalationUsecase
	sanctions      *usecase.SanctionUsecase
	reviews        *usecase.ReviewUsecase
	rejoin         *usecase.RejoinUsecase
	moderationRepo repo.ModerationRepo
	platform       repo.PlatformRepo
	notices        usecase.NoticeConfig
	locks          *usecase.KeyedMutex
	logger         *slog.Logger
}

// ModerationDeps groups the collaborators of the moderation service
type ModerationDeps struct {
	Guild          domain.GuildContext
	Staff          *usecase.StaffPolicy
	IgnoredChatIDs []string
	Gate           *usecase.GateUsecase
	Evidence       *usecase.EvidenceUsecase
	Escalation     *usecase.EscalationUsecase
	Sanctions      *usecase.SanctionUsecase
	Reviews        *usecase.ReviewUsecase
	Rejoin         *usecase.RejoinUsecase
	ModerationRepo repo.ModerationRepo
	Platform       repo.PlatformRepo
	Notices        usecase.NoticeConfig
}

// NewModerationService creates a new moderation service
func NewModerationService(deps ModerationDeps, logger *slog.Logger) *ModerationService {
	if logger == nil {
		logger = slog.Default()
	}
	ignored := make(map[string]struct{}, len(deps.IgnoredChatIDs)+2)
	for _, id := range deps.IgnoredChatIDs {
		ignored[id] = struct{}{}
	}
	// the bot's own working chats are never moderated
	for _, id := range []string{deps.Guild.ReviewChatID, deps.Guild.LogChatID} {
		if id != "" {
			ignored[id] = struct{}{}
		}
	}
	return &ModerationService{
		guild:          deps.Guild,
		staff:          deps.Staff,
		ignored:        ignored,
		gate:           deps.Gate,
		evidence:       deps.Evidence,
		escalation:     deps.Escalation,
		sanctions:      deps.Sanctions,
		reviews:        deps.Reviews,
		rejoin:         deps.Rejoin,
		moderationRepo: deps.ModerationRepo,
		platform:       deps.Platform,
		notices:        deps.Notices.WithDefaults(),
		locks:          usecase.NewKeyedMutex(),
		logger:         logger.With("component", "moderation"),
	}
}

// Guild returns the community scope
func (s *ModerationService) Guild() domain.GuildContext {
	return s.guild
}

// skipReason returns why a message is not moderated, or ""
func (s *ModerationService) skipReason(req *MessageRequest) string {
	switch {
	case req.SenderID == "":
		return "no sender"
	case req.ChatType == "p2p":
		return "direct message"
	case strings.TrimSpace(req.Content) == "":
		return "empty"
	case s.staff.IsStaff(req.SenderID):
		return "staff"
	}
	if _, ok := s.ignored[req.ChatID]; ok {
		return "ignored chat"
	}
	return ""
}

// HandleMessage classifies a message and, on DELETE, removes it, records evidence, warns and escalates.
// Messages of one author are processed one at a time.
func (s *ModerationService) HandleMessage(ctx context.Context, req *MessageRequest) (*ModerationOutcome, error) {
	if reason := s.skipReason(req); reason != "" {
		return &ModerationOutcome{Skipped: reason}, nil
	}

	unlock := s.locks.Lock(req.SenderID)
	defer unlock()

	logger := s.logger.With("user", req.SenderID, "chat", req.ChatID, "msg", req.MsgID)

	exempt, err := s.moderationRepo.SetContains(ctx, domain.SetExempt, req.SenderID)
	if err != nil {
		logger.Warn("exempt lookup failed, using strict profile", "err", err)
		exempt = false
	}

	out := &ModerationOutcome{Verdict: s.gate.Classify(ctx, req.Content, exempt)}
	if out.Verdict != domain.VerdictDelete {
		return out, nil
	}

	logger.Info("message flagged", "profile", domain.ProfileFor(exempt))

	if err := s.platform.DeleteMessage(ctx, req.MsgID); err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			logger.Error("cannot delete flagged message, missing permission", "err", err)
		} else {
			logger.Warn("failed to delete flagged message", "err", err)
		}
	} else {
		out.Deleted = true
	}

	createdAt := req.CreateTime
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	s.evidence.Record(ctx, req.SenderID, domain.NewEvidenceEntry(req.ChatID, req.ChatName, req.Content, createdAt))

	s.logViolation(ctx, logger, req)

	esc, err := s.escalation.Increment(ctx, req.SenderID)
	if err != nil {
		return out, fmt.Errorf("escalate: %w", err)
	}
	out.Escalation = &esc

	warning := fmt.Sprintf(s.notices.Warning, esc.Reached, s.escalation.Threshold())
	if err := s.platform.SendDirect(ctx, req.SenderID, warning); err != nil {
		logger.Warn("failed to send warning", "err", err)
	}

	if !esc.JailTriggered {
		return out, s.noteJailedTrigger(ctx, logger, req.SenderID, out)
	}

	logger.Info("warning threshold reached, jailing", "warnings", esc.Reached)
	jail, err := s.sanctions.Jail(ctx, s.guild, req.SenderID)
	out.Jail = jail
	if err != nil {
		return out, fmt.Errorf("jail: %w", err)
	}
	return out, nil
}

// noteJailedTrigger annotates the pending review when a jailed user is flagged again.
// A pending case whose post was deleted is replaced by Open.
// Only the escalation threshold jails; this never does.
func (s *ModerationService) noteJailedTrigger(ctx context.Context, logger *slog.Logger, userID string, out *ModerationOutcome) error {
	jailed, err := s.sanctions.IsJailed(ctx, userID)
	if err != nil {
		logger.Warn("jailed lookup failed, review not annotated", "err", err)
		return nil
	}
	if !jailed {
		return nil
	}
	pending, err := s.reviews.PendingFor(ctx, userID)
	if err != nil {
		logger.Warn("pending review lookup failed, review not annotated", "err", err)
		return nil
	}
	if pending == nil {
		// review already decided, keep the jail without a new case
		return nil
	}
	review, err := s.reviews.Open(ctx, s.guild, userID, s.evidence.Get(ctx, userID))
	if err != nil {
		return fmt.Errorf("annotate review: %w", err)
	}
	out.Review = review
	return nil
}

func (s *ModerationService) logViolation(ctx context.Context, logger *slog.Logger, req *MessageRequest) {
	if s.guild.LogChatID == "" {
		return
	}
	user := domain.Member{UserID: req.SenderID, Name: req.SenderName}
	channel := req.ChatName
	if channel == "" {
		channel = req.ChatID
	}
	text := fmt.Sprintf(s.notices.ViolationLog, user.FormatMention(), channel, req.Content)
	if err := s.platform.SendText(ctx, s.guild.LogChatID, text); err != nil {
		logger.Warn("failed to write violation log", "err", err)
	}
}

// HandleJoin applies the rejoin guard to users added to the community chat
func (s *ModerationService) HandleJoin(ctx context.Context, chatID string, userIDs []string) {
	if chatID != s.guild.ChatID {
		return
	}
	for _, id := range userIDs {
		if _, err := s.rejoin.OnJoin(ctx, s.guild, id); err != nil {
			s.logger.Error("rejoin guard failed", "user", id, "err", err)
		}
	}
}

// Feedback is the short reply shown to a reviewer after clicking a decision
type Feedback struct {
	Level string // success, info, warning, error
	Text  string
}

// HandleReviewDecision resolves a review case from a card click
func (s *ModerationService) HandleReviewDecision(ctx context.Context, caseID, rawDecision string, actor domain.Actor) *Feedback {
	decision, err := domain.ParseDecision(rawDecision)
	if err != nil {
		return &Feedback{Level: "error", Text: "Unknown review action."}
	}

	res, err := s.reviews.Resolve(ctx, s.guild, caseID, decision, actor)
	switch {
	case errors.Is(err, domain.ErrAlreadyClosed):
		return &Feedback{Level: "info", Text: "This review is already closed."}
	case errors.Is(err, domain.ErrUnauthorized):
		return &Feedback{Level: "error", Text: "Only moderators can resolve jail reviews."}
	case err != nil:
		s.logger.Error("review decision failed", "case", caseID, "decision", decision, "err", err)
		return &Feedback{Level: "error", Text: "Could not apply the decision, please try again."}
	}

	switch res.Outcome {
	case domain.OutcomeUserLeft:
		return &Feedback{Level: "warning", Text: "User already left, review closed."}
	case domain.OutcomeUnjailed:
		return &Feedback{Level: "success", Text: "User unjailed and exempted."}
	default:
		return &Feedback{Level: "success", Text: "Jail confirmed."}
	}
}
