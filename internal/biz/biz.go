package biz

import (
	"log/slog"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
)

// Repos are the repositories the usecases are built from
type Repos struct {
	Moderation repo.ModerationRepo
	Whitelist  repo.WhitelistRepo
	Review     repo.ReviewRepo
	Evidence   repo.EvidenceRepo
	Classifier repo.ClassifierRepo // nil disables classification
	Platform   repo.PlatformRepo
}

// Usecases contains all usecases
type Usecases struct {
	StaffPolicy *usecase.StaffPolicy
	Whitelist   *usecase.WhitelistUsecase
	Gate        *usecase.GateUsecase
	Evidence    *usecase.EvidenceUsecase
	Escalation  *usecase.EscalationUsecase
	Sanctions   *usecase.SanctionUsecase
	Reviews     *usecase.ReviewUsecase
	Rejoin      *usecase.RejoinUsecase
	Staff       *usecase.StaffUsecase
}

// NewUsecases wires the usecases together
func NewUsecases(repos Repos, staffUserIDs []string, classifierTimeout time.Duration, notices usecase.NoticeConfig, logger *slog.Logger) *Usecases {
	if logger == nil {
		logger = slog.Default()
	}

	staffPolicy := usecase.NewStaffPolicy(staffUserIDs)
	whitelist := usecase.NewWhitelistUsecase(repos.Whitelist)
	evidence := usecase.NewEvidenceUsecase(repos.Evidence, logger)
	escalation := usecase.NewEscalationUsecase(repos.Moderation)
	sanctions := usecase.NewSanctionUsecase(repos.Moderation, repos.Platform, evidence, notices, logger)
	reviews := usecase.NewReviewUsecase(repos.Review, repos.Platform, sanctions, staffPolicy, notices, logger)
	sanctions.SetReviewOpener(reviews)

	return &Usecases{
		StaffPolicy: staffPolicy,
		Whitelist:   whitelist,
		Gate:        usecase.NewGateUsecase(whitelist, repos.Classifier, classifierTimeout, logger),
		Evidence:    evidence,
		Escalation:  escalation,
		Sanctions:   sanctions,
		Reviews:     reviews,
		Rejoin:      usecase.NewRejoinUsecase(repos.Moderation, repos.Platform, notices, logger),
		Staff:       usecase.NewStaffUsecase(repos.Moderation, escalation, reviews, repos.Platform, repos.Classifier, logger),
	}
}
