package service

import (
	"log/slog"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz"
	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
)

// Deps are the repositories and settings the services are built from
type Deps struct {
	Guild             domain.GuildContext
	StaffUserIDs      []string
	IgnoredChatIDs    []string
	ClassifierTimeout time.Duration
	Notices           usecase.NoticeConfig

	Moderation repo.ModerationRepo
	Whitelist  repo.WhitelistRepo
	Review     repo.ReviewRepo
	Evidence   repo.EvidenceRepo
	Classifier repo.ClassifierRepo // nil disables classification
	Platform   repo.PlatformRepo
}

// Services is the assembled application layer
type Services struct {
	Moderation *ModerationService
	Commands   *CommandService

	Staff     *usecase.StaffUsecase
	Whitelist *usecase.WhitelistUsecase
	Reviews   *usecase.ReviewUsecase
	Sanctions *usecase.SanctionUsecase
}

// New wires the usecases and services
func New(deps Deps, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}

	uc := biz.NewUsecases(biz.Repos{
		Moderation: deps.Moderation,
		Whitelist:  deps.Whitelist,
		Review:     deps.Review,
		Evidence:   deps.Evidence,
		Classifier: deps.Classifier,
		Platform:   deps.Platform,
	}, deps.StaffUserIDs, deps.ClassifierTimeout, deps.Notices, logger)

	return &Services{
		Moderation: NewModerationService(ModerationDeps{
			Guild:          deps.Guild,
			Staff:          uc.StaffPolicy,
			IgnoredChatIDs: deps.IgnoredChatIDs,
			Gate:           uc.Gate,
			Evidence:       uc.Evidence,
			Escalation:     uc.Escalation,
			Sanctions:      uc.Sanctions,
			Reviews:        uc.Reviews,
			Rejoin:         uc.Rejoin,
			ModerationRepo: deps.Moderation,
			Platform:       deps.Platform,
			Notices:        deps.Notices,
		}, logger),
		Commands:  NewCommandService(uc.StaffPolicy, uc.Staff, uc.Whitelist, deps.Platform, logger),
		Staff:     uc.Staff,
		Whitelist: uc.Whitelist,
		Reviews:   uc.Reviews,
		Sanctions: uc.Sanctions,
	}
}
