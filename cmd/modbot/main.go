package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/DevRickLin/feishu-modbot/internal/api"
	"github.com/DevRickLin/feishu-modbot/internal/conf"
	"github.com/DevRickLin/feishu-modbot/internal/data"
	"github.com/DevRickLin/feishu-modbot/internal/infra/feishu"
	"github.com/DevRickLin/feishu-modbot/internal/infra/openai"
	"github.com/DevRickLin/feishu-modbot/internal/server"
	"github.com/DevRickLin/feishu-modbot/internal/service"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// Load configuration
	cfg := conf.LoadFromEnv()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	// Initialize clients
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret, logger)

	var openaiClient *openai.Client
	if cfg.Classifier.APIKey != "" {
		openaiClient = openai.NewClient(cfg.Classifier.APIKey, cfg.Classifier.BaseURL, cfg.Classifier.Model)
		logger.Info("classifier enabled", "model", openaiClient.Model())
	} else {
		logger.Warn("OPENAI_API_KEY not set, every message will be treated as safe")
	}

	// Initialize repository layer
	ctx := context.Background()
	repos, err := data.NewRepositories(ctx, feishuClient, openaiClient, data.Options{
		DBPath:             cfg.Store.DBPath,
		RedisURL:           cfg.Store.RedisURL,
		EvidenceCacheUsers: cfg.Store.EvidenceCacheUsers,
		Prompts: data.ClassifierPrompts{
			Strict:  cfg.Prompts.Classifier.Strict,
			Lenient: cfg.Prompts.Classifier.Lenient,
			Summary: cfg.Prompts.Classifier.SummaryPrompt,
		},
	})
	if err != nil {
		logger.Error("failed to create repositories", "err", err)
		os.Exit(1)
	}
	defer repos.Close()
	logger.Info("store opened", "db", cfg.Store.DBPath, "redis", cfg.Store.RedisURL != "")

	// Initialize usecase and service layers
	svcs := service.New(service.Deps{
		Guild:             cfg.Community.ToGuildContext(),
		StaffUserIDs:      cfg.Community.StaffUserIDs,
		IgnoredChatIDs:    cfg.Community.IgnoredChatIDs,
		ClassifierTimeout: cfg.Classifier.Timeout,
		Notices:           cfg.ToNoticeConfig(),
		Moderation:        repos.Moderation,
		Whitelist:         repos.Whitelist,
		Review:            repos.Review,
		Evidence:          repos.Evidence,
		Classifier:        repos.Classifier,
		Platform:          repos.Platform,
	}, logger)

	// Initialize admin API server for modbot-mcp and operators
	apiServer := api.NewServer(svcs.Staff, svcs.Whitelist, svcs.Reviews, cfg.Community.ChatID, cfg.APIPort, logger)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("API server error", "err", err)
		}
	}()

	srv := server.NewFeishuServer(feishuClient, svcs.Moderation, svcs.Commands, logger)
	if cfg.Community.ReviewSweep > 0 {
		srv.SetScheduler(service.NewReviewScheduler(svcs.Reviews, cfg.Community.ReviewSweep, logger))
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutting down")
		srv.Stop()
		apiServer.Stop()
		repos.Close()
		os.Exit(0)
	}()

	logger.Info("starting feishu moderation bot", "chat", cfg.Community.ChatID, "staff", len(cfg.Community.StaffUserIDs))
	if err := srv.Start(); err != nil {
		logger.Error("server error", "err", err)
		repos.Close()
		os.Exit(1)
	}
}
