package data

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/infra/feishu"
	"github.com/DevRickLin/feishu-modbot/internal/infra/openai"
)

// evidenceTTL bounds how long flagged excerpts are kept after the last one
const evidenceTTL = 30 * 24 * time.Hour

// Options selects the storage backends
type Options struct {
	DBPath             string
	RedisURL           string // optional
	EvidenceCacheUsers int
	Prompts            ClassifierPrompts
}

// Repositories contains all repositories
type Repositories struct {
	Store      *Store
	Moderation repo.ModerationRepo
	Whitelist  repo.WhitelistRepo
	Review     repo.ReviewRepo
	Evidence   repo.EvidenceRepo
	Classifier repo.ClassifierRepo
	Platform   repo.PlatformRepo

	redis *redis.Client
}

// NewRepositories creates all repositories.
// SQLite always holds the whitelist and reviews; with Redis the counters, sets and evidence move there.
func NewRepositories(
	ctx context.Context,
	feishuClient *feishu.Client,
	openaiClient *openai.Client,
	opts Options,
) (*Repositories, error) {
	store, err := NewStore(opts.DBPath)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{
		Store:      store,
		Moderation: store,
		Whitelist:  store,
		Review:     store,
		Evidence:   NewMemEvidenceStore(opts.EvidenceCacheUsers, evidenceTTL),
		Classifier: NewClassifierRepo(openaiClient, opts.Prompts),
	}
	if feishuClient != nil {
		repos.Platform = NewFeishuRepo(feishuClient)
	}

	if opts.RedisURL != "" {
		client, err := NewRedisClient(ctx, opts.RedisURL)
		if err != nil {
			store.Close()
			return nil, err
		}
		repos.redis = client
		repos.Moderation = NewRedisModerationStore(client)
		repos.Evidence = NewRedisEvidenceStore(client, evidenceTTL)
	}

	return repos, nil
}

// Close releases the database and redis connections
func (r *Repositories) Close() error {
	if r.redis != nil {
		r.redis.Close()
	}
	return r.Store.Close()
}
