package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

var (
	redisWarningPrefix  = "modbot/warnings/"
	redisSetPrefix      = "modbot/set/"
	redisEvidencePrefix = "modbot/evidence/"
)

// incrementScript adds a warning and resets the counter when it reaches the threshold, atomically
var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n >= tonumber(ARGV[1]) then
	redis.call('SET', KEYS[1], 0)
	return {n, 1}
end
return {n, 0}
`)

// NewRedisClient connects to redisURL and checks the connection
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// RedisModerationStore keeps warning counters and user sets in Redis so several bot instances share them.
// It implements repo.ModerationRepo.
type RedisModerationStore struct {
	Client *redis.Client
}

// NewRedisModerationStore wraps an existing client
func NewRedisModerationStore(client *redis.Client) *RedisModerationStore {
	return &RedisModerationStore{Client: client}
}

func (s *RedisModerationStore) IncrementWarnings(ctx context.Context, userID string, threshold int) (int, bool, error) {
	res, err := incrementScript.Run(ctx, s.Client, []string{redisWarningPrefix + userID}, threshold).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment warnings: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected increment reply %v", res)
	}
	return int(res[0]), res[1] == 1, nil
}

func (s *RedisModerationStore) GetWarnings(ctx context.Context, userID string) (int, error) {
	c, err := s.Client.Get(ctx, redisWarningPrefix+userID).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisModerationStore) SetWarnings(ctx context.Context, userID string, n int) error {
	return s.Client.Set(ctx, redisWarningPrefix+userID, n, 0).Err()
}

func (s *RedisModerationStore) AddToSet(ctx context.Context, set domain.UserSet, userID string) error {
	return s.Client.SAdd(ctx, redisSetPrefix+string(set), userID).Err()
}

func (s *RedisModerationStore) RemoveFromSet(ctx context.Context, set domain.UserSet, userID string) error {
	return s.Client.SRem(ctx, redisSetPrefix+string(set), userID).Err()
}

func (s *RedisModerationStore) SetContains(ctx context.Context, set domain.UserSet, userID string) (bool, error) {
	return s.Client.SIsMember(ctx, redisSetPrefix+string(set), userID).Result()
}

func (s *RedisModerationStore) ListSet(ctx context.Context, set domain.UserSet) ([]string, error) {
	return s.Client.SMembers(ctx, redisSetPrefix+string(set)).Result()
}

func (s *RedisModerationStore) Close() error {
	return s.Client.Close()
}

// RedisEvidenceStore keeps the capped evidence list per user in Redis.
// It implements repo.EvidenceRepo.
type RedisEvidenceStore struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisEvidenceStore wraps an existing client; entries expire ttl after the last record
func NewRedisEvidenceStore(client *redis.Client, ttl time.Duration) *RedisEvidenceStore {
	return &RedisEvidenceStore{Client: client, TTL: ttl}
}

func (s *RedisEvidenceStore) Record(ctx context.Context, userID string, entry domain.EvidenceEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := redisEvidencePrefix + userID

	// append and trim in a single round-trip
	multi := s.Client.TxPipeline()
	multi.RPush(ctx, key, b)
	multi.LTrim(ctx, key, -domain.EvidenceCap, -1)
	if s.TTL > 0 {
		multi.Expire(ctx, key, s.TTL)
	}
	_, err = multi.Exec(ctx)
	return err
}

func (s *RedisEvidenceStore) Get(ctx context.Context, userID string) ([]domain.EvidenceEntry, error) {
	raw, err := s.Client.LRange(ctx, redisEvidencePrefix+userID, 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	out := make([]domain.EvidenceEntry, 0, len(raw))
	for _, r := range raw {
		var e domain.EvidenceEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("failed to decode evidence: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
