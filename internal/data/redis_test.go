package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

func TestRedisModerationStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}
	s := NewRedisModerationStore(client)
	defer s.Close()

	assert.NoError(s.SetWarnings(ctx, "test-user", 0))
	for want := 1; want <= 2; want++ {
		n, reset, err := s.IncrementWarnings(ctx, "test-user", 3)
		assert.NoError(err)
		assert.Equal(want, n)
		assert.False(reset)
	}
	n, reset, err := s.IncrementWarnings(ctx, "test-user", 3)
	assert.NoError(err)
	assert.Equal(3, n)
	assert.True(reset)

	assert.NoError(s.AddToSet(ctx, domain.SetJailed, "test-user"))
	ok, err := s.SetContains(ctx, domain.SetJailed, "test-user")
	assert.NoError(err)
	assert.True(ok)
	assert.NoError(s.RemoveFromSet(ctx, domain.SetJailed, "test-user"))
}

func TestRedisEvidenceStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}
	defer client.Close()
	s := NewRedisEvidenceStore(client, time.Hour)

	for i := 0; i < 7; i++ {
		assert.NoError(s.Record(ctx, "test-user", domain.NewEvidenceEntry("oc_1", "", "x", time.Now())))
	}
	l, err := s.Get(ctx, "test-user")
	assert.NoError(err)
	assert.Equal(domain.EvidenceCap, len(l))
	client.Del(ctx, redisEvidencePrefix+"test-user")
}
