package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepStale(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestReviewScheduler_RunsUntilStopped(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewReviewScheduler(sweeper, 10*time.Millisecond, nil)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load())
}

func TestReviewScheduler_SweepError(t *testing.T) {
	s := NewReviewScheduler(&countingSweeper{err: errors.New("store down")}, 0, nil)
	assert.Equal(t, DefaultSweepInterval, s.interval)
	assert.Equal(t, 1, s.Sweep(context.Background()))
}

func TestReviewScheduler_DropsDeletedReviewPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.platform.members[userID] = true
	for i := 1; i <= 3; i++ {
		_, err := f.moderation.HandleMessage(ctx, msg(fmt.Sprintf("om_%d", i), userID, "spam"))
		require.NoError(t, err)
	}
	require.Len(t, f.platform.cards, 1)
	delete(f.platform.posts, "om_case_1")

	s := NewReviewScheduler(f.reviews, time.Hour, nil)
	assert.Equal(t, 1, s.Sweep(ctx))

	pending, err := f.reviews.PendingFor(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, pending)

	jailed, err := f.store.SetContains(ctx, domain.SetJailed, userID)
	require.NoError(t, err)
	assert.True(t, jailed, "sweeping a case never lifts the jail")
}
