package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

func TestRejoinUsecase_OnJoin(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture()

	banned, err := f.rejoin.OnJoin(ctx, testGuild, "u_clean")
	require.NoError(t, err)
	assert.False(t, banned)
	assert.Empty(t, f.platform.banned)

	// jailed with no pending review: the jailed set alone decides
	require.NoError(t, f.modRepo.AddToSet(ctx, domain.SetJailed, "u1"))
	banned, err = f.rejoin.OnJoin(ctx, testGuild, "u1")
	require.NoError(t, err)
	assert.True(t, banned)
	assert.Equal(t, []string{"u1"}, f.platform.banned)

	require.Len(t, f.platform.texts, 1)
	assert.Equal(t, testGuild.LogChatID, f.platform.texts[0].To)
	assert.Contains(t, f.platform.texts[0].Text, "u1")

	// a rejoin never opens a review
	assert.Zero(t, f.platform.postCount())
}

func TestRejoinUsecase_BanFailure(t *testing.T) {
	ctx := context.Background()
	f := newModerationFixture()
	require.NoError(t, f.modRepo.AddToSet(ctx, domain.SetJailed, "u1"))
	f.platform.banErr = domain.ErrPermissionDenied

	banned, err := f.rejoin.OnJoin(ctx, testGuild, "u1")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
	assert.False(t, banned)
	assert.Empty(t, f.platform.texts)
}
