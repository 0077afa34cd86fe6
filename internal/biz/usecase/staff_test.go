package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

func TestStaffPolicy(t *testing.T) {
	p := NewStaffPolicy([]string{" ou_a ", "", "ou_b"})
	assert.True(t, p.IsStaff("ou_a"))
	assert.True(t, p.IsStaff("ou_b"))
	assert.False(t, p.IsStaff(""))
	assert.False(t, p.IsStaff("ou_c"))

	var nilPolicy *StaffPolicy
	assert.False(t, nilPolicy.IsStaff("ou_a"))
}

func newStaffFixture(classifier *mockClassifier) (*moderationFixture, *StaffUsecase) {
	f := newModerationFixture()
	var c repo.ClassifierRepo
	if classifier != nil {
		c = classifier
	}
	uc := NewStaffUsecase(f.modRepo, f.escalation, f.reviews, f.platform, c, nil)
	return f, uc
}

func TestStaffUsecase_Exempt(t *testing.T) {
	ctx := context.Background()
	_, uc := newStaffFixture(nil)

	added, err := uc.AddExempt(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = uc.AddExempt(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, added)

	list, err := uc.ListExempt(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, list)

	removed, err := uc.RemoveExempt(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = uc.RemoveExempt(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestStaffUsecase_UserState(t *testing.T) {
	ctx := context.Background()
	f, uc := newStaffFixture(nil)

	_, _ = f.escalation.Increment(ctx, "u1")
	_, _ = f.escalation.Increment(ctx, "u1")
	require.NoError(t, f.modRepo.AddToSet(ctx, domain.SetExempt, "u1"))

	state, err := uc.UserState(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, &domain.UserState{UserID: "u1", WarningCount: 2, Exempt: true}, state)

	require.NoError(t, uc.ResetWarnings(ctx, "u1"))
	state, err = uc.UserState(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, state.WarningCount)
	assert.True(t, state.Exempt)
}

func TestStaffUsecase_DirectMessage(t *testing.T) {
	ctx := context.Background()
	f, uc := newStaffFixture(nil)

	assert.Error(t, uc.DirectMessage(ctx, "u1", "  "))
	require.NoError(t, uc.DirectMessage(ctx, "u1", "hello"))
	assert.Equal(t, []sentText{{To: "u1", Text: "hello"}}, f.platform.directs)
}

func TestStaffUsecase_SummarizeWithoutClassifier(t *testing.T) {
	_, uc := newStaffFixture(nil)
	_, err := uc.Summarize(context.Background(), "oc_general", 10)
	assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestStaffUsecase_Summarize(t *testing.T) {
	ctx := context.Background()
	classifier := &mockClassifier{summary: "People discussed the weather."}
	f, uc := newStaffFixture(classifier)

	now := time.Now()
	for i := 0; i < 150; i++ {
		f.platform.history = append(f.platform.history, domain.Message{
			ID: "m", SenderName: "alice", Content: "sunny", CreateTime: now,
		})
	}
	f.platform.history = append(f.platform.history, domain.Message{SenderName: "bot", Content: "beep", IsBot: true})

	_, err := uc.Summarize(ctx, "oc_general", 500)
	assert.ErrorIs(t, err, ErrSummaryTooLong)

	summary, err := uc.Summarize(ctx, "oc_general", MaxSummaryMessages)
	require.NoError(t, err)
	assert.Equal(t, "People discussed the weather.", summary)
	assert.Equal(t, MaxSummaryMessages, f.platform.historySeen)
	assert.Contains(t, classifier.lastText, "alice: sunny")
	assert.NotContains(t, classifier.lastText, "beep")

	_, err = uc.Summarize(ctx, "oc_general", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSummaryMessages, f.platform.historySeen)
}
