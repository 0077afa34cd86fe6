package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
)

func staffCmd(text string, mentions ...domain.Member) *CommandRequest {
	return &CommandRequest{ChatID: testGuild.ChatID, SenderID: staffID, Text: text, Mentions: mentions}
}

var mallory = domain.Member{UserID: userID, Name: "Mallory"}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("/commands"))
	assert.True(t, IsCommand("  /dm @x hi"))
	assert.False(t, IsCommand("hello /commands"))
}

func TestExecute_RejectsNonStaff(t *testing.T) {
	f := newFixture(t)
	req := staffCmd("/exemptlist")
	req.SenderID = userID

	_, err := f.commands.Execute(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, f.platform.directs)
}

func TestExecute_RepliesPrivately(t *testing.T) {
	f := newFixture(t)

	reply, err := f.commands.Execute(context.Background(), staffCmd("/commands"))
	require.NoError(t, err)
	assert.Contains(t, reply, "/summarize [n]")
	assert.Equal(t, []string{reply}, f.platform.directsTo(staffID))
	assert.Empty(t, f.platform.texts)
}

func TestExecute_UnknownCommand(t *testing.T) {
	f := newFixture(t)

	reply, err := f.commands.Execute(context.Background(), staffCmd("/nope"))
	require.NoError(t, err)
	assert.Contains(t, reply, `Unknown command "nope"`)
}

func TestExecute_RemoveWarnings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.SetWarnings(ctx, userID, 2))

	reply, err := f.commands.Execute(ctx, staffCmd("/removewarnings @Mallory", mallory))
	require.NoError(t, err)
	assert.Contains(t, reply, "reset")

	n, err := f.store.GetWarnings(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestExecute_TargetByOpenID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.SetWarnings(ctx, userID, 1))

	reply, err := f.commands.Execute(ctx, staffCmd("/status "+userID))
	require.NoError(t, err)
	assert.Contains(t, reply, "Warnings: 1/3")
	assert.Contains(t, reply, "Jailed: false")
}

func TestExecute_MissingTarget(t *testing.T) {
	f := newFixture(t)

	reply, err := f.commands.Execute(context.Background(), staffCmd("/exempt someone"))
	require.NoError(t, err)
	assert.Equal(t, "Usage: /exempt @user", reply)
}

func TestExecute_Whitelist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply, err := f.commands.Execute(ctx, staffCmd("/whitelist_add spam filter"))
	require.NoError(t, err)
	assert.Contains(t, reply, `Added "spam filter"`)

	reply, err = f.commands.Execute(ctx, staffCmd("/whitelist_add spam filter"))
	require.NoError(t, err)
	assert.Contains(t, reply, "already whitelisted")

	reply, err = f.commands.Execute(ctx, staffCmd("/whitelist_list"))
	require.NoError(t, err)
	assert.Contains(t, reply, "- spam filter")

	reply, err = f.commands.Execute(ctx, staffCmd("/whitelist_remove spam filter"))
	require.NoError(t, err)
	assert.Contains(t, reply, "Removed")

	reply, err = f.commands.Execute(ctx, staffCmd("/whitelist_list"))
	require.NoError(t, err)
	assert.Equal(t, "The whitelist is empty.", reply)

	reply, err = f.commands.Execute(ctx, staffCmd("/whitelist_add"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "Usage:"))
}

func TestExecute_Exempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply, err := f.commands.Execute(ctx, staffCmd("/exempt @Mallory", mallory))
	require.NoError(t, err)
	assert.Contains(t, reply, "is now exempt")

	reply, err = f.commands.Execute(ctx, staffCmd("/exempt @Mallory", mallory))
	require.NoError(t, err)
	assert.Contains(t, reply, "already exempt")

	reply, err = f.commands.Execute(ctx, staffCmd("/exemptlist"))
	require.NoError(t, err)
	assert.Contains(t, reply, userID)

	reply, err = f.commands.Execute(ctx, staffCmd("/exemptremove @Mallory", mallory))
	require.NoError(t, err)
	assert.Contains(t, reply, "no longer exempt")

	reply, err = f.commands.Execute(ctx, staffCmd("/exemptlist"))
	require.NoError(t, err)
	assert.Equal(t, "No exempt users.", reply)
}

func TestExecute_Jailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.AddToSet(ctx, domain.SetJailed, userID))

	reply, err := f.commands.Execute(ctx, staffCmd("/jailed"))
	require.NoError(t, err)
	assert.Contains(t, reply, userID)
}

func TestExecute_DirectMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reply, err := f.commands.Execute(ctx, staffCmd("/dm @Mallory please read the rules", mallory))
	require.NoError(t, err)
	assert.Contains(t, reply, "Message sent")
	assert.Equal(t, []string{"please read the rules"}, f.platform.directsTo(userID))

	reply, err = f.commands.Execute(ctx, staffCmd("/dm @Mallory", mallory))
	require.NoError(t, err)
	assert.Equal(t, "Usage: /dm @user <message>", reply)
}

func TestExecute_Summarize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.platform.history = []domain.Message{
		{SenderName: "Alice", Content: "anyone tried the new spam filter?"},
		{SenderName: "Bob", Content: "yes, works well"},
	}

	reply, err := f.commands.Execute(ctx, staffCmd("/summarize 10"))
	require.NoError(t, err)
	assert.Equal(t, f.classifier.summary, reply)

	reply, err = f.commands.Execute(ctx, staffCmd("/summarize 500"))
	require.NoError(t, err)
	assert.Contains(t, reply, usecase.ErrSummaryTooLong.Error())

	reply, err = f.commands.Execute(ctx, staffCmd("/summarize lots"))
	require.NoError(t, err)
	assert.Equal(t, "Usage: /summarize [n]", reply)
}
