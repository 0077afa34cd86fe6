package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/feishu-modbot/internal/api"
	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/data"
	"github.com/DevRickLin/feishu-modbot/internal/service"
)

type dmRecorder struct {
	repo.PlatformRepo
	sent map[string]string
}

func (d *dmRecorder) SendDirect(ctx context.Context, userID, text string) error {
	d.sent[userID] = text
	return nil
}

// newAdminAPI starts the admin API on a temporary store
func newAdminAPI(t *testing.T) (*httptest.Server, *data.Store, *dmRecorder) {
	t.Helper()
	store, err := data.NewStore(filepath.Join(t.TempDir(), "modbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	platform := &dmRecorder{sent: make(map[string]string)}
	svcs := service.New(service.Deps{
		Guild:        domain.GuildContext{ChatID: "oc_community"},
		StaffUserIDs: []string{"ou_staff"},
		Moderation:   store,
		Whitelist:    store,
		Review:       store,
		Evidence:     data.NewMemEvidenceStore(8, time.Hour),
		Platform:     platform,
	}, nil)

	srv := httptest.NewServer(api.NewServer(svcs.Staff, svcs.Whitelist, svcs.Reviews, "oc_community", 0, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, store, platform
}

// connect runs the MCP server in memory and returns a client session
func connect(t *testing.T, baseURL string) *sdk.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(NewHandler(NewClient(baseURL)), "test")
	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "test"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *sdk.ClientSession, name string, args map[string]any, out any) *sdk.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		b, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, out))
	}
	return res
}

func TestListTools(t *testing.T) {
	srv, _, _ := newAdminAPI(t)
	cs := connect(t, srv.URL)

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "modbot_add_whitelist")
	assert.Contains(t, names, "modbot_list_pending_reviews")
	assert.Contains(t, names, "modbot_summarize")
	assert.Len(t, names, 13)
}

func TestWhitelistTools(t *testing.T) {
	srv, store, _ := newAdminAPI(t)
	cs := connect(t, srv.URL)

	var change ChangeOutput
	call(t, cs, "modbot_add_whitelist", map[string]any{"phrase": "spam filter"}, &change)
	assert.True(t, change.Changed)

	phrases, err := store.ListPhrases(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"spam filter"}, phrases)

	var list ListOutput
	call(t, cs, "modbot_list_whitelist", map[string]any{}, &list)
	assert.Equal(t, 1, list.Count)

	call(t, cs, "modbot_remove_whitelist", map[string]any{"phrase": "spam filter"}, &change)
	assert.True(t, change.Changed)
	call(t, cs, "modbot_remove_whitelist", map[string]any{"phrase": "spam filter"}, &change)
	assert.False(t, change.Changed)
}

func TestUserTools(t *testing.T) {
	srv, store, _ := newAdminAPI(t)
	cs := connect(t, srv.URL)
	ctx := context.Background()
	require.NoError(t, store.SetWarnings(ctx, "ou_user", 2))

	var state UserState
	call(t, cs, "modbot_user_state", map[string]any{"user_id": "ou_user"}, &state)
	assert.Equal(t, 2, state.WarningCount)

	call(t, cs, "modbot_reset_warnings", map[string]any{"user_id": "ou_user"}, nil)
	n, err := store.GetWarnings(ctx, "ou_user")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	var change ChangeOutput
	call(t, cs, "modbot_add_exempt", map[string]any{"user_id": "ou_user"}, &change)
	assert.True(t, change.Changed)

	var list ListOutput
	call(t, cs, "modbot_list_exempt", map[string]any{}, &list)
	assert.Equal(t, []string{"ou_user"}, list.Items)

	call(t, cs, "modbot_list_jailed", map[string]any{}, &list)
	assert.Empty(t, list.Items)
}

func TestReviewTools(t *testing.T) {
	srv, store, _ := newAdminAPI(t)
	cs := connect(t, srv.URL)
	require.NoError(t, store.CreatePending(context.Background(), &domain.PendingReview{
		CaseID: "om_case", UserID: "ou_user", ChatID: "oc_review", OpenedAt: time.Now(),
	}))

	var pending PendingOutput
	call(t, cs, "modbot_list_pending_reviews", map[string]any{}, &pending)
	require.Len(t, pending.Pending, 1)
	assert.Equal(t, "ou_user", pending.Pending[0].UserID)

	var history ReviewHistory
	call(t, cs, "modbot_review_history", map[string]any{"user_id": "ou_user"}, &history)
	require.NotNil(t, history.Pending)
	assert.Equal(t, "om_case", history.Pending.CaseID)
}

func TestSendDMTool(t *testing.T) {
	srv, _, platform := newAdminAPI(t)
	cs := connect(t, srv.URL)

	call(t, cs, "modbot_send_dm", map[string]any{"user_id": "ou_user", "text": "hello"}, nil)
	assert.Equal(t, "hello", platform.sent["ou_user"])

	res := call(t, cs, "modbot_send_dm", map[string]any{"user_id": "ou_user", "text": ""}, nil)
	assert.True(t, res.IsError)
}

func TestSummarizeWithoutClassifier(t *testing.T) {
	srv, _, _ := newAdminAPI(t)
	cs := connect(t, srv.URL)

	res := call(t, cs, "modbot_summarize", map[string]any{"count": 5}, nil)
	assert.True(t, res.IsError)
}
