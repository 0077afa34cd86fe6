package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
	"github.com/DevRickLin/feishu-modbot/internal/data"
)

const (
	staffID = "ou_staff"
	userID  = "ou_user"
)

var testGuild = domain.GuildContext{
	ChatID:       "oc_community",
	JailRoleID:   "jail_group",
	ReviewChatID: "oc_review",
	LogChatID:    "oc_log",
}

type sent struct {
	To   string
	Text string
}

type fakePlatform struct {
	mu sync.Mutex

	members map[string]bool
	posts   map[string]bool
	roles   map[string]bool

	deleted []string
	directs []sent
	texts   []sent
	replies []sent
	closed  []sent
	banned  []string
	cards   []domain.ReviewCard
	history []domain.Message

	deleteErr error
	directErr error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members: make(map[string]bool),
		posts:   make(map[string]bool),
		roles:   make(map[string]bool),
	}
}

func (p *fakePlatform) DeleteMessage(ctx context.Context, msgID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deleted = append(p.deleted, msgID)
	return nil
}

func (p *fakePlatform) SendDirect(ctx context.Context, userID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.directErr != nil {
		return p.directErr
	}
	p.directs = append(p.directs, sent{userID, text})
	return nil
}

func (p *fakePlatform) SendText(ctx context.Context, chatID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, sent{chatID, text})
	return nil
}

func (p *fakePlatform) AddRole(ctx context.Context, roleID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[userID] = true
	return nil
}

func (p *fakePlatform) RemoveRole(ctx context.Context, roleID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.roles, userID)
	return nil
}

func (p *fakePlatform) BanMember(ctx context.Context, chatID, userID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banned = append(p.banned, userID)
	delete(p.members, userID)
	return nil
}

func (p *fakePlatform) GetMember(ctx context.Context, chatID, userID string) (*domain.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.members[userID] {
		return nil, domain.ErrNotFound
	}
	return &domain.Member{UserID: userID}, nil
}

func (p *fakePlatform) PostReview(ctx context.Context, chatID string, card domain.ReviewCard) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards = append(p.cards, card)
	id := fmt.Sprintf("om_case_%d", len(p.cards))
	p.posts[id] = true
	return id, nil
}

func (p *fakePlatform) FetchMessage(ctx context.Context, msgID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.posts[msgID] {
		return domain.ErrNotFound
	}
	return nil
}

func (p *fakePlatform) ReplyToMessage(ctx context.Context, msgID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, sent{msgID, text})
	return nil
}

func (p *fakePlatform) CloseReview(ctx context.Context, msgID, notice string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, sent{msgID, notice})
	return nil
}

func (p *fakePlatform) GetChatHistory(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) > limit {
		return p.history[len(p.history)-limit:], nil
	}
	return p.history, nil
}

func (p *fakePlatform) directsTo(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, d := range p.directs {
		if d.To == userID {
			out = append(out, d.Text)
		}
	}
	return out
}

// fakeClassifier flags any message containing "spam"
type fakeClassifier struct {
	mu       sync.Mutex
	profiles []domain.Profile
	summary  string
}

func (c *fakeClassifier) Classify(ctx context.Context, content string, profile domain.Profile) (domain.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = append(c.profiles, profile)
	if strings.Contains(content, "spam") {
		return domain.VerdictDelete, nil
	}
	return domain.VerdictSafe, nil
}

func (c *fakeClassifier) Summarize(ctx context.Context, transcript string) (string, error) {
	return c.summary, nil
}

type fixture struct {
	store      *data.Store
	platform   *fakePlatform
	classifier *fakeClassifier
	moderation *ModerationService
	commands   *CommandService
	reviews    *usecase.ReviewUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := data.NewStore(filepath.Join(t.TempDir(), "modbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	platform := newFakePlatform()
	classifier := &fakeClassifier{summary: "people talked about spam filters"}

	svcs := New(Deps{
		Guild:             testGuild,
		StaffUserIDs:      []string{staffID},
		IgnoredChatIDs:    []string{"oc_offtopic"},
		ClassifierTimeout: time.Second,
		Moderation:        store,
		Whitelist:         store,
		Review:            store,
		Evidence:          data.NewMemEvidenceStore(16, time.Hour),
		Classifier:        classifier,
		Platform:          platform,
	}, nil)

	return &fixture{
		store:      store,
		platform:   platform,
		classifier: classifier,
		moderation: svcs.Moderation,
		commands:   svcs.Commands,
		reviews:    svcs.Reviews,
	}
}

func msg(id, sender, content string) *MessageRequest {
	return &MessageRequest{
		ChatID:     testGuild.ChatID,
		ChatName:   "general",
		ChatType:   "group",
		MsgID:      id,
		Content:    content,
		SenderID:   sender,
		SenderName: "Mallory",
		CreateTime: time.Now(),
	}
}
