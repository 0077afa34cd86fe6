package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

// Mock implementations

type mockModerationRepo struct {
	mu       sync.Mutex
	warnings map[string]int
	sets     map[domain.UserSet]map[string]bool
	addErr   error
}

func newMockModerationRepo() *mockModerationRepo {
	return &mockModerationRepo{
		warnings: make(map[string]int),
		sets:     make(map[domain.UserSet]map[string]bool),
	}
}

func (m *mockModerationRepo) IncrementWarnings(ctx context.Context, userID string, threshold int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.warnings[userID] + 1
	if n >= threshold {
		m.warnings[userID] = 0
		return n, true, nil
	}
	m.warnings[userID] = n
	return n, false, nil
}

func (m *mockModerationRepo) GetWarnings(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings[userID], nil
}

func (m *mockModerationRepo) SetWarnings(ctx context.Context, userID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings[userID] = n
	return nil
}

func (m *mockModerationRepo) AddToSet(ctx context.Context, set domain.UserSet, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	if m.sets[set] == nil {
		m.sets[set] = make(map[string]bool)
	}
	m.sets[set][userID] = true
	return nil
}

func (m *mockModerationRepo) RemoveFromSet(ctx context.Context, set domain.UserSet, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[set], userID)
	return nil
}

func (m *mockModerationRepo) SetContains(ctx context.Context, set domain.UserSet, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets[set][userID], nil
}

func (m *mockModerationRepo) ListSet(ctx context.Context, set domain.UserSet) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.sets[set] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (m *mockModerationRepo) Close() error {
	return nil
}

type mockWhitelistRepo struct {
	phrases []string
	err     error
}

func (m *mockWhitelistRepo) ListPhrases(ctx context.Context) ([]string, error) {
	return m.phrases, m.err
}

func (m *mockWhitelistRepo) AddPhrase(ctx context.Context, phrase string) (bool, error) {
	for _, p := range m.phrases {
		if p == phrase {
			return false, nil
		}
	}
	m.phrases = append(m.phrases, phrase)
	return true, nil
}

func (m *mockWhitelistRepo) RemovePhrase(ctx context.Context, phrase string) (bool, error) {
	for i, p := range m.phrases {
		if p == phrase {
			m.phrases = append(m.phrases[:i], m.phrases[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type mockReviewRepo struct {
	mu        sync.Mutex
	byCase    map[string]*domain.PendingReview
	byUser    map[string]string
	decisions []*domain.ReviewDecisionRecord
}

func newMockReviewRepo() *mockReviewRepo {
	return &mockReviewRepo{
		byCase: make(map[string]*domain.PendingReview),
		byUser: make(map[string]string),
	}
}

func (m *mockReviewRepo) CreatePending(ctx context.Context, review *domain.PendingReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[review.UserID]; ok {
		return domain.ErrReviewExists
	}
	cp := *review
	m.byCase[review.CaseID] = &cp
	m.byUser[review.UserID] = review.CaseID
	return nil
}

func (m *mockReviewRepo) GetByUser(ctx context.Context, userID string) (*domain.PendingReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	caseID, ok := m.byUser[userID]
	if !ok {
		return nil, nil
	}
	cp := *m.byCase[caseID]
	return &cp, nil
}

func (m *mockReviewRepo) GetByCase(ctx context.Context, caseID string) (*domain.PendingReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byCase[caseID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockReviewRepo) DeletePending(ctx context.Context, caseID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byCase[caseID]
	if !ok {
		return false, nil
	}
	delete(m.byCase, caseID)
	delete(m.byUser, r.UserID)
	return true, nil
}

func (m *mockReviewRepo) ListPending(ctx context.Context) ([]*domain.PendingReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PendingReview
	for _, r := range m.byCase {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockReviewRepo) RecordDecision(ctx context.Context, rec *domain.ReviewDecisionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, rec)
	return nil
}

func (m *mockReviewRepo) ListDecisions(ctx context.Context, userID string, limit int) ([]*domain.ReviewDecisionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ReviewDecisionRecord
	for _, d := range m.decisions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockEvidenceRepo struct {
	mu      sync.Mutex
	entries map[string][]domain.EvidenceEntry
}

func newMockEvidenceRepo() *mockEvidenceRepo {
	return &mockEvidenceRepo{entries: make(map[string][]domain.EvidenceEntry)}
}

func (m *mockEvidenceRepo) Record(ctx context.Context, userID string, entry domain.EvidenceEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = domain.AppendEvidence(m.entries[userID], entry)
	return nil
}

func (m *mockEvidenceRepo) Get(ctx context.Context, userID string) ([]domain.EvidenceEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.EvidenceEntry(nil), m.entries[userID]...), nil
}

type mockClassifier struct {
	verdict  domain.Verdict
	err      error
	block    bool
	calls    int
	profiles []domain.Profile
	summary  string
	lastText string
}

func (m *mockClassifier) Classify(ctx context.Context, content string, profile domain.Profile) (domain.Verdict, error) {
	m.calls++
	m.profiles = append(m.profiles, profile)
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.verdict, m.err
}

func (m *mockClassifier) Summarize(ctx context.Context, transcript string) (string, error) {
	m.lastText = transcript
	return m.summary, m.err
}

type sentText struct {
	To   string
	Text string
}

type mockPlatform struct {
	mu sync.Mutex

	members  map[string]bool // user ids present in the community
	messages map[string]bool // review posts that still exist
	roles    map[string]bool // users holding the jail role

	deleted  []string
	directs  []sentText
	texts    []sentText
	replies  []sentText
	closed   []sentText
	banned   []string
	posted   []domain.ReviewCard
	history  []domain.Message
	nextCase int

	deleteErr   error
	directErr   error
	addRoleErr  error
	removeErr   error
	banErr      error
	memberErr   error
	postErr     error
	fetchErr    error
	closeErr    error
	historySeen int
	lookups     int
}

func newMockPlatform() *mockPlatform {
	return &mockPlatform{
		members:  make(map[string]bool),
		messages: make(map[string]bool),
		roles:    make(map[string]bool),
	}
}

func (m *mockPlatform) DeleteMessage(ctx context.Context, msgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, msgID)
	return nil
}

func (m *mockPlatform) SendDirect(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.directErr != nil {
		return m.directErr
	}
	m.directs = append(m.directs, sentText{To: userID, Text: text})
	return nil
}

func (m *mockPlatform) SendText(ctx context.Context, chatID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, sentText{To: chatID, Text: text})
	return nil
}

func (m *mockPlatform) AddRole(ctx context.Context, roleID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addRoleErr != nil {
		return m.addRoleErr
	}
	m.roles[userID] = true
	return nil
}

func (m *mockPlatform) RemoveRole(ctx context.Context, roleID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.roles, userID)
	return nil
}

func (m *mockPlatform) BanMember(ctx context.Context, chatID, userID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.banErr != nil {
		return m.banErr
	}
	m.banned = append(m.banned, userID)
	delete(m.members, userID)
	return nil
}

func (m *mockPlatform) GetMember(ctx context.Context, chatID, userID string) (*domain.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.memberErr != nil {
		return nil, m.memberErr
	}
	if !m.members[userID] {
		return nil, domain.ErrNotFound
	}
	return &domain.Member{UserID: userID, Name: "user-" + userID}, nil
}

func (m *mockPlatform) PostReview(ctx context.Context, chatID string, card domain.ReviewCard) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", m.postErr
	}
	m.nextCase++
	id := fmt.Sprintf("om_case_%d", m.nextCase)
	m.messages[id] = true
	m.posted = append(m.posted, card)
	return id, nil
}

func (m *mockPlatform) FetchMessage(ctx context.Context, msgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return m.fetchErr
	}
	if !m.messages[msgID] {
		return domain.ErrNotFound
	}
	return nil
}

func (m *mockPlatform) ReplyToMessage(ctx context.Context, msgID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, sentText{To: msgID, Text: text})
	return nil
}

func (m *mockPlatform) CloseReview(ctx context.Context, msgID, notice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closeErr != nil {
		return m.closeErr
	}
	m.closed = append(m.closed, sentText{To: msgID, Text: notice})
	return nil
}

func (m *mockPlatform) GetChatHistory(ctx context.Context, chatID string, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historySeen = limit
	if len(m.history) > limit {
		return m.history[len(m.history)-limit:], nil
	}
	return m.history, nil
}

func (m *mockPlatform) postCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posted)
}

var testGuild = domain.GuildContext{
	ChatID:       "oc_community",
	JailRoleID:   "jail_group",
	ReviewChatID: "oc_review",
	LogChatID:    "oc_log",
}

// moderationFixture wires the moderation usecases over in-memory fakes
type moderationFixture struct {
	modRepo    *mockModerationRepo
	reviewRepo *mockReviewRepo
	evRepo     *mockEvidenceRepo
	platform   *mockPlatform
	evidence   *EvidenceUsecase
	escalation *EscalationUsecase
	sanctions  *SanctionUsecase
	reviews    *ReviewUsecase
	rejoin     *RejoinUsecase
	staff      *StaffPolicy
}

func newModerationFixture() *moderationFixture {
	f := &moderationFixture{
		modRepo:    newMockModerationRepo(),
		reviewRepo: newMockReviewRepo(),
		evRepo:     newMockEvidenceRepo(),
		platform:   newMockPlatform(),
		staff:      NewStaffPolicy([]string{"ou_staff"}),
	}
	f.evidence = NewEvidenceUsecase(f.evRepo, nil)
	f.escalation = NewEscalationUsecase(f.modRepo)
	f.sanctions = NewSanctionUsecase(f.modRepo, f.platform, f.evidence, NoticeConfig{}, nil)
	f.reviews = NewReviewUsecase(f.reviewRepo, f.platform, f.sanctions, f.staff, NoticeConfig{}, nil)
	f.sanctions.SetReviewOpener(f.reviews)
	f.rejoin = NewRejoinUsecase(f.modRepo, f.platform, NoticeConfig{}, nil)
	return f
}
