package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/data"
	"github.com/DevRickLin/feishu-modbot/internal/infra/feishu"
	"github.com/DevRickLin/feishu-modbot/internal/service"
)

const (
	seenTTL      = 5 * time.Minute
	seenCap      = 8192
	nameCacheTTL = 10 * time.Minute
	nameCacheCap = 4096
	handleBudget = 2 * time.Minute
)

// FeishuClient is the part of the Feishu client the server drives
type FeishuClient interface {
	OnMessage(handler feishu.MessageHandler)
	OnJoin(handler feishu.JoinHandler)
	OnCardAction(handler feishu.CardActionHandler)
	Start() error
	Stop()
	GetChatName(ctx context.Context, chatID string) (string, error)
	GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error)
}

// FeishuServer routes Feishu events to the moderation and command services
type FeishuServer struct {
	client     FeishuClient
	moderation *service.ModerationService
	commands   *service.CommandService
	scheduler  *service.ReviewScheduler
	logger     *slog.Logger

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   *expirable.LRU[string, struct{}]

	names *expirable.LRU[string, string]
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(
	client FeishuClient,
	moderation *service.ModerationService,
	commands *service.CommandService,
	logger *slog.Logger,
) *FeishuServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeishuServer{
		client:     client,
		moderation: moderation,
		commands:   commands,
		logger:     logger.With("component", "server"),
		seenMsgs:   expirable.NewLRU[string, struct{}](seenCap, nil, seenTTL),
		names:      expirable.NewLRU[string, string](nameCacheCap, nil, nameCacheTTL),
	}
}

// SetScheduler attaches a review scheduler that runs while the server is up
func (s *FeishuServer) SetScheduler(scheduler *service.ReviewScheduler) {
	s.scheduler = scheduler
}

// Start registers the event handlers and connects, blocking until stopped
func (s *FeishuServer) Start() error {
	s.client.OnMessage(s.handleMessage)
	s.client.OnJoin(s.handleJoin)
	s.client.OnCardAction(s.handleCardAction)
	if s.scheduler != nil {
		s.scheduler.Start(context.Background())
	}
	return s.client.Start()
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.client.Stop()
}

// handleMessage handles Feishu messages
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	if msg.Sender == nil {
		return
	}
	logger := s.logger.With("chat", msg.ChatID, "msg", msg.MsgID)
	logger.Debug("received message", "type", msg.MsgType, "chat_type", msg.ChatType, "content", truncate(msg.Content, 50))

	// Message deduplication: check if already processed
	if !s.markMessageSeen(msg.MsgID) {
		logger.Debug("duplicate message ignored")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleBudget)
	defer cancel()

	senderID := msg.Sender.SenderID
	if service.IsCommand(msg.Content) && s.commands != nil {
		req := &service.CommandRequest{
			ChatID:   msg.ChatID,
			SenderID: senderID,
			Text:     msg.Content,
		}
		for _, m := range msg.Mentions {
			req.Mentions = append(req.Mentions, domain.Member{UserID: m.OpenID, Name: m.Name})
		}
		_, err := s.commands.Execute(ctx, req)
		switch {
		case err == nil:
			return
		case errors.Is(err, domain.ErrUnauthorized):
			// not staff, moderate it like any other message
		default:
			logger.Error("command reply failed", "err", err)
			return
		}
	}

	createdAt := time.Now()
	if msg.CreateTime > 0 {
		createdAt = time.UnixMilli(msg.CreateTime)
	}

	req := &service.MessageRequest{
		ChatID:     msg.ChatID,
		ChatName:   s.chatName(ctx, msg.ChatID),
		ChatType:   msg.ChatType,
		MsgID:      msg.MsgID,
		Content:    msg.Content,
		SenderID:   senderID,
		SenderName: s.memberName(ctx, msg.ChatID, senderID),
		CreateTime: createdAt,
	}

	out, err := s.moderation.HandleMessage(ctx, req)
	if err != nil {
		logger.Error("moderation failed", "user", senderID, "err", err)
		return
	}
	if out.Verdict == domain.VerdictDelete {
		logger.Info("message moderated", "user", senderID, "deleted", out.Deleted)
	}
}

func (s *FeishuServer) handleJoin(chatID string, userIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), handleBudget)
	defer cancel()
	s.moderation.HandleJoin(ctx, chatID, userIDs)
}

func (s *FeishuServer) handleCardAction(ctx context.Context, action *feishu.CardAction) *feishu.Toast {
	if action.Value["action"] != data.ReviewAction {
		return nil
	}
	fb := s.moderation.HandleReviewDecision(ctx, action.MessageID, action.Value["decision"],
		domain.Actor{UserID: action.OperatorID, Name: s.memberName(ctx, action.ChatID, action.OperatorID)})
	return &feishu.Toast{Type: fb.Level, Content: fb.Text}
}

// chatName resolves a chat's display name, falling back to its id
func (s *FeishuServer) chatName(ctx context.Context, chatID string) string {
	key := "chat/" + chatID
	if name, ok := s.names.Get(key); ok {
		return name
	}
	name, err := s.client.GetChatName(ctx, chatID)
	if err != nil || name == "" {
		if err != nil {
			s.logger.Debug("chat name lookup failed", "chat", chatID, "err", err)
		}
		return chatID
	}
	s.names.Add(key, name)
	return name
}

// memberName resolves a member's display name from the chat member list
func (s *FeishuServer) memberName(ctx context.Context, chatID, userID string) string {
	key := "member/" + chatID + "/" + userID
	if name, ok := s.names.Get(key); ok {
		return name
	}
	members, err := s.client.GetChatMembers(ctx, chatID)
	if err != nil {
		s.logger.Debug("member lookup failed", "chat", chatID, "err", err)
		return ""
	}
	var found string
	for _, m := range members {
		s.names.Add("member/"+chatID+"/"+m.MemberID, m.Name)
		if m.MemberID == userID {
			found = m.Name
		}
	}
	return found
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// markMessageSeen records a message id, returning false if it was already processed
func (s *FeishuServer) markMessageSeen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	if s.seenMsgs.Contains(msgID) {
		return false
	}
	s.seenMsgs.Add(msgID, struct{}{})
	return true
}
