package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher/callback"
	larkcontact "github.com/larksuite/oapi-sdk-go/v3/service/contact/v3"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received Feishu message
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string            // text, post
	ChatType   string            // p2p (private), group
	Content    string            // Text content (extracted from all message types)
	Sender     *Sender           // Message sender info
	Mentions   []MentionedUser   // Mentioned users in order of appearance
	MentionMap map[string]string // Map from mention key (@_user_1) to real name
	CreateTime int64             // Message creation time (milliseconds Unix timestamp from Feishu)
}

// MentionedUser is a user @-mentioned in a message
type MentionedUser struct {
	OpenID string
	Name   string
}

// Sender represents the message sender
type Sender struct {
	SenderID   string // open_id
	SenderType string // user, app
	TenantKey  string
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID   string `json:"member_id"`
	MemberType string `json:"member_type"`
	Name       string `json:"name"`
}

// HistoryMessage represents a message from chat history
type HistoryMessage struct {
	MsgID      string `json:"message_id"`
	MsgType    string `json:"msg_type"`
	Content    string `json:"content"`
	CreateTime string `json:"create_time"`
	Sender     *Sender
}

// CardAction is a button click on an interactive card
type CardAction struct {
	OperatorID string            // open_id of the clicking user
	MessageID  string            // the card message
	ChatID     string            // chat the card lives in
	Value      map[string]string // button value
}

// Toast is the transient feedback shown to the clicking user
type Toast struct {
	Type    string // success, info, warning, error
	Content string
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// JoinHandler is the callback for users added to a chat
type JoinHandler func(chatID string, userIDs []string)

// CardActionHandler is the callback for card button clicks. It runs synchronously, the toast is its reply.
type CardActionHandler func(ctx context.Context, action *CardAction) *Toast

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	onJoin    JoinHandler
	onCard    CardActionHandler
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		logger:    logger.With("component", "feishu"),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnJoin sets the member-added handler
func (c *Client) OnJoin(handler JoinHandler) {
	c.onJoin = handler
}

// OnCardAction sets the card button handler
func (c *Client) OnCardAction(handler CardActionHandler) {
	c.onCard = handler
}

// Start connects to Feishu via WebSocket and starts listening for events
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	// Note: must return quickly so the SDK can ACK, otherwise Feishu retries on timeout
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		}).
		OnP2ChatMemberUserAddedV1(func(ctx context.Context, event *larkim.P2ChatMemberUserAddedV1) error {
			go c.handleJoin(event)
			return nil
		}).
		OnP2CardActionTrigger(func(ctx context.Context, event *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
			return c.handleCardAction(ctx, event), nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("starting websocket connection")

	// Start WebSocket (blocking)
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// handleMessage processes incoming Feishu messages
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	if event.Event == nil || event.Event.Message == nil {
		return
	}
	rawMsg := event.Event.Message

	// Filter out messages sent by apps, including this bot
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}

	msg := &Message{
		ChatID:  strValue(rawMsg.ChatId),
		MsgID:   strValue(rawMsg.MessageId),
		MsgType: strValue(rawMsg.MessageType),
	}

	// Parse create time (milliseconds Unix timestamp)
	if rawMsg.CreateTime != nil {
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			msg.CreateTime = ts
		}
	}

	msg.ChatType = strValue(rawMsg.ChatType)

	// Parse sender info
	if event.Event.Sender != nil {
		msg.Sender = &Sender{
			SenderType: strValue(event.Event.Sender.SenderType),
			TenantKey:  strValue(event.Event.Sender.TenantKey),
		}
		if event.Event.Sender.SenderId != nil {
			msg.Sender.SenderID = strValue(event.Event.Sender.SenderId.OpenId)
		}
	}

	// Build a map from mention key (@_user_1) to real name
	msg.MentionMap = make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention.Id != nil && mention.Id.OpenId != nil {
			msg.Mentions = append(msg.Mentions, MentionedUser{
				OpenID: *mention.Id.OpenId,
				Name:   strValue(mention.Name),
			})
		}
		if mention.Key != nil && mention.Name != nil {
			msg.MentionMap[*mention.Key] = *mention.Name
		}
	}

	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(strValue(rawMsg.Content), msg.MentionMap)
	case "post":
		msg.Content = parsePostContent(strValue(rawMsg.Content), msg.MentionMap)
	default:
		// Only text is moderated
		c.logger.Debug("ignoring message type", "type", msg.MsgType, "chat", msg.ChatID)
		return
	}

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// handleJoin processes users added to a chat
func (c *Client) handleJoin(event *larkim.P2ChatMemberUserAddedV1) {
	if event.Event == nil {
		return
	}
	chatID := strValue(event.Event.ChatId)

	var userIDs []string
	for _, u := range event.Event.Users {
		if u != nil && u.UserId != nil && u.UserId.OpenId != nil {
			userIDs = append(userIDs, *u.UserId.OpenId)
		}
	}
	if len(userIDs) == 0 {
		return
	}

	if c.onJoin != nil {
		c.onJoin(chatID, userIDs)
	}
}

// handleCardAction processes a card button click
func (c *Client) handleCardAction(ctx context.Context, event *callback.CardActionTriggerEvent) *callback.CardActionTriggerResponse {
	if event == nil || event.Event == nil || c.onCard == nil {
		return nil
	}

	action := &CardAction{Value: make(map[string]string)}
	if event.Event.Operator != nil {
		action.OperatorID = event.Event.Operator.OpenID
	}
	if event.Event.Context != nil {
		action.MessageID = event.Event.Context.OpenMessageID
		action.ChatID = event.Event.Context.OpenChatID
	}
	if event.Event.Action != nil {
		for k, v := range event.Event.Action.Value {
			if s, ok := v.(string); ok {
				action.Value[k] = s
			}
		}
	}

	toast := c.onCard(ctx, action)
	if toast == nil {
		return nil
	}
	return &callback.CardActionTriggerResponse{
		Toast: &callback.Toast{Type: toast.Type, Content: toast.Content},
	}
}

// parseTextContent extracts text from a text message
// It also replaces mention placeholders (@_user_1) with real names
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent extracts text from a rich text message
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"` // for "at" tags
		} `json:"content"`
	}

	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var textParts []string
	if parsed.Title != "" {
		textParts = append(textParts, parsed.Title)
	}

	for _, line := range parsed.Content {
		var lineParts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text", "a":
				if elem.Text != "" {
					lineParts = append(lineParts, elem.Text)
				}
			case "at":
				if elem.UserID != "" {
					if name, ok := mentionMap[elem.UserID]; ok {
						lineParts = append(lineParts, "@"+name)
					} else {
						lineParts = append(lineParts, "@"+elem.UserID)
					}
				}
			}
		}
		if len(lineParts) > 0 {
			textParts = append(textParts, strings.Join(lineParts, ""))
		}
	}

	return replaceMentions(strings.Join(textParts, "\n"), mentionMap)
}

// replaceMentions replaces mention placeholders (@_user_1, @_user_2, etc.) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	if len(mentionMap) == 0 {
		return text
	}
	result := text
	for key, name := range mentionMap {
		result = strings.ReplaceAll(result, key, "@"+name)
	}
	return result
}

func textContent(text string) string {
	b, _ := json.Marshal(map[string]string{"text": text})
	return string(b)
}

// SendText sends a text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	return c.create(ctx, larkim.ReceiveIdTypeChatId, chatID, larkim.MsgTypeText, textContent(text))
}

// SendDirect sends a private text message to a user by open_id
func (c *Client) SendDirect(ctx context.Context, openID, text string) error {
	return c.create(ctx, larkim.ReceiveIdTypeOpenId, openID, larkim.MsgTypeText, textContent(text))
}

// SendCard posts an interactive card and returns its message id
func (c *Client) SendCard(ctx context.Context, chatID, card string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeInteractive).
			Content(card).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send card failed: %w", err)
	}
	if !resp.Success() {
		return "", newAPIError("send card", resp.Code, resp.Msg)
	}
	if resp.Data == nil || resp.Data.MessageId == nil {
		return "", fmt.Errorf("send card: no message id returned")
	}
	return *resp.Data.MessageId, nil
}

func (c *Client) create(ctx context.Context, idType, receiveID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(idType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return newAPIError("send message", resp.Code, resp.Msg)
	}
	return nil
}

// ReplyText posts a threaded text reply to a message
func (c *Client) ReplyText(ctx context.Context, messageID, text string) error {
	req := larkim.NewReplyMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(textContent(text)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Reply(ctx, req)
	if err != nil {
		return fmt.Errorf("reply failed: %w", err)
	}
	if !resp.Success() {
		return newAPIError("reply", resp.Code, resp.Msg)
	}
	return nil
}

// UpdateCard replaces the content of a previously sent card
func (c *Client) UpdateCard(ctx context.Context, messageID, card string) error {
	req := larkim.NewPatchMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewPatchMessageReqBodyBuilder().
			Content(card).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Patch(ctx, req)
	if err != nil {
		return fmt.Errorf("update card failed: %w", err)
	}
	if !resp.Success() {
		return newAPIError("update card", resp.Code, resp.Msg)
	}
	return nil
}

// DeleteMessage recalls a message
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	req := larkim.NewDeleteMessageReqBuilder().
		MessageId(messageID).
		Build()

	resp, err := c.larkCli.Im.Message.Delete(ctx, req)
	if err != nil {
		return fmt.Errorf("delete message failed: %w", err)
	}
	if !resp.Success() {
		return newAPIError("delete message", resp.Code, resp.Msg)
	}
	return nil
}

// MessageExists reports whether a message can still be fetched and is not recalled
func (c *Client) MessageExists(ctx context.Context, messageID string) (bool, error) {
	req := larkim.NewGetMessageReqBuilder().
		MessageId(messageID).
		Build()

	resp, err := c.larkCli.Im.Message.Get(ctx, req)
	if err != nil {
		return false, fmt.Errorf("get message failed: %w", err)
	}
	if !resp.Success() {
		apiErr := newAPIError("get message", resp.Code, resp.Msg)
		if apiErr.NotFound() {
			return false, nil
		}
		return false, apiErr
	}
	if resp.Data == nil || len(resp.Data.Items) == 0 {
		return false, nil
	}
	item := resp.Data.Items[0]
	if item.Deleted != nil && *item.Deleted {
		return false, nil
	}
	return true, nil
}

// RemoveChatMember removes a user from a chat
func (c *Client) RemoveChatMember(ctx context.Context, chatID, openID string) error {
	req := larkim.NewDeleteChatMembersReqBuilder().
		ChatId(chatID).
		MemberIdType("open_id").
		Body(larkim.NewDeleteChatMembersReqBodyBuilder().
			IdList([]string{openID}).
			Build()).
		Build()

	resp, err := c.larkCli.Im.ChatMembers.Delete(ctx, req)
	if err != nil {
		return fmt.Errorf("remove chat member failed: %w", err)
	}
	if !resp.Success() {
		return newAPIError("remove chat member", resp.Code, resp.Msg)
	}
	if resp.Data != nil && len(resp.Data.InvalidIdList) > 0 {
		return &APIError{Op: "remove chat member", Code: CodeMemberNotFound, Msg: "user is not a member"}
	}
	return nil
}

// AddGroupMember adds a user to a contact user group
func (c *Client) AddGroupMember(ctx context.Context, groupID, openID string) error {
	req := larkcontact.NewAddGroupMemberReqBuilder().
		GroupId(groupID).
		Body(larkcontact.NewAddGroupMemberReqBodyBuilder().
			MemberType("user").
			MemberIdType("open_id").
			MemberId(openID).
			Build()).
		Build()

	resp, err := c.larkCli.Contact.GroupMember.Add(ctx, req)
	if err != nil {
		return fmt.Errorf("add group member failed: %w", err)
	}
	if !resp.Success() {
		return newAPIError("add group member", resp.Code, resp.Msg)
	}
	return nil
}

// RemoveGroupMember removes a user from a contact user group
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, openID string) error {
	req := larkcontact.NewRemoveGroupMemberReqBuilder().
		GroupId(groupID).
		Body(larkcontact.NewRemoveGroupMemberReqBodyBuilder().
			MemberType("user").
			MemberIdType("open_id").
			MemberId(openID).
			Build()).
		Build()

	resp, err := c.larkCli.Contact.GroupMember.Remove(ctx, req)
	if err != nil {
		return fmt.Errorf("remove group member failed: %w", err)
	}
	if !resp.Success() {
		return newAPIError("remove group member", resp.Code, resp.Msg)
	}
	return nil
}

// GetChatHistory retrieves recent messages from a chat, oldest first.
// Pages through the history until limit messages are collected.
func (c *Client) GetChatHistory(ctx context.Context, chatID string, limit int) ([]*HistoryMessage, error) {
	if limit <= 0 {
		limit = 20
	}

	var messages []*HistoryMessage
	var pageToken string
	for len(messages) < limit {
		pageSize := limit - len(messages)
		if pageSize > 50 {
			pageSize = 50
		}

		// Descending order returns the latest messages first
		reqBuilder := larkim.NewListMessageReqBuilder().
			ContainerIdType("chat").
			ContainerId(chatID).
			SortType("ByCreateTimeDesc").
			PageSize(pageSize)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Message.List(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat history failed: %w", err)
		}
		if !resp.Success() {
			return nil, newAPIError("get chat history", resp.Code, resp.Msg)
		}

		for _, item := range resp.Data.Items {
			messages = append(messages, toHistoryMessage(item))
		}

		if resp.Data.HasMore == nil || !*resp.Data.HasMore || resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	// Reverse to chronological order (oldest first, newest last)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func toHistoryMessage(item *larkim.Message) *HistoryMessage {
	msg := &HistoryMessage{
		MsgID:      strValue(item.MessageId),
		MsgType:    strValue(item.MsgType),
		CreateTime: strValue(item.CreateTime),
	}

	mentionMap := make(map[string]string)
	for _, mention := range item.Mentions {
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	if item.Body != nil && item.Body.Content != nil {
		rawContent := *item.Body.Content
		switch msg.MsgType {
		case "text":
			msg.Content = parseTextContent(rawContent, mentionMap)
		case "post":
			msg.Content = parsePostContent(rawContent, mentionMap)
		}
	}

	if item.Sender != nil {
		msg.Sender = &Sender{
			SenderID:   strValue(item.Sender.Id),
			SenderType: strValue(item.Sender.SenderType),
			TenantKey:  strValue(item.Sender.TenantKey),
		}
	}
	return msg
}

// GetChatMembers retrieves members of a chat (group)
// Uses pagination to get all members
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)

		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, newAPIError("get chat members", resp.Code, resp.Msg)
		}

		for _, item := range resp.Data.Items {
			members = append(members, &ChatMember{
				MemberID:   strValue(item.MemberId),
				MemberType: strValue(item.MemberIdType),
				Name:       strValue(item.Name),
			})
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	return members, nil
}

// GetChatName returns the display name of a chat
func (c *Client) GetChatName(ctx context.Context, chatID string) (string, error) {
	req := larkim.NewGetChatReqBuilder().ChatId(chatID).Build()
	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get chat failed: %w", err)
	}
	if !resp.Success() {
		return "", newAPIError("get chat", resp.Code, resp.Msg)
	}
	if resp.Data == nil {
		return "", nil
	}
	return strValue(resp.Data.Name), nil
}

// GetChatMember looks up one member of a chat, nil if the user is not in it
func (c *Client) GetChatMember(ctx context.Context, chatID, openID string) (*ChatMember, error) {
	members, err := c.GetChatMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.MemberID == openID {
			return m, nil
		}
	}
	return nil, nil
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
