package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler implements the MCP tools on top of the admin API client
type Handler struct {
	client *Client
}

// NewHandler creates a new MCP handler
func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

// ============ Inputs and Outputs ============

// NoInput is the input of tools without arguments
type NoInput struct{}

// PhraseInput names a whitelist phrase
type PhraseInput struct {
	Phrase string `json:"phrase" jsonschema:"the exact phrase, matched case-sensitively as a substring"`
}

// UserInput names a user
type UserInput struct {
	UserID string `json:"user_id" jsonschema:"the user's open_id (ou_...)"`
}

// HistoryInput selects a user's review history
type HistoryInput struct {
	UserID string `json:"user_id" jsonschema:"the user's open_id (ou_...)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of decisions to return (default 20)"`
}

// DMInput is a private message to send
type DMInput struct {
	UserID string `json:"user_id" jsonschema:"the recipient's open_id (ou_...)"`
	Text   string `json:"text" jsonschema:"the message text"`
}

// SummarizeInput selects the messages to summarize
type SummarizeInput struct {
	ChatID string `json:"chat_id,omitempty" jsonschema:"chat to summarize, the community chat if omitted"`
	Count  int    `json:"count,omitempty" jsonschema:"number of recent messages, 1 to 100 (default 20)"`
}

// ListOutput is a list of phrases or user ids
type ListOutput struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

// ChangeOutput reports whether a set changed
type ChangeOutput struct {
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}

// PendingOutput lists open reviews
type PendingOutput struct {
	Pending []PendingReview `json:"pending"`
}

// SummaryOutput is a chat summary
type SummaryOutput struct {
	Summary string `json:"summary"`
}

func listOutput(items []string) ListOutput {
	if items == nil {
		items = []string{}
	}
	return ListOutput{Items: items, Count: len(items)}
}

// ============ Whitelist ============

func (h *Handler) listWhitelist(ctx context.Context, _ *sdk.CallToolRequest, _ NoInput) (*sdk.CallToolResult, ListOutput, error) {
	phrases, err := h.client.ListWhitelist(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, listOutput(phrases), nil
}

func (h *Handler) addWhitelist(ctx context.Context, _ *sdk.CallToolRequest, in PhraseInput) (*sdk.CallToolResult, ChangeOutput, error) {
	if in.Phrase == "" {
		return nil, ChangeOutput{}, fmt.Errorf("phrase is required")
	}
	added, err := h.client.AddWhitelist(ctx, in.Phrase)
	if err != nil {
		return nil, ChangeOutput{}, err
	}
	if !added {
		return nil, ChangeOutput{Message: fmt.Sprintf("%q is already whitelisted", in.Phrase)}, nil
	}
	return nil, ChangeOutput{Changed: true, Message: fmt.Sprintf("%q added to whitelist", in.Phrase)}, nil
}

func (h *Handler) removeWhitelist(ctx context.Context, _ *sdk.CallToolRequest, in PhraseInput) (*sdk.CallToolResult, ChangeOutput, error) {
	if in.Phrase == "" {
		return nil, ChangeOutput{}, fmt.Errorf("phrase is required")
	}
	removed, err := h.client.RemoveWhitelist(ctx, in.Phrase)
	if err != nil {
		return nil, ChangeOutput{}, err
	}
	if !removed {
		return nil, ChangeOutput{Message: fmt.Sprintf("%q is not whitelisted", in.Phrase)}, nil
	}
	return nil, ChangeOutput{Changed: true, Message: fmt.Sprintf("%q removed from whitelist", in.Phrase)}, nil
}

// ============ Exempt ============

func (h *Handler) listExempt(ctx context.Context, _ *sdk.CallToolRequest, _ NoInput) (*sdk.CallToolResult, ListOutput, error) {
	ids, err := h.client.ListExempt(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, listOutput(ids), nil
}

func (h *Handler) addExempt(ctx context.Context, _ *sdk.CallToolRequest, in UserInput) (*sdk.CallToolResult, ChangeOutput, error) {
	if in.UserID == "" {
		return nil, ChangeOutput{}, fmt.Errorf("user_id is required")
	}
	added, err := h.client.AddExempt(ctx, in.UserID)
	if err != nil {
		return nil, ChangeOutput{}, err
	}
	if !added {
		return nil, ChangeOutput{Message: in.UserID + " is already exempt"}, nil
	}
	return nil, ChangeOutput{Changed: true, Message: in.UserID + " is now exempt"}, nil
}

func (h *Handler) removeExempt(ctx context.Context, _ *sdk.CallToolRequest, in UserInput) (*sdk.CallToolResult, ChangeOutput, error) {
	if in.UserID == "" {
		return nil, ChangeOutput{}, fmt.Errorf("user_id is required")
	}
	removed, err := h.client.RemoveExempt(ctx, in.UserID)
	if err != nil {
		return nil, ChangeOutput{}, err
	}
	if !removed {
		return nil, ChangeOutput{Message: in.UserID + " is not exempt"}, nil
	}
	return nil, ChangeOutput{Changed: true, Message: in.UserID + " is no longer exempt"}, nil
}

// ============ Users ============

func (h *Handler) listJailed(ctx context.Context, _ *sdk.CallToolRequest, _ NoInput) (*sdk.CallToolResult, ListOutput, error) {
	ids, err := h.client.ListJailed(ctx)
	if err != nil {
		return nil, ListOutput{}, err
	}
	return nil, listOutput(ids), nil
}

func (h *Handler) userState(ctx context.Context, _ *sdk.CallToolRequest, in UserInput) (*sdk.CallToolResult, UserState, error) {
	if in.UserID == "" {
		return nil, UserState{}, fmt.Errorf("user_id is required")
	}
	state, err := h.client.GetUserState(ctx, in.UserID)
	if err != nil {
		return nil, UserState{}, err
	}
	return nil, *state, nil
}

func (h *Handler) resetWarnings(ctx context.Context, _ *sdk.CallToolRequest, in UserInput) (*sdk.CallToolResult, ChangeOutput, error) {
	if in.UserID == "" {
		return nil, ChangeOutput{}, fmt.Errorf("user_id is required")
	}
	if err := h.client.ResetWarnings(ctx, in.UserID); err != nil {
		return nil, ChangeOutput{}, err
	}
	return nil, ChangeOutput{Changed: true, Message: "warnings reset for " + in.UserID}, nil
}

// ============ Reviews ============

func (h *Handler) listPendingReviews(ctx context.Context, _ *sdk.CallToolRequest, _ NoInput) (*sdk.CallToolResult, PendingOutput, error) {
	pending, err := h.client.ListPendingReviews(ctx)
	if err != nil {
		return nil, PendingOutput{}, err
	}
	if pending == nil {
		pending = []PendingReview{}
	}
	return nil, PendingOutput{Pending: pending}, nil
}

func (h *Handler) reviewHistory(ctx context.Context, _ *sdk.CallToolRequest, in HistoryInput) (*sdk.CallToolResult, ReviewHistory, error) {
	if in.UserID == "" {
		return nil, ReviewHistory{}, fmt.Errorf("user_id is required")
	}
	history, err := h.client.GetReviewHistory(ctx, in.UserID, in.Limit)
	if err != nil {
		return nil, ReviewHistory{}, err
	}
	if history.Decisions == nil {
		history.Decisions = []Decision{}
	}
	return nil, *history, nil
}

// ============ Staff Actions ============

func (h *Handler) sendDM(ctx context.Context, _ *sdk.CallToolRequest, in DMInput) (*sdk.CallToolResult, ChangeOutput, error) {
	if in.UserID == "" || in.Text == "" {
		return nil, ChangeOutput{}, fmt.Errorf("user_id and text are required")
	}
	if err := h.client.SendDM(ctx, in.UserID, in.Text); err != nil {
		return nil, ChangeOutput{}, err
	}
	return nil, ChangeOutput{Changed: true, Message: "message sent to " + in.UserID}, nil
}

func (h *Handler) summarize(ctx context.Context, _ *sdk.CallToolRequest, in SummarizeInput) (*sdk.CallToolResult, SummaryOutput, error) {
	summary, err := h.client.Summarize(ctx, in.ChatID, in.Count)
	if err != nil {
		return nil, SummaryOutput{}, err
	}
	return nil, SummaryOutput{Summary: summary}, nil
}
