package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is the HTTP client for the modbot admin API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new admin API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// UserState is the moderation state of a user
type UserState struct {
	UserID       string `json:"user_id"`
	WarningCount int    `json:"warning_count"`
	Jailed       bool   `json:"jailed"`
	Exempt       bool   `json:"exempt"`
}

// PendingReview is an open jail review
type PendingReview struct {
	CaseID   string `json:"case_id"`
	UserID   string `json:"user_id"`
	ChatID   string `json:"chat_id"`
	OpenedAt string `json:"opened_at"`
}

// Decision is a resolved jail review
type Decision struct {
	CaseID    string `json:"case_id"`
	UserID    string `json:"user_id"`
	Decision  string `json:"decision"`
	ActorID   string `json:"actor_id"`
	Outcome   string `json:"outcome"`
	DecidedAt string `json:"decided_at"`
}

// ReviewHistory is the open case and past decisions of a user
type ReviewHistory struct {
	Pending   *PendingReview `json:"pending"`
	Decisions []Decision     `json:"decisions"`
}

// ============ Whitelist ============

// ListWhitelist gets all whitelisted phrases
func (c *Client) ListWhitelist(ctx context.Context) ([]string, error) {
	var result struct {
		Phrases []string `json:"phrases"`
	}
	if err := c.get(ctx, "/api/whitelist", &result); err != nil {
		return nil, err
	}
	return result.Phrases, nil
}

// AddWhitelist adds a phrase, reporting whether it was new
func (c *Client) AddWhitelist(ctx context.Context, phrase string) (bool, error) {
	var result struct {
		Added bool `json:"added"`
	}
	err := c.post(ctx, "/api/whitelist", map[string]string{"phrase": phrase}, &result)
	return result.Added, err
}

// RemoveWhitelist removes a phrase, reporting whether it was present
func (c *Client) RemoveWhitelist(ctx context.Context, phrase string) (bool, error) {
	var result struct {
		Removed bool `json:"removed"`
	}
	err := c.delete(ctx, "/api/whitelist/"+url.PathEscape(phrase), &result)
	return result.Removed, err
}

// ============ Exempt ============

// ListExempt gets exempt user ids
func (c *Client) ListExempt(ctx context.Context) ([]string, error) {
	var result struct {
		Users []string `json:"users"`
	}
	if err := c.get(ctx, "/api/exempt", &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// AddExempt exempts a user, reporting whether it was new
func (c *Client) AddExempt(ctx context.Context, userID string) (bool, error) {
	var result struct {
		Added bool `json:"added"`
	}
	err := c.post(ctx, "/api/exempt", map[string]string{"user_id": userID}, &result)
	return result.Added, err
}

// RemoveExempt removes an exemption, reporting whether it was present
func (c *Client) RemoveExempt(ctx context.Context, userID string) (bool, error) {
	var result struct {
		Removed bool `json:"removed"`
	}
	err := c.delete(ctx, "/api/exempt/"+url.PathEscape(userID), &result)
	return result.Removed, err
}

// ============ Users ============

// ListJailed gets jailed user ids
func (c *Client) ListJailed(ctx context.Context) ([]string, error) {
	var result struct {
		Users []string `json:"users"`
	}
	if err := c.get(ctx, "/api/jailed", &result); err != nil {
		return nil, err
	}
	return result.Users, nil
}

// GetUserState gets the moderation state of a user
func (c *Client) GetUserState(ctx context.Context, userID string) (*UserState, error) {
	var state UserState
	if err := c.get(ctx, "/api/users/"+url.PathEscape(userID), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ResetWarnings sets a user's warning count to zero
func (c *Client) ResetWarnings(ctx context.Context, userID string) error {
	return c.delete(ctx, "/api/users/"+url.PathEscape(userID)+"/warnings", nil)
}

// ============ Reviews ============

// ListPendingReviews gets all open jail reviews
func (c *Client) ListPendingReviews(ctx context.Context) ([]PendingReview, error) {
	var result struct {
		Pending []PendingReview `json:"pending"`
	}
	if err := c.get(ctx, "/api/reviews", &result); err != nil {
		return nil, err
	}
	return result.Pending, nil
}

// GetReviewHistory gets the open case and recent decisions for a user
func (c *Client) GetReviewHistory(ctx context.Context, userID string, limit int) (*ReviewHistory, error) {
	path := "/api/reviews/" + url.PathEscape(userID)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var result ReviewHistory
	if err := c.get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ============ Staff Actions ============

// SendDM sends a private message as the bot
func (c *Client) SendDM(ctx context.Context, userID, text string) error {
	return c.post(ctx, "/api/dm", map[string]string{"user_id": userID, "text": text}, nil)
}

// Summarize summarizes the last count messages of a chat, the community chat when chatID is empty
func (c *Client) Summarize(ctx context.Context, chatID string, count int) (string, error) {
	var result struct {
		Summary string `json:"summary"`
	}
	body := map[string]interface{}{"chat_id": chatID, "count": count}
	if err := c.post(ctx, "/api/summarize", body, &result); err != nil {
		return "", err
	}
	return result.Summary, nil
}

// ============ HTTP Helpers ============

func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(jsonBody), result)
}

func (c *Client) delete(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP %s failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
