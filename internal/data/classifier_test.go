package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/infra/openai"
)

type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
}

func (p *promptRecorder) add(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, s)
}

func (p *promptRecorder) get() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// fakeCompletions serves /chat/completions with a fixed reply and records the system prompt
func fakeCompletions(t *testing.T, reply string, delay time.Duration, seen *promptRecorder) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 && seen != nil {
			seen.add(req.Messages[0].Content)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-3.5-turbo",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
}

var testPrompts = ClassifierPrompts{Strict: "strict-prompt", Lenient: "lenient-prompt", Summary: "summary-prompt"}

func TestClassifierRepo_Classify(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		profile domain.Profile
		want    domain.Verdict
		wantErr error
		prompt  string
	}{
		{name: "delete", reply: "DELETE", profile: domain.ProfileStrict, want: domain.VerdictDelete, prompt: "strict-prompt"},
		{name: "safe lowercase with whitespace", reply: "  safe\n", profile: domain.ProfileLenient, want: domain.VerdictSafe, prompt: "lenient-prompt"},
		{name: "malformed", reply: "I think this is fine", profile: domain.ProfileStrict, wantErr: domain.ErrMalformedVerdict, prompt: "strict-prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := &promptRecorder{}
			srv := fakeCompletions(t, tt.reply, 0, seen)
			defer srv.Close()

			r := NewClassifierRepo(openai.NewClient("test", srv.URL, ""), testPrompts)
			got, err := r.Classify(context.Background(), "hello", tt.profile)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, []string{tt.prompt}, seen.get())
		})
	}
}

func TestClassifierRepo_Timeout(t *testing.T) {
	srv := fakeCompletions(t, "DELETE", time.Second, nil)
	defer srv.Close()

	r := NewClassifierRepo(openai.NewClient("test", srv.URL, ""), testPrompts)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Classify(ctx, "hello", domain.ProfileStrict)
	assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestClassifierRepo_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewClassifierRepo(openai.NewClient("test", srv.URL, ""), testPrompts)
	_, err := r.Classify(context.Background(), "hello", domain.ProfileStrict)
	assert.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestClassifierRepo_Summarize(t *testing.T) {
	seen := &promptRecorder{}
	srv := fakeCompletions(t, " A short chat about lunch. ", 0, seen)
	defer srv.Close()

	r := NewClassifierRepo(openai.NewClient("test", srv.URL, ""), testPrompts)
	got, err := r.Summarize(context.Background(), "alice: lunch?\nbob: sure")
	require.NoError(t, err)
	assert.Equal(t, "A short chat about lunch.", got)
	assert.Equal(t, []string{"summary-prompt"}, seen.get())
}

func TestNewClassifierRepo_NilClient(t *testing.T) {
	assert.Nil(t, NewClassifierRepo(nil, testPrompts))
}
