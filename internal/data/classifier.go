package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
	"github.com/DevRickLin/feishu-modbot/internal/infra/openai"
)

// ClassifierPrompts are the system prompts per task
type ClassifierPrompts struct {
	Strict  string
	Lenient string
	Summary string
}

// classifierRepo implements the classifier repository on an OpenAI-compatible model
type classifierRepo struct {
	client  *openai.Client
	prompts ClassifierPrompts
}

// NewClassifierRepo creates a classifier repository. A nil client yields nil, the gate then fails open.
func NewClassifierRepo(client *openai.Client, prompts ClassifierPrompts) repo.ClassifierRepo {
	if client == nil {
		return nil
	}
	return &classifierRepo{client: client, prompts: prompts}
}

// Classify asks the model for SAFE or DELETE under the profile's instructions
func (r *classifierRepo) Classify(ctx context.Context, content string, profile domain.Profile) (domain.Verdict, error) {
	system := r.prompts.Strict
	if profile == domain.ProfileLenient {
		system = r.prompts.Lenient
	}

	resp, err := r.client.Chat(ctx, system, content, 5)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, context.DeadlineExceeded)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	return domain.ParseVerdict(resp)
}

// Summarize condenses a transcript into a short paragraph
func (r *classifierRepo) Summarize(ctx context.Context, transcript string) (string, error) {
	resp, err := r.client.Chat(ctx, r.prompts.Summary, transcript, 300)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	return strings.TrimSpace(resp), nil
}
