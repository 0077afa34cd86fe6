package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/DevRickLin/feishu-modbot/internal/biz/repo"
)

// WhitelistUsecase manages the global phrase whitelist
type WhitelistUsecase struct {
	whitelistRepo repo.WhitelistRepo
}

// NewWhitelistUsecase creates a new whitelist usecase
func NewWhitelistUsecase(whitelistRepo repo.WhitelistRepo) *WhitelistUsecase {
	return &WhitelistUsecase{whitelistRepo: whitelistRepo}
}

// Matches reports whether any whitelisted phrase occurs in content (case-sensitive substring)
func (uc *WhitelistUsecase) Matches(ctx context.Context, content string) (bool, error) {
	phrases, err := uc.whitelistRepo.ListPhrases(ctx)
	if err != nil {
		return false, fmt.Errorf("list whitelist: %w", err)
	}
	for _, p := range phrases {
		if p != "" && strings.Contains(content, p) {
			return true, nil
		}
	}
	return false, nil
}

// Add adds a phrase, returning false if it was already whitelisted
func (uc *WhitelistUsecase) Add(ctx context.Context, phrase string) (bool, error) {
	if phrase == "" {
		return false, fmt.Errorf("phrase is required")
	}
	return uc.whitelistRepo.AddPhrase(ctx, phrase)
}

// Remove removes a phrase, returning false if it was not whitelisted
func (uc *WhitelistUsecase) Remove(ctx context.Context, phrase string) (bool, error) {
	return uc.whitelistRepo.RemovePhrase(ctx, phrase)
}

// List returns all phrases
func (uc *WhitelistUsecase) List(ctx context.Context) ([]string, error) {
	return uc.whitelistRepo.ListPhrases(ctx)
}
