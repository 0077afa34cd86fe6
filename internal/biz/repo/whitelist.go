package repo

import "context"

// WhitelistRepo stores the global set of exempt phrases
type WhitelistRepo interface {
	ListPhrases(ctx context.Context) ([]string, error)
	// AddPhrase returns false if the phrase was already present
	AddPhrase(ctx context.Context, phrase string) (bool, error)
	// RemovePhrase returns false if the phrase was not present
	RemovePhrase(ctx context.Context, phrase string) (bool, error)
}
