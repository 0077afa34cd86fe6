package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	cases := map[string]Verdict{
		"SAFE":       VerdictSafe,
		"safe":       VerdictSafe,
		"  Delete\n": VerdictDelete,
		"DELETE":     VerdictDelete,
	}
	for raw, want := range cases {
		got, err := ParseVerdict(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseVerdictRejectsOtherText(t *testing.T) {
	for _, raw := range []string{"", "DELETE.", "I think SAFE", "yes", "DELETE this"} {
		_, err := ParseVerdict(raw)
		assert.ErrorIs(t, err, ErrMalformedVerdict, raw)
	}
}

func TestProfileFor(t *testing.T) {
	assert.Equal(t, ProfileLenient, ProfileFor(true))
	assert.Equal(t, ProfileStrict, ProfileFor(false))
}
