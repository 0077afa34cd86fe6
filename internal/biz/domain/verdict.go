package domain

import (
	"fmt"
	"strings"
)

// Verdict is the moderation decision for a single message
type Verdict string

const (
	VerdictSafe   Verdict = "SAFE"
	VerdictDelete Verdict = "DELETE"
)

// Profile selects the classifier instruction set
type Profile string

const (
	// ProfileStrict flags hate speech, harassment, coded slurs and dog whistles
	ProfileStrict Profile = "strict"
	// ProfileLenient flags only explicit, unambiguous hate speech
	ProfileLenient Profile = "lenient"
)

// ProfileFor returns the profile used for an author
func ProfileFor(lenient bool) Profile {
	if lenient {
		return ProfileLenient
	}
	return ProfileStrict
}

// ParseVerdict normalizes a raw classifier reply.
// Only the two tokens are accepted, surrounding whitespace and case are ignored.
func ParseVerdict(raw string) (Verdict, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(VerdictSafe):
		return VerdictSafe, nil
	case string(VerdictDelete):
		return VerdictDelete, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrMalformedVerdict, raw)
	}
}
