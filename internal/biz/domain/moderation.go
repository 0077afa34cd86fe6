package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// WarningThreshold is the warning count at which a user is jailed
const WarningThreshold = 3

// EvidenceCap is the number of flagged excerpts kept per user
const EvidenceCap = 5

// maxExcerptRunes bounds the text kept for a single evidence entry
const maxExcerptRunes = 300

// NoEvidenceMarker is rendered when no flagged messages are cached for a user
const NoEvidenceMarker = "- No cached flagged messages found."

// UserSet names a persisted set of user ids
type UserSet string

const (
	SetJailed UserSet = "jailed"
	SetExempt UserSet = "exempt"
)

// UserState is the moderation state of a single user
type UserState struct {
	UserID       string `json:"user_id"`
	WarningCount int    `json:"warning_count"`
	Jailed       bool   `json:"jailed"`
	Exempt       bool   `json:"exempt"`
}

// EvidenceEntry is one flagged message excerpt shown to reviewers
type EvidenceEntry struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name,omitempty"`
	Text        string    `json:"text"`
	At          time.Time `json:"at"`
}

// NewEvidenceEntry builds an entry, truncating the text to an excerpt
func NewEvidenceEntry(channelID, channelName, text string, at time.Time) EvidenceEntry {
	return EvidenceEntry{
		ChannelID:   channelID,
		ChannelName: channelName,
		Text:        Excerpt(text, maxExcerptRunes),
		At:          at,
	}
}

// Format renders the entry as "#channel (id): text"
func (e EvidenceEntry) Format() string {
	name := e.ChannelName
	if name == "" {
		name = e.ChannelID
	}
	return fmt.Sprintf("#%s (%s): %s", name, e.ChannelID, e.Text)
}

// RenderEvidence renders entries as a bulleted list, or the explicit marker when there are none
func RenderEvidence(entries []EvidenceEntry) string {
	if len(entries) == 0 {
		return NoEvidenceMarker
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = "- " + e.Format()
	}
	return strings.Join(lines, "\n")
}

// AppendEvidence appends an entry and keeps only the newest EvidenceCap entries
func AppendEvidence(entries []EvidenceEntry, e EvidenceEntry) []EvidenceEntry {
	out := append(entries, e)
	if len(out) > EvidenceCap {
		out = append([]EvidenceEntry(nil), out[len(out)-EvidenceCap:]...)
	}
	return out
}

// Excerpt truncates s to at most n runes
func Excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
