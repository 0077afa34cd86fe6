package usecase

// NoticeConfig holds the user-facing texts sent by the bot
type NoticeConfig struct {
	Warning            string // formatted with count and threshold
	Jailed             string
	Unjailed           string
	KeptJailed         string
	AdditionalTrigger  string
	ViolationLog       string // formatted with user, channel, content
	RejoinBanLog       string // formatted with user
	RejoinBanReason    string
	ReviewClosed       string // formatted with actor and decision verdict
	ReviewClosedAbsent string // formatted with actor
}

// DefaultNoticeConfig is used when no prompts file overrides the texts
var DefaultNoticeConfig = NoticeConfig{
	Warning: "⚠️ You have been warned for violating server rules. Warning %d/%d.",
	Jailed: "🚨 You have been jailed for repeated rule violations. " +
		"Your case is pending our moderation team's review. " +
		"Expect a response soon, and if you have any further questions, please open a ticket.",
	Unjailed: "✅ After review, you have been unjailed and added to our exempt list. " +
		"We apologize for the inconvenience. If you have any other concerns or another issue arises, please create a ticket.",
	KeptJailed: "⚠️ After review by our moderation team, your jail has been deemed correct. " +
		"You will not be unjailed unless you create a ticket and request further review.",
	AdditionalTrigger:  "⚠️ Additional jail trigger detected while review is pending.",
	ViolationLog:       "🛑 Message deleted by AI mod\nUser: %s\nChannel: %s\nContent: %s",
	RejoinBanLog:       "🚫 %s was removed for rejoining after being jailed.",
	RejoinBanReason:    "Attempted to bypass jail role by rejoining.",
	ReviewClosed:       "Closed by %s, jail deemed %s.",
	ReviewClosedAbsent: "Closed by %s, jail review closed (user left).",
}

// WithDefaults fills empty texts from DefaultNoticeConfig
func (c NoticeConfig) WithDefaults() NoticeConfig {
	d := DefaultNoticeConfig
	if c.Warning == "" {
		c.Warning = d.Warning
	}
	if c.Jailed == "" {
		c.Jailed = d.Jailed
	}
	if c.Unjailed == "" {
		c.Unjailed = d.Unjailed
	}
	if c.KeptJailed == "" {
		c.KeptJailed = d.KeptJailed
	}
	if c.AdditionalTrigger == "" {
		c.AdditionalTrigger = d.AdditionalTrigger
	}
	if c.ViolationLog == "" {
		c.ViolationLog = d.ViolationLog
	}
	if c.RejoinBanLog == "" {
		c.RejoinBanLog = d.RejoinBanLog
	}
	if c.RejoinBanReason == "" {
		c.RejoinBanReason = d.RejoinBanReason
	}
	if c.ReviewClosed == "" {
		c.ReviewClosed = d.ReviewClosed
	}
	if c.ReviewClosedAbsent == "" {
		c.ReviewClosedAbsent = d.ReviewClosedAbsent
	}
	return c
}
