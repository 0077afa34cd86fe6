package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
	"github.com/DevRickLin/feishu-modbot/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	// Feishu configuration
	Feishu FeishuConfig

	// Community scoping (chats, jail group, staff)
	Community CommunityConfig

	// Classifier configuration (optional, the gate fails open without it)
	Classifier ClassifierConfig

	// Storage configuration
	Store StoreConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	// Admin API port
	APIPort int

	// Debug mode
	Debug bool
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// CommunityConfig scopes moderation to one community
type CommunityConfig struct {
	ChatID         string
	ReviewChatID   string
	LogChatID      string
	JailGroupID    string
	StaffUserIDs   []string
	IgnoredChatIDs []string
	// ReviewSweep is how often pending reviews with deleted posts are dropped, zero disables it
	ReviewSweep time.Duration
}

// ClassifierConfig contains the OpenAI-compatible classifier configuration
type ClassifierConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// StoreConfig contains storage configuration
type StoreConfig struct {
	DBPath             string
	RedisURL           string // optional, shares counters and evidence between instances
	EvidenceCacheUsers int
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Database path
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".feishu-modbot", "modbot.db")
	}

	timeoutSec := envInt("CLASSIFIER_TIMEOUT_SECONDS", 10)
	evidenceUsers := envInt("EVIDENCE_CACHE_USERS", 10000)
	apiPort := envInt("API_PORT", 8080)
	sweepMin := envInt("REVIEW_SWEEP_MINUTES", 60)

	// Load prompts from YAML
	promptsConfigPath := os.Getenv("PROMPTS_CONFIG_PATH")
	promptsConfig, err := LoadPromptsConfig(promptsConfigPath)
	if err != nil {
		promptsConfig = DefaultPromptsConfig()
	}

	return &Config{
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
		},
		Community: CommunityConfig{
			ChatID:         os.Getenv("COMMUNITY_CHAT_ID"),
			ReviewChatID:   os.Getenv("REVIEW_CHAT_ID"),
			LogChatID:      os.Getenv("LOG_CHAT_ID"),
			JailGroupID:    os.Getenv("JAIL_GROUP_ID"),
			StaffUserIDs:   splitList(os.Getenv("STAFF_USER_IDS")),
			IgnoredChatIDs: splitList(os.Getenv("IGNORED_CHAT_IDS")),
			ReviewSweep:    time.Duration(sweepMin) * time.Minute,
		},
		Classifier: ClassifierConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("CLASSIFIER_MODEL"),
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		Store: StoreConfig{
			DBPath:             dbPath,
			RedisURL:           os.Getenv("REDIS_URL"),
			EvidenceCacheUsers: evidenceUsers,
		},
		Prompts: promptsConfig,
		APIPort: apiPort,
		Debug:   os.Getenv("DEBUG") == "true",
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ToGuildContext converts to the domain community scope
func (c *CommunityConfig) ToGuildContext() domain.GuildContext {
	return domain.GuildContext{
		ChatID:       c.ChatID,
		JailRoleID:   c.JailGroupID,
		ReviewChatID: c.ReviewChatID,
		LogChatID:    c.LogChatID,
	}
}

// ToNoticeConfig converts to the usecase notice texts
func (c *Config) ToNoticeConfig() usecase.NoticeConfig {
	if c.Prompts == nil {
		return usecase.DefaultNoticeConfig
	}
	n := c.Prompts.Notices
	return usecase.NoticeConfig{
		Warning:            n.Warning,
		Jailed:             n.Jailed,
		Unjailed:           n.Unjailed,
		KeptJailed:         n.KeptJailed,
		AdditionalTrigger:  n.AdditionalTrigger,
		ViolationLog:       n.ViolationLog,
		RejoinBanLog:       n.RejoinBanLog,
		RejoinBanReason:    n.RejoinBanReason,
		ReviewClosed:       n.ReviewClosed,
		ReviewClosedAbsent: n.ReviewClosedAbsent,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required"}
	}
	if c.Community.ChatID == "" {
		return &ConfigError{Field: "COMMUNITY_CHAT_ID", Message: "required"}
	}
	if c.Community.ReviewChatID == "" {
		return &ConfigError{Field: "REVIEW_CHAT_ID", Message: "required"}
	}
	if c.Community.JailGroupID == "" {
		return &ConfigError{Field: "JAIL_GROUP_ID", Message: "required"}
	}
	if len(c.Community.StaffUserIDs) == 0 {
		return &ConfigError{Field: "STAFF_USER_IDS", Message: "at least one reviewer is required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
