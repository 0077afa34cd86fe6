package conf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PromptsConfig contains all prompt and notice texts loaded from YAML
type PromptsConfig struct {
	Classifier ClassifierPrompts `yaml:"classifier"`
	Notices    NoticePrompts     `yaml:"notices"`
}

// ClassifierPrompts contains the classifier system prompts
type ClassifierPrompts struct {
	Strict        string `yaml:"strict"`
	Lenient       string `yaml:"lenient"`
	SummaryPrompt string `yaml:"summary_prompt"`
}

// NoticePrompts contains user-facing texts. Empty values fall back to the built-in defaults.
type NoticePrompts struct {
	Warning            string `yaml:"warning"`
	Jailed             string `yaml:"jailed"`
	Unjailed           string `yaml:"unjailed"`
	KeptJailed         string `yaml:"kept_jailed"`
	AdditionalTrigger  string `yaml:"additional_trigger"`
	ViolationLog       string `yaml:"violation_log"`
	RejoinBanLog       string `yaml:"rejoin_ban_log"`
	RejoinBanReason    string `yaml:"rejoin_ban_reason"`
	ReviewClosed       string `yaml:"review_closed"`
	ReviewClosedAbsent string `yaml:"review_closed_absent"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"./configs/prompts.yaml",
			"/etc/feishu-modbot/prompts.yaml",
		}
		// Add path relative to executable
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		slog.Info("no prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	slog.Info("loading prompts", "path", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	// Fill in defaults for empty values
	config.fillDefaults()

	return &config, nil
}

// fillDefaults fills in default values for empty fields.
// Notices are defaulted by the usecase layer.
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Classifier.Strict == "" {
		c.Classifier.Strict = defaults.Classifier.Strict
	}
	if c.Classifier.Lenient == "" {
		c.Classifier.Lenient = defaults.Classifier.Lenient
	}
	if c.Classifier.SummaryPrompt == "" {
		c.Classifier.SummaryPrompt = defaults.Classifier.SummaryPrompt
	}
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Classifier: ClassifierPrompts{
			Strict: `You are an AI content moderation system for a Feishu community group.

Flag messages that contain clear or strongly implied:
- Racism, hate speech, or slurs (even if censored)
- Ableism, transphobia, homophobia, or sexism
- Harassment, threats, incitement, or targeted bullying
- Known dog whistles or coded hate terms

Be alert for attempts to bypass filters using misspellings, emojis, slang, acronyms, or indirect phrasing, but do not flag unless the message is *reasonably likely* to be harmful or targeted.

If the message violates these guidelines, respond only with: DELETE
If it does not, respond only with: SAFE
Do not explain your decision.`,
			Lenient: `You are an AI content moderation system for a Feishu community group.

Flag messages only when they contain explicit, unmistakable racist or hate-filled language.
Ignore mild profanity, jokes, or context unless the message clearly includes outright racism or hate speech.

If the message is explicitly racist or hate speech, respond only with: DELETE
If it is not, respond only with: SAFE
Do not explain your decision.`,
			SummaryPrompt: `Summarize the following group conversation in a short, clear paragraph.
Output the summary directly, no prefix like "Summary:" needed.`,
		},
	}
}
