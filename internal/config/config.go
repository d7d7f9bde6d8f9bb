package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all jobinsight configuration. Loaded once at startup and
// passed around as a value; nothing mutates it afterwards.
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Summary   SummaryConfig   `yaml:"summary"`
	LLM       LLMConfig       `yaml:"llm"`
	Feishu    FeishuConfig    `yaml:"feishu"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
}

type CollectorConfig struct {
	DBPath          string `yaml:"db_path"`
	LookbackDays    int    `yaml:"lookback_days"`
	MinEventSeconds int    `yaml:"min_event_seconds"`
}

type AggregateConfig struct {
	TitleRules     []TitleRule `yaml:"title_rules"`
	AppBlacklist   []string    `yaml:"app_blacklist"`
	TitleBlacklist []string    `yaml:"title_blacklist"`
}

// TitleRule is one normalization step; rules run in file order.
type TitleRule struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

type SummaryConfig struct {
	BudgetChars int `yaml:"budget_chars"`
}

type LLMConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	KeywordMin     int    `yaml:"keyword_min"`
	KeywordMax     int    `yaml:"keyword_max"`
	MaxPromptChars int    `yaml:"max_prompt_chars"`
}

type FeishuConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	AppID      string `yaml:"app_id"`
	AppSecret  string `yaml:"app_secret"`
	Email      string `yaml:"email"`
	OpenID     string `yaml:"open_id"`
	Mobile     string `yaml:"mobile"`
}

type ScheduleConfig struct {
	Time string `yaml:"time"`
}

func DefaultConfig() *Config {
	return &Config{
		Collector: CollectorConfig{
			DBPath:          "local_events.db",
			LookbackDays:    7,
			MinEventSeconds: 10,
		},
		Summary: SummaryConfig{
			BudgetChars: 8000,
		},
		LLM: LLMConfig{
			Provider:       "zhipu",
			Model:          "glm-4.7",
			TimeoutSeconds: 60,
			KeywordMin:     5,
			KeywordMax:     10,
			MaxPromptChars: 24000,
		},
		Schedule: ScheduleConfig{
			Time: "09:00",
		},
	}
}

// Load reads a YAML config file at path and merges it with defaults. A
// missing file is not an error: defaults plus environment still make a
// working setup.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Env var names checked per provider, in order, when llm.api_key is empty.
var providerKeyEnvs = map[string][]string{
	"zhipu":         {"ZHIPU_API_KEY", "GLM_API_KEY", "BIGMODEL_API_KEY"},
	"doubao":        {"VOLCANO_API_KEY", "ARK_API_KEY"},
	"openai":        {"OPENAI_API_KEY"},
	"openai_compat": {"OPENAI_API_KEY"},
	"deepseek":      {"DEEPSEEK_API_KEY"},
	"dashscope":     {"DASHSCOPE_API_KEY"},
}

// ResolveAPIKey returns the configured key, falling back to the provider's
// environment variables.
func (c LLMConfig) ResolveAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	for _, name := range providerKeyEnvs[strings.ToLower(strings.TrimSpace(c.Provider))] {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}
