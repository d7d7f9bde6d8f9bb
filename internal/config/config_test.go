package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "local_events.db", cfg.Collector.DBPath)
	assert.Equal(t, 7, cfg.Collector.LookbackDays)
	assert.Equal(t, 10, cfg.Collector.MinEventSeconds)
	assert.Equal(t, 8000, cfg.Summary.BudgetChars)
	assert.Equal(t, "zhipu", cfg.LLM.Provider)
	assert.Equal(t, "glm-4.7", cfg.LLM.Model)
	assert.Equal(t, 60, cfg.LLM.TimeoutSeconds)
	assert.Equal(t, 5, cfg.LLM.KeywordMin)
	assert.Equal(t, 10, cfg.LLM.KeywordMax)
	assert.Equal(t, 24000, cfg.LLM.MaxPromptChars)
	assert.Equal(t, "09:00", cfg.Schedule.Time)
	assert.Empty(t, cfg.Feishu.WebhookURL)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yamlContent := `
collector:
  db_path: /data/events.db
  lookback_days: 14
  min_event_seconds: 30
summary:
  budget_chars: 4000
llm:
  provider: deepseek
  model: deepseek-chat
  keyword_max: 8
aggregate:
  title_rules:
    - pattern: ' - unread\(\d+\)$'
      replace: ""
  app_blacklist:
    - game.exe
feishu:
  webhook_url: https://open.feishu.cn/open-apis/bot/v2/hook/abc
schedule:
  time: "08:30"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/events.db", cfg.Collector.DBPath)
	assert.Equal(t, 14, cfg.Collector.LookbackDays)
	assert.Equal(t, 30, cfg.Collector.MinEventSeconds)
	assert.Equal(t, 4000, cfg.Summary.BudgetChars)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 8, cfg.LLM.KeywordMax)
	require.Len(t, cfg.Aggregate.TitleRules, 1)
	assert.Equal(t, ` - unread\(\d+\)$`, cfg.Aggregate.TitleRules[0].Pattern)
	assert.Equal(t, []string{"game.exe"}, cfg.Aggregate.AppBlacklist)
	assert.Equal(t, "https://open.feishu.cn/open-apis/bot/v2/hook/abc", cfg.Feishu.WebhookURL)
	assert.Equal(t, "08:30", cfg.Schedule.Time)

	// Untouched sections keep their defaults.
	assert.Equal(t, 5, cfg.LLM.KeywordMin)
	assert.Equal(t, 60, cfg.LLM.TimeoutSeconds)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collector: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestResolveAPIKey(t *testing.T) {
	explicit := LLMConfig{Provider: "deepseek", APIKey: "from-config"}
	assert.Equal(t, "from-config", explicit.ResolveAPIKey())

	t.Setenv("DEEPSEEK_API_KEY", "from-env")
	fromEnv := LLMConfig{Provider: "deepseek"}
	assert.Equal(t, "from-env", fromEnv.ResolveAPIKey())

	t.Setenv("VOLCANO_API_KEY", "")
	t.Setenv("ARK_API_KEY", "ark-key")
	doubao := LLMConfig{Provider: "doubao"}
	assert.Equal(t, "ark-key", doubao.ResolveAPIKey())

	unknown := LLMConfig{Provider: "mystery"}
	assert.Empty(t, unknown.ResolveAPIKey())
}
