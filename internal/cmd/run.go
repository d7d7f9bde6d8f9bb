package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jobinsight/jobinsight/internal/aggregator"
	"github.com/jobinsight/jobinsight/internal/ai"
	"github.com/jobinsight/jobinsight/internal/config"
	"github.com/jobinsight/jobinsight/internal/notify"
	"github.com/jobinsight/jobinsight/internal/pipeline"
	"github.com/jobinsight/jobinsight/internal/store"
)

// runOnce executes one full pipeline run over the past `days` days.
func runOnce(ctx context.Context, cfg *config.Config, days int) (*pipeline.Result, error) {
	fmt.Printf("Analyzing past %d days of activity from %s\n", days, cfg.Collector.DBPath)

	agg, err := aggregator.NewAggregator(aggregator.Config{
		MinEventSeconds: cfg.Collector.MinEventSeconds,
		TitleRules:      titleRules(cfg.Aggregate.TitleRules),
		AppBlacklist:    cfg.Aggregate.AppBlacklist,
		TitleBlacklist:  cfg.Aggregate.TitleBlacklist,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	maxK := keywordMax(cfg, days)
	client, err := ai.NewClient(ai.Config{
		Provider:   cfg.LLM.Provider,
		Model:      cfg.LLM.Model,
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     cfg.LLM.ResolveAPIKey(),
		Timeout:    time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		KeywordMax: maxK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var notifier pipeline.Notifier
	if cfg.Feishu.WebhookURL != "" || cfg.Feishu.AppID != "" {
		feishu, err := notify.NewFeishu(notify.Config{
			WebhookURL: cfg.Feishu.WebhookURL,
			AppID:      cfg.Feishu.AppID,
			AppSecret:  cfg.Feishu.AppSecret,
			OpenID:     cfg.Feishu.OpenID,
			Email:      cfg.Feishu.Email,
			Mobile:     cfg.Feishu.Mobile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create notifier: %w", err)
		}
		notifier = feishu
	} else {
		fmt.Println("Feishu not configured, skipping push")
	}

	p := pipeline.New(store.NewReader(cfg.Collector.DBPath), agg, client, notifier, pipeline.Config{
		BudgetChars:    cfg.Summary.BudgetChars,
		KeywordMin:     cfg.LLM.KeywordMin,
		KeywordMax:     maxK,
		MaxPromptChars: cfg.LLM.MaxPromptChars,
	}, logger)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	result, err := p.Run(ctx, start, end)
	if err != nil {
		return nil, err
	}

	fmt.Printf("Aggregated %d events into %d buckets (%d below threshold, %d blacklisted, %d afk)\n",
		result.Stats.TotalEvents, result.Stats.Buckets,
		result.Stats.BelowThreshold, result.Stats.Blacklisted, result.Stats.AFKEvents)

	if len(result.Keywords) == 0 {
		fmt.Println("No activity in window, nothing to report")
		return result, nil
	}

	fmt.Printf("Extracted %d keywords:\n", len(result.Keywords))
	for i, kw := range result.Keywords {
		fmt.Printf("  %d. %s (%.2f)\n", i+1, kw.Name, kw.Weight)
	}
	if result.Delivered {
		fmt.Println("Feishu push sent")
	}

	return result, nil
}

func titleRules(rules []config.TitleRule) []aggregator.Rule {
	converted := make([]aggregator.Rule, 0, len(rules))
	for _, rule := range rules {
		converted = append(converted, aggregator.Rule{Pattern: rule.Pattern, Replace: rule.Replace})
	}
	return converted
}

// keywordMax applies the day rule: short windows get fewer keywords. The
// configured keyword_max stays a hard cap.
func keywordMax(cfg *config.Config, days int) int {
	limit := 10
	if days <= 1 {
		limit = 5
	}
	if cfg.LLM.KeywordMax > 0 && cfg.LLM.KeywordMax < limit {
		limit = cfg.LLM.KeywordMax
	}
	return limit
}
