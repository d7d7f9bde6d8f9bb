package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobinsight/jobinsight/internal/aggregator"
	"github.com/jobinsight/jobinsight/internal/ai"
	"github.com/jobinsight/jobinsight/internal/store"
)

// EventSource reads raw activity events for one lookback window.
type EventSource interface {
	ReadEvents(ctx context.Context, start, end time.Time) ([]store.Event, error)
}

// KeywordExtractor sends a finished prompt to an LLM provider and returns
// the parsed keyword list.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, prompt string) ([]ai.Keyword, error)
}

// Notifier delivers the final keyword list to a chat endpoint.
type Notifier interface {
	Push(ctx context.Context, keywords []ai.Keyword, title string) error
}

type Config struct {
	BudgetChars    int
	KeywordMin     int
	KeywordMax     int
	MaxPromptChars int
}

type Pipeline struct {
	source     EventSource
	aggregator *aggregator.Aggregator
	extractor  KeywordExtractor
	notifier   Notifier
	config     Config
	logger     *zap.Logger
}

// New wires one pipeline. A nil notifier skips delivery; everything else is
// required.
func New(source EventSource, agg *aggregator.Aggregator, extractor KeywordExtractor, notifier Notifier, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		source:     source,
		aggregator: agg,
		extractor:  extractor,
		notifier:   notifier,
		config:     cfg,
		logger:     logger,
	}
}

type Result struct {
	Start     time.Time
	End       time.Time
	Stats     aggregator.Stats
	Summary   Summary
	Keywords  []ai.Keyword
	Delivered bool
}

// Run executes one end-to-end analysis for the window [start, end). Every
// stage failure aborts the run; partial results never reach the notifier. A
// window with no usable activity short-circuits before the LLM call and is
// not an error.
func (p *Pipeline) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	result := &Result{Start: start, End: end}

	events, err := p.source.ReadEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	p.logger.Info("events loaded", zap.Int("count", len(events)))

	buckets, stats := p.aggregator.Aggregate(events)
	result.Stats = stats
	p.logger.Info("events aggregated",
		zap.Int("buckets", stats.Buckets),
		zap.Int("below_threshold", stats.BelowThreshold),
		zap.Int("blacklisted", stats.Blacklisted),
		zap.Int("afk", stats.AFKEvents))

	result.Summary = Compress(buckets, p.config.BudgetChars)

	if len(buckets) == 0 {
		p.logger.Info("no activity in window, skipping extraction")
		return result, nil
	}

	prompt, err := ai.BuildPrompt(result.Summary.Text, p.config.KeywordMin, p.config.KeywordMax, p.config.MaxPromptChars)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	keywords, err := p.extractor.ExtractKeywords(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}
	result.Keywords = keywords
	p.logger.Info("keywords extracted", zap.Int("count", len(keywords)))

	if p.notifier == nil {
		return result, nil
	}

	title := fmt.Sprintf("Activity keywords %s ~ %s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err := p.notifier.Push(ctx, keywords, title); err != nil {
		return nil, fmt.Errorf("deliver keywords: %w", err)
	}
	result.Delivered = true

	return result, nil
}
