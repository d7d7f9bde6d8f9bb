package ai

import "time"

// Keyword is one extracted job interest with a model-assigned relevance
// weight in [0, 1].
type Keyword struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	KeywordMax  int
}
