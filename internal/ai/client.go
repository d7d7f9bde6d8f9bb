package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ErrRequest covers every LLM call failure: transport, auth, and malformed
// responses. All are terminal for the current run.
var ErrRequest = errors.New("llm request failed")

// Default chat-completion endpoints per provider. An explicit base_url in
// the configuration overrides these; openai_compat always requires one.
var providerBaseURLs = map[string]string{
	"zhipu":     "https://open.bigmodel.cn/api/paas/v4",
	"dashscope": "https://dashscope.aliyuncs.com/compatible-mode/v1",
	"deepseek":  "https://api.deepseek.com/v1",
	"doubao":    "https://ark.cn-beijing.volces.com/api/v3",
	"openai":    "https://api.openai.com/v1",
}

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	keywordMax  int
	httpClient  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %q", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = providerBaseURLs[strings.ToLower(strings.TrimSpace(cfg.Provider))]
	}
	if baseURL == "" {
		return nil, fmt.Errorf("base_url is required for provider %q", cfg.Provider)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: temperature,
		keywordMax:  cfg.KeywordMax,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// ExtractKeywords sends the prompt and parses the keyword list out of the
// model reply. Results are sorted by descending weight and capped at the
// configured maximum; a reply with fewer keywords passes through unchanged.
func (c *Client) ExtractKeywords(ctx context.Context, prompt string) ([]Keyword, error) {
	content, err := c.chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	keywords, err := parseKeywords(content)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(keywords, func(i, j int) bool {
		return keywords[i].Weight > keywords[j].Weight
	})
	if c.keywordMax > 0 && len(keywords) > c.keywordMax {
		keywords = keywords[:c.keywordMax]
	}

	return keywords, nil
}

func (c *Client) chat(ctx context.Context, userPrompt string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrRequest, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrRequest, resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrRequest, err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrRequest, parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrRequest)
	}

	return parsed.Choices[0].Message.Content, nil
}

func parseKeywords(content string) ([]Keyword, error) {
	jsonPayload := extractJSON(content)
	if jsonPayload == "" {
		return nil, fmt.Errorf("%w: no JSON object in model output", ErrRequest)
	}

	var parsed struct {
		Keywords []struct {
			Name   string   `json:"name"`
			Weight *float64 `json:"weight"`
		} `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(jsonPayload), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse model output: %v", ErrRequest, err)
	}

	var keywords []Keyword
	for _, item := range parsed.Keywords {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		weight := 0.5
		if item.Weight != nil {
			weight = *item.Weight
		}
		keywords = append(keywords, Keyword{Name: name, Weight: clamp(weight)})
	}

	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: model returned no keywords", ErrRequest)
	}

	return keywords, nil
}

func extractJSON(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return strings.TrimSpace(content[start : end+1])
}

func clamp(weight float64) float64 {
	if weight < 0 {
		return 0
	}
	if weight > 1 {
		return 1
	}
	return weight
}
