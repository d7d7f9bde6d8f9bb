package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobinsight/jobinsight/internal/ai"
)

var testKeywords = []ai.Keyword{
	{Name: "Python", Weight: 0.9},
	{Name: "Data Analysis", Weight: 0.7},
}

func TestNewFeishuRequiresTarget(t *testing.T) {
	_, err := NewFeishu(Config{})
	assert.Error(t, err)

	_, err = NewFeishu(Config{AppID: "app"})
	assert.Error(t, err)

	_, err = NewFeishu(Config{WebhookURL: "https://example.com/hook"})
	assert.NoError(t, err)
}

func TestPushWebhook(t *testing.T) {
	var got struct {
		MsgType string `json:"msg_type"`
		Content struct {
			Text string `json:"text"`
		} `json:"content"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"code": 0}))
	}))
	defer server.Close()

	feishu, err := NewFeishu(Config{WebhookURL: server.URL})
	require.NoError(t, err)

	err = feishu.Push(context.Background(), testKeywords, "Activity keywords 2026-08-16 ~ 2026-08-23")
	require.NoError(t, err)

	assert.Equal(t, "text", got.MsgType)
	assert.Contains(t, got.Content.Text, "Activity keywords")
	assert.Contains(t, got.Content.Text, "1. Python (0.90)")
	assert.Contains(t, got.Content.Text, "2. Data Analysis (0.70)")
}

func TestPushWebhookRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"code": 19001, "msg": "param invalid"}))
	}))
	defer server.Close()

	feishu, err := NewFeishu(Config{WebhookURL: server.URL})
	require.NoError(t, err)

	err = feishu.Push(context.Background(), testKeywords, "title")
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestPushWebhookNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	feishu, err := NewFeishu(Config{WebhookURL: server.URL})
	require.NoError(t, err)

	err = feishu.Push(context.Background(), testKeywords, "title")
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestPushAppMode(t *testing.T) {
	tokenCalls := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "app-id", creds["app_id"])
		assert.Equal(t, "app-secret", creds["app_secret"])
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "tenant_access_token": "tok-1", "expire": 7200,
		}))
	})
	mux.HandleFunc("/contact/v3/users/batch_get_id", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		var payload map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, []string{"user@example.com"}, payload["emails"])
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]any{"user_list": []map[string]string{{"user_id": "ou_abc"}}},
		}))
	})
	mux.HandleFunc("/im/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open_id", r.URL.Query().Get("receive_id_type"))
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "ou_abc", payload["receive_id"])
		assert.Equal(t, "text", payload["msg_type"])
		// content is a JSON-encoded string per the Feishu IM API.
		var content map[string]string
		require.NoError(t, json.Unmarshal([]byte(payload["content"].(string)), &content))
		assert.Contains(t, content["text"], "Python")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"code": 0}))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	feishu, err := NewFeishu(Config{
		AppID:     "app-id",
		AppSecret: "app-secret",
		Email:     "user@example.com",
		APIBase:   server.URL,
	})
	require.NoError(t, err)

	require.NoError(t, feishu.Push(context.Background(), testKeywords, "title"))
	require.NoError(t, feishu.Push(context.Background(), testKeywords, "title"))

	// The tenant token is cached across pushes.
	assert.Equal(t, 1, tokenCalls)
}

func TestPushAppModeNoTarget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v3/tenant_access_token/internal", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"code": 0, "tenant_access_token": "tok-1", "expire": 7200,
		}))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	feishu, err := NewFeishu(Config{AppID: "app-id", AppSecret: "app-secret", APIBase: server.URL})
	require.NoError(t, err)

	err = feishu.Push(context.Background(), testKeywords, "title")
	assert.ErrorIs(t, err, ErrDelivery)
}

func TestFormatMessage(t *testing.T) {
	text := formatMessage(testKeywords, "Weekly report")
	assert.Equal(t, "Weekly report\n1. Python (0.90)\n2. Data Analysis (0.70)", text)
}
