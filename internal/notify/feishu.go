package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jobinsight/jobinsight/internal/ai"
)

// ErrDelivery covers every push failure: network, invalid webhook, auth.
// Delivery is never retried here; the caller decides what to do.
var ErrDelivery = errors.New("feishu delivery failed")

const defaultAPIBase = "https://open.feishu.cn/open-apis"

type Config struct {
	// Bot mode: a group bot webhook URL. Takes precedence when set.
	WebhookURL string

	// App mode: send a direct message through a Feishu application. The
	// target user is resolved from OpenID, or looked up by Email/Mobile.
	AppID     string
	AppSecret string
	OpenID    string
	Email     string
	Mobile    string

	Timeout time.Duration
	APIBase string
}

type Feishu struct {
	config     Config
	apiBase    string
	httpClient *http.Client

	tenantToken string
	tokenExpiry time.Time
}

func NewFeishu(cfg Config) (*Feishu, error) {
	if cfg.WebhookURL == "" && cfg.AppID == "" {
		return nil, fmt.Errorf("feishu webhook_url or app_id is required")
	}
	if cfg.WebhookURL == "" && cfg.AppSecret == "" {
		return nil, fmt.Errorf("feishu app_secret is required for app mode")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}

	return &Feishu{
		config:     cfg,
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Push delivers the keyword list as a text message, via the group bot
// webhook when configured, otherwise as an app direct message.
func (f *Feishu) Push(ctx context.Context, keywords []ai.Keyword, title string) error {
	text := formatMessage(keywords, title)
	if f.config.WebhookURL != "" {
		return f.pushWebhook(ctx, text)
	}
	return f.pushApp(ctx, text)
}

func formatMessage(keywords []ai.Keyword, title string) string {
	var sb strings.Builder
	sb.WriteString(title)
	for i, kw := range keywords {
		sb.WriteString(fmt.Sprintf("\n%d. %s (%.2f)", i+1, kw.Name, kw.Weight))
	}
	return sb.String()
}

type feishuReply struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (f *Feishu) pushWebhook(ctx context.Context, text string) error {
	payload := map[string]any{
		"msg_type": "text",
		"content":  map[string]string{"text": text},
	}

	reply, err := f.postJSON(ctx, f.config.WebhookURL, "", payload)
	if err != nil {
		return err
	}
	if reply.Code != 0 {
		return fmt.Errorf("%w: webhook code %d: %s", ErrDelivery, reply.Code, reply.Msg)
	}
	return nil
}

func (f *Feishu) pushApp(ctx context.Context, text string) error {
	token, err := f.getTenantToken(ctx)
	if err != nil {
		return err
	}

	openID, err := f.resolveOpenID(ctx, token)
	if err != nil {
		return err
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("%w: marshal content: %v", ErrDelivery, err)
	}

	payload := map[string]any{
		"receive_id": openID,
		"msg_type":   "text",
		"content":    string(content),
	}

	url := f.apiBase + "/im/v1/messages?receive_id_type=open_id"
	reply, err := f.postJSON(ctx, url, token, payload)
	if err != nil {
		return err
	}
	if reply.Code != 0 {
		return fmt.Errorf("%w: send message code %d: %s", ErrDelivery, reply.Code, reply.Msg)
	}
	return nil
}

// getTenantToken fetches the app access token, caching it in memory. Tokens
// are valid for two hours; the cache refreshes five minutes early.
func (f *Feishu) getTenantToken(ctx context.Context) (string, error) {
	if f.tenantToken != "" && time.Now().Before(f.tokenExpiry.Add(-5*time.Minute)) {
		return f.tenantToken, nil
	}

	payload := map[string]string{
		"app_id":     f.config.AppID,
		"app_secret": f.config.AppSecret,
	}

	body, err := f.post(ctx, f.apiBase+"/auth/v3/tenant_access_token/internal", "", payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse token response: %v", ErrDelivery, err)
	}
	if parsed.Code != 0 {
		return "", fmt.Errorf("%w: tenant token code %d: %s", ErrDelivery, parsed.Code, parsed.Msg)
	}

	f.tenantToken = parsed.TenantAccessToken
	expire := parsed.Expire
	if expire <= 0 {
		expire = 7200
	}
	f.tokenExpiry = time.Now().Add(time.Duration(expire) * time.Second)

	return f.tenantToken, nil
}

func (f *Feishu) resolveOpenID(ctx context.Context, token string) (string, error) {
	if f.config.OpenID != "" {
		return f.config.OpenID, nil
	}
	if f.config.Email == "" && f.config.Mobile == "" {
		return "", fmt.Errorf("%w: no open_id, email, or mobile configured", ErrDelivery)
	}

	payload := map[string][]string{}
	if f.config.Email != "" {
		payload["emails"] = []string{f.config.Email}
	} else {
		mobile := f.config.Mobile
		// Feishu expects a country code; bare 11-digit numbers get +86.
		if len(mobile) == 11 && !strings.HasPrefix(mobile, "+") {
			mobile = "+86" + mobile
		}
		payload["mobiles"] = []string{mobile}
	}

	url := f.apiBase + "/contact/v3/users/batch_get_id?user_id_type=open_id"
	body, err := f.post(ctx, url, token, payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			UserList []struct {
				UserID string `json:"user_id"`
			} `json:"user_list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse user lookup: %v", ErrDelivery, err)
	}
	if parsed.Code != 0 {
		return "", fmt.Errorf("%w: user lookup code %d: %s", ErrDelivery, parsed.Code, parsed.Msg)
	}
	for _, user := range parsed.Data.UserList {
		if user.UserID != "" {
			return user.UserID, nil
		}
	}

	return "", fmt.Errorf("%w: no matching feishu user found", ErrDelivery)
}

func (f *Feishu) postJSON(ctx context.Context, url, token string, payload any) (*feishuReply, error) {
	body, err := f.post(ctx, url, token, payload)
	if err != nil {
		return nil, err
	}

	var reply feishuReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrDelivery, err)
	}
	return &reply, nil
}

func (f *Feishu) post(ctx context.Context, url, token string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrDelivery, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrDelivery, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
