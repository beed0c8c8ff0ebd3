package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"baize/internal/config"
)

const defaultAPIBase = "https://open.feishu.cn"

// FeishuNotifier 飞书投递：获取 tenant_access_token，向用户或群发送告警。
// UseCardDelivery 时发交互卡片（带「已确认」按钮），否则发纯文本。
type FeishuNotifier struct {
	cfg     config.FeishuConfig
	client  *http.Client
	apiBase string

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

// NewFeishuNotifier 根据飞书配置创建；app_secret 应从环境变量读取（config.Load 已做 env 覆盖）。
func NewFeishuNotifier(cfg config.FeishuConfig) *FeishuNotifier {
	return &FeishuNotifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		apiBase: defaultAPIBase,
	}
}

// Send 投递一条告警，带重试退避。
func (f *FeishuNotifier) Send(ctx context.Context, alert *Alert) error {
	if alert == nil || alert.Change == nil || alert.Decision == nil {
		return fmt.Errorf("feishu: nil alert")
	}
	if !f.cfg.Enabled || f.cfg.AppID == "" || f.cfg.AppSecret == "" {
		return fmt.Errorf("feishu: not enabled or missing app_id/app_secret")
	}
	token, err := f.getToken(ctx)
	if err != nil {
		return fmt.Errorf("feishu token: %w", err)
	}

	// 默认按 user_id 发（避免 open_id cross app）；仅当以 ou_ 开头时用 open_id
	receiveIDType := "user_id"
	receiveID := f.cfg.ReceiveUserID
	if receiveID != "" && strings.HasPrefix(receiveID, "ou_") {
		receiveIDType = "open_id"
	}
	if receiveID == "" && f.cfg.ChatID != "" {
		receiveIDType = "chat_id"
		receiveID = f.cfg.ChatID
	}
	if receiveID == "" {
		return fmt.Errorf("feishu: no receive_id (receive_user_id or chat_id)")
	}

	maxAttempts := f.cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if f.cfg.UseCardDelivery {
			err = f.sendCard(ctx, token, receiveIDType, receiveID, alert)
		} else {
			err = f.sendText(ctx, token, receiveIDType, receiveID, alertText(alert))
		}
		if err == nil {
			return nil
		}
		if attempt < maxAttempts-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[baize] feishu retry %d/%d after %v: %v", attempt+1, maxAttempts, backoff, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return err
}

// alertText 纯文本投递正文。
func alertText(alert *Alert) string {
	c := alert.Change
	d := alert.Decision
	var b strings.Builder
	fmt.Fprintf(&b, "持久化项变更告警 [%s]\n", strings.ToUpper(d.Severity))
	fmt.Fprintf(&b, "%s\n\n", d.Title)
	fmt.Fprintf(&b, "类别: %s\n标识: %s\n变更: %s\n", c.Category, c.Item.Identifier, c.Type)
	if c.Item.ExecutablePath != "" {
		fmt.Fprintf(&b, "可执行文件: %s\n", c.Item.ExecutablePath)
	}
	for _, fc := range c.FieldChanges {
		fmt.Fprintf(&b, "  - %s\n", fc)
	}
	fmt.Fprintf(&b, "\n%s", d.Explanation)
	if d.Recommendation != "" {
		fmt.Fprintf(&b, "\n建议: %s", d.Recommendation)
	}
	return b.String()
}

// sendCard 发送交互卡片（「已确认」按钮），按钮 value 为
// {"record_id":"<历史记录 ID>","action":"acknowledge"}，供长连接回调解析。
func (f *FeishuNotifier) sendCard(ctx context.Context, token, receiveIDType, receiveID string, alert *Alert) error {
	c := alert.Change
	d := alert.Decision
	bodyMD := fmt.Sprintf("**%s**\n\n类别: `%s`\n标识: `%s`\n变更: %s\n相关度: %d\n\n%s",
		d.Title, c.Category, c.Item.Identifier, c.Type, d.Relevance, d.Explanation)
	if len(c.FieldChanges) > 0 {
		bodyMD += "\n\n字段变更:\n- " + strings.Join(c.FieldChanges, "\n- ")
	}
	if d.Recommendation != "" {
		bodyMD += "\n\n建议: " + d.Recommendation
	}
	ackVal := map[string]string{"record_id": alert.RecordID, "action": "acknowledge"}
	card := map[string]interface{}{
		"config": map[string]interface{}{"wide_screen_mode": true},
		"header": map[string]interface{}{
			"title": map[string]interface{}{
				"tag":     "plain_text",
				"content": fmt.Sprintf("Baize 告警 [%s]", strings.ToUpper(d.Severity)),
			},
			"template": cardHeaderColor(d.Severity),
		},
		"elements": []interface{}{
			map[string]interface{}{
				"tag": "div",
				"text": map[string]interface{}{
					"tag":     "lark_md",
					"content": bodyMD,
				},
			},
			map[string]interface{}{
				"tag": "action",
				"actions": []interface{}{
					map[string]interface{}{
						"tag":   "button",
						"text":  map[string]interface{}{"tag": "plain_text", "content": "已确认"},
						"type":  "primary",
						"value": ackVal,
					},
				},
			},
		},
	}
	contentBytes, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("feishu: marshal card: %w", err)
	}
	return f.postMessage(ctx, token, receiveIDType, receiveID, "interactive", string(contentBytes))
}

func cardHeaderColor(severity string) string {
	switch severity {
	case "critical":
		return "red"
	case "high":
		return "orange"
	case "medium":
		return "yellow"
	default:
		return "blue"
	}
}

func (f *FeishuNotifier) sendText(ctx context.Context, token, receiveIDType, receiveID, body string) error {
	// 飞书要求 content 为 JSON 字符串，即对 {"text":"..."} 再序列化一次
	contentJSON, err := json.Marshal(map[string]string{"text": body})
	if err != nil {
		return fmt.Errorf("feishu: marshal content: %w", err)
	}
	return f.postMessage(ctx, token, receiveIDType, receiveID, "text", string(contentJSON))
}

func (f *FeishuNotifier) postMessage(ctx context.Context, token, receiveIDType, receiveID, msgType, content string) error {
	reqBody := map[string]interface{}{
		"receive_id": receiveID,
		"msg_type":   msgType,
		"content":    content,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	url := f.apiBase + "/open-apis/im/v1/messages?receive_id_type=" + receiveIDType
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	bodyBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feishu message api HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	_ = json.Unmarshal(bodyBytes, &result)
	if result.Code != 0 {
		return fmt.Errorf("feishu API code=%d msg=%s", result.Code, result.Msg)
	}
	return nil
}

func (f *FeishuNotifier) getToken(ctx context.Context) (string, error) {
	f.mu.RLock()
	if f.token != "" && time.Now().Before(f.expiry) {
		t := f.token
		f.mu.RUnlock()
		return t, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.token != "" && time.Now().Before(f.expiry) {
		return f.token, nil
	}
	payload, err := json.Marshal(map[string]string{"app_id": f.cfg.AppID, "app_secret": f.cfg.AppSecret})
	if err != nil {
		return "", err
	}
	url := f.apiBase + "/open-apis/auth/v3/tenant_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	bodyBytes, _ := io.ReadAll(resp.Body)
	var res struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := json.Unmarshal(bodyBytes, &res); err != nil {
		return "", err
	}
	if res.Code != 0 {
		return "", fmt.Errorf("feishu token: code=%d msg=%s", res.Code, res.Msg)
	}
	f.token = res.TenantAccessToken
	f.expiry = time.Now().Add(time.Duration(res.Expire-60) * time.Second)
	return f.token, nil
}

var _ Notifier = (*FeishuNotifier)(nil)
