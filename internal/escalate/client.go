package escalate

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

	"baize/internal/config"
)

// 远端推理服务错误分类。
var (
	ErrInvalidKey  = errors.New("escalate: invalid api key")
	ErrRateLimited = errors.New("escalate: rate limited")
)

const apiVersion = "2023-06-01"

// diffSystemPrompt 周期性差异分析的固定系统提示。
const diffSystemPrompt = `You are a macOS security analyst reviewing changes to persistence mechanisms
(LaunchDaemons, LaunchAgents, login items, cron jobs and similar auto-start entries).
Given a JSON diff of the tracked set, assess whether the changes look benign (app installs,
updates) or suspicious (masquerading, unsigned binaries, LOLBin abuse, silent swaps).
Respond with a single JSON object: {"severity":"info|low|medium|high|critical",
"summary":string,"findings":[{"severity":string,"title":string,"description":string,
"affectedItems":[string],"mitreTechniques":[string]}],"recommendations":[string]}.
Respond with JSON only.`

// itemSystemPrompt 单条目详细分析的固定系统提示。
const itemSystemPrompt = `You are a macOS security analyst. You receive the complete structured profile of
one persistence item (signature state, entitlement-derived capabilities, LOLBin /
behavioral / intent-mismatch / timestamp findings) together with how it just changed.
Decide whether the user should be alerted. Respond with a single JSON object:
{"shouldNotify":bool,"severity":"info|low|medium|high|critical","title":string (max 50 chars),
"explanation":string,"recommendation":string,"mitreTechniques":[string]}.
Respond with JSON only.`

// Client 远端推理服务客户端（messages 风格线协议）。
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	http      *http.Client
}

// NewClient 根据 AI 配置创建客户端；出站调用带超时，避免阻塞去抖周期。
func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		http:      &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// wireRequest 请求信封：{model, max_tokens, system, messages:[{role,content}]}。
type wireRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system"`
	Messages  []wireMessage `json:"messages"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wireResponse 响应信封：{content:[{type,text}]}。
type wireResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// complete 发送一次请求，返回首个 type=="text" 内容块的文本。
func (c *Client) complete(ctx context.Context, system string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("escalate: marshal payload: %w", err)
	}
	req := wireRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []wireMessage{{Role: "user", Content: string(body)}},
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("escalate: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("escalate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("escalate: request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("escalate: read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return "", ErrInvalidKey
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("escalate: api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	var envelope wireResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return "", fmt.Errorf("escalate: decode envelope: %w", err)
	}
	for _, block := range envelope.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("escalate: no text block in response")
}

// AnalyzeDiff 发送周期性差异载荷并解析结构化裁决。
func (c *Client) AnalyzeDiff(ctx context.Context, payload *DiffAnalysis) (*DiffVerdict, error) {
	text, err := c.complete(ctx, diffSystemPrompt, payload)
	if err != nil {
		return nil, err
	}
	var verdict DiffVerdict
	if err := decodeStructured(text, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// AnalyzeItem 发送单条目详细载荷并解析结构化裁决。
func (c *Client) AnalyzeItem(ctx context.Context, payload *ItemAnalysis) (*ItemVerdict, error) {
	text, err := c.complete(ctx, itemSystemPrompt, payload)
	if err != nil {
		return nil, err
	}
	var verdict ItemVerdict
	if err := decodeStructured(text, &verdict); err != nil {
		return nil, err
	}
	return &verdict, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
