package escalate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"baize/internal/config"
	"baize/internal/models"
)

func testClient(url string) *Client {
	return NewClient(config.AIConfig{
		BaseURL:        url,
		APIKey:         "sk-test",
		Model:          "claude-sonnet-4-20250514",
		MaxTokens:      2048,
		TimeoutSeconds: 5,
	})
}

func textResponse(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	resp := map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestClient_WireFormat(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	var gotReq wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		textResponse(t, w, `{"shouldNotify":true,"severity":"high","title":"New unsigned daemon","explanation":"e"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	payload := &ItemAnalysis{Identifier: "com.test.agent", Name: "agent", ChangeType: models.ChangeAdded}
	verdict, err := client.AnalyzeItem(context.Background(), payload)
	if err != nil {
		t.Fatalf("AnalyzeItem: %v", err)
	}
	if gotPath != "/v1/messages" {
		t.Errorf("path = %q, want /v1/messages", gotPath)
	}
	if gotKey != "sk-test" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != apiVersion {
		t.Errorf("anthropic-version = %q, want %q", gotVersion, apiVersion)
	}
	if gotReq.Model != "claude-sonnet-4-20250514" || gotReq.MaxTokens != 2048 {
		t.Errorf("request envelope: %+v", gotReq)
	}
	if gotReq.System != itemSystemPrompt {
		t.Errorf("system prompt mismatch")
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", gotReq.Messages)
	}
	// 用户消息内容必须是载荷的 JSON 序列化
	var echoed ItemAnalysis
	if err := json.Unmarshal([]byte(gotReq.Messages[0].Content), &echoed); err != nil {
		t.Fatalf("user message is not payload JSON: %v", err)
	}
	if echoed.Identifier != "com.test.agent" {
		t.Errorf("echoed identifier = %q", echoed.Identifier)
	}
	if !verdict.ShouldNotify || verdict.Title != "New unsigned daemon" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestClient_FencedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		textResponse(t, w, "Based on the diff:\n```json\n{\"severity\":\"high\",\"summary\":\"silent binary swap\"}\n```")
	}))
	defer server.Close()

	verdict, err := testClient(server.URL).AnalyzeDiff(context.Background(), &DiffAnalysis{})
	if err != nil {
		t.Fatalf("AnalyzeDiff: %v", err)
	}
	if verdict.Severity != "high" || verdict.Summary != "silent binary swap" {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusUnauthorized, ErrInvalidKey},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := testClient(server.URL).AnalyzeDiff(context.Background(), &DiffAnalysis{})
		server.Close()
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.wantErr)
		}
	}
}

func TestClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).AnalyzeDiff(context.Background(), &DiffAnalysis{})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrRateLimited) {
		t.Fatalf("500 misclassified: %v", err)
	}
}

func TestClient_SkipsNonTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"content": []map[string]string{
				{"type": "thinking", "text": "ignore me"},
				{"type": "text", "text": `{"severity":"info","summary":"nothing"}`},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	verdict, err := testClient(server.URL).AnalyzeDiff(context.Background(), &DiffAnalysis{})
	if err != nil {
		t.Fatalf("AnalyzeDiff: %v", err)
	}
	if verdict.Summary != "nothing" {
		t.Errorf("summary = %q", verdict.Summary)
	}
}

// 单条目载荷序列化再重建后必须保留所有已填充的可选字段。
func TestItemAnalysis_RoundTrip(t *testing.T) {
	interval := 30
	change := &models.Change{
		Type:         models.ChangeModified,
		Category:     models.CategoryLaunchDaemon,
		FieldChanges: []string{"trust level: signed → unsigned"},
		Item: models.PersistenceItem{
			Identifier:     "com.acme.updater",
			Name:           "updater",
			Category:       models.CategoryLaunchDaemon,
			PlistPath:      "/Library/LaunchDaemons/com.acme.updater.plist",
			ExecutablePath: "/usr/local/bin/acme-updater",
			Launch: models.LaunchConfig{
				RunAtLoad:     true,
				KeepAlive:     true,
				StartInterval: interval,
				Arguments:     []string{"--daemon", "--url", "https://cdn.acme.example"},
			},
			Trust:        models.TrustInfo{Signed: true, SignatureValid: true},
			Entitlements: []string{"com.apple.security.network.client"},
			Analysis: &models.AnalysisResult{
				RiskScore:   72,
				RiskTier:    models.SeverityHigh,
				RiskFactors: []string{"unsigned executable"},
				BehaviorFindings: []models.Finding{{
					Type:     "network_activity",
					Title:    "Network Activity Indicators",
					Severity: models.SeverityMedium,
					Evidence: map[string]string{"token": "url"},
				}},
			},
		},
	}
	hosts := []HostEvidence{{Host: "cdn.acme.example", Resolved: true, Addresses: []string{"93.184.216.34"}}}

	built := BuildItemAnalysis(change, hosts)
	data, err := json.Marshal(built)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var rebuilt ItemAnalysis
	if err := json.Unmarshal(data, &rebuilt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(built, &rebuilt) {
		t.Fatalf("round trip lost fields:\nbuilt:   %+v\nrebuilt: %+v", built, rebuilt)
	}
	if rebuilt.StartInterval != interval || len(rebuilt.HostEvidence) != 1 {
		t.Errorf("optional fields dropped: %+v", rebuilt)
	}
	if rebuilt.RiskScore != 72 || len(rebuilt.BehaviorFindings) != 1 {
		t.Errorf("analysis fields dropped: %+v", rebuilt)
	}
}

func TestPeriodicLoop_BuildDiffAnalysis(t *testing.T) {
	current := []models.PersistenceItem{
		{Identifier: "a", Name: "a", Category: models.CategoryLaunchAgent},
		{Identifier: "b", Name: "b", Category: models.CategoryLaunchAgent},
	}
	result := &models.DiffResult{
		Added: []models.PersistenceItem{{Name: "evil", Category: models.CategoryLaunchDaemon, Analysis: &models.AnalysisResult{RiskScore: 88}}},
		Modified: []models.ModifiedItem{{
			Identifier: "b",
			Item:       current[1],
			Changes:    []string{"executable: /old → /new"},
		}},
	}
	payload := buildDiffAnalysis(current, result)
	if payload.TotalItems != 2 {
		t.Errorf("TotalItems = %d", payload.TotalItems)
	}
	if len(payload.Added) != 1 || payload.Added[0] != "evil (launch_daemon, trust unsigned, risk 88)" {
		t.Errorf("Added = %v", payload.Added)
	}
	if len(payload.Modified) != 1 || payload.Modified[0] != "b: executable: /old → /new" {
		t.Errorf("Modified = %v", payload.Modified)
	}
}
