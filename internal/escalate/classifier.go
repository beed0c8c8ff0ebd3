package escalate

import (
	"context"
	"fmt"
	"strings"

	"baize/internal/models"
)

// Classifier 变更分类契约：确定性路径与远端 AI 路径的共同接口。
type Classifier interface {
	Classify(ctx context.Context, change *models.Change) (*Decision, error)
}

// Enricher 为单条目载荷补充主机名解析证据；nil 表示不补充。
type Enricher interface {
	Enrich(ctx context.Context, item *models.PersistenceItem) []HostEvidence
}

// DefaultFallbackRelevance AI 路径失败时回退到确定性路径采用的固定相关度。
const DefaultFallbackRelevance = 60

// RelevanceClassifier 确定性分类器：基于变更类型与条目风险画像的相关度打分。
type RelevanceClassifier struct {
	// MinScore 通知阈值；Relevance ≥ MinScore 时 Notify 为 true。
	MinScore int
}

// Score 计算一个变更的相关度（0–100），不涉及任何外部调用。
func Score(change *models.Change) int {
	score := 0
	switch change.Type {
	case models.ChangeAdded:
		score = 40
	case models.ChangeModified:
		score = 30
	case models.ChangeRemoved:
		score = 15
	}
	item := &change.Item
	if item.Analysis != nil {
		score += item.Analysis.RiskScore / 2
		if item.Analysis.RiskTier == models.SeverityCritical {
			score += 10
		}
	}
	switch item.Trust.Level() {
	case "unsigned", "invalid-signature":
		score += 15
	case "ad-hoc":
		score += 10
	}
	if item.Launch.RunAtLoad && item.Launch.KeepAlive {
		score += 5
	}
	// 信任档位的变化本身就值得关注
	for _, fc := range change.FieldChanges {
		if strings.HasPrefix(fc, "trust level") {
			score += 15
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Classify 确定性分类：相关度达到阈值即通知。
func (r *RelevanceClassifier) Classify(ctx context.Context, change *models.Change) (*Decision, error) {
	score := Score(change)
	sev := "low"
	if item := &change.Item; item.Analysis != nil {
		sev = string(item.Analysis.RiskTier)
	}
	return &Decision{
		Notify:      score >= r.MinScore,
		Relevance:   score,
		Severity:    sev,
		Title:       fmt.Sprintf("%s: %s", change.Type, change.Item.Name),
		Explanation: fmt.Sprintf("relevance %d against threshold %d", score, r.MinScore),
		Source:      "relevance",
	}, nil
}

// AIClassifier 远端推理分类器：构建单条目详细载荷并请求裁决。
// 调用失败原样返回错误，由 monitor 回退到确定性路径。
type AIClassifier struct {
	Client   *Client
	Enricher Enricher
}

// Classify 走远端推理路径。
func (a *AIClassifier) Classify(ctx context.Context, change *models.Change) (*Decision, error) {
	var hosts []HostEvidence
	if a.Enricher != nil {
		hosts = a.Enricher.Enrich(ctx, &change.Item)
	}
	verdict, err := a.Client.AnalyzeItem(ctx, BuildItemAnalysis(change, hosts))
	if err != nil {
		return nil, err
	}
	return &Decision{
		Notify:          verdict.ShouldNotify,
		Relevance:       Score(change),
		Severity:        verdict.Severity,
		Title:           verdict.Title,
		Explanation:     verdict.Explanation,
		Recommendation:  verdict.Recommendation,
		MITRETechniques: verdict.MITRETechniques,
		Source:          "ai",
	}, nil
}

var (
	_ Classifier = (*RelevanceClassifier)(nil)
	_ Classifier = (*AIClassifier)(nil)
)
