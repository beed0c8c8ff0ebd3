// Package escalate 实现变更升级：确定性相关度路径与远端推理（AI）路径
// 是同一分类契约的两个实现，由配置选择。
package escalate

import (
	"time"

	"baize/internal/models"
)

// Decision 单个变更的分类结论（两条路径共用）。
type Decision struct {
	Notify          bool     `json:"notify"`
	Relevance       int      `json:"relevance"`
	Severity        string   `json:"severity"`
	Title           string   `json:"title"`
	Explanation     string   `json:"explanation"`
	Recommendation  string   `json:"recommendation,omitempty"`
	MITRETechniques []string `json:"mitre_techniques,omitempty"`
	Source          string   `json:"source"` // relevance / ai
}

// HostEvidence 升级载荷附带的主机名解析证据（enrich 包填充）。
type HostEvidence struct {
	Host      string   `json:"host"`
	Resolved  bool     `json:"resolved"`
	Addresses []string `json:"addresses,omitempty"`
}

// ItemAnalysis 单条目详细分析载荷：一个条目的完整结构化画像 + 变更类型。
// 序列化后作为用户消息发给远端推理服务；往返重建时保留全部已填充的可选字段。
type ItemAnalysis struct {
	ChangeType   models.ChangeType `json:"changeType"`
	FieldChanges []string          `json:"fieldChanges,omitempty"`

	Identifier     string          `json:"identifier"`
	Name           string          `json:"name"`
	Category       models.Category `json:"category"`
	PlistPath      string          `json:"plistPath,omitempty"`
	ExecutablePath string          `json:"executablePath,omitempty"`

	RunAtLoad     bool     `json:"runAtLoad"`
	KeepAlive     bool     `json:"keepAlive"`
	StartInterval int      `json:"startInterval,omitempty"`
	Arguments     []string `json:"arguments,omitempty"`

	TrustLevel   string   `json:"trustLevel"`
	Notarized    bool     `json:"notarized"`
	Entitlements []string `json:"entitlements,omitempty"`

	RiskScore        int              `json:"riskScore,omitempty"`
	RiskFactors      []string         `json:"riskFactors,omitempty"`
	LOLBinFindings   []models.Finding `json:"lolbinFindings,omitempty"`
	BehaviorFindings []models.Finding `json:"behaviorFindings,omitempty"`
	IntentFindings   []models.Finding `json:"intentFindings,omitempty"`
	AgeFindings      []models.Finding `json:"ageFindings,omitempty"`

	HostEvidence []HostEvidence `json:"hostEvidence,omitempty"`
}

// ItemVerdict 单条目路径的远端响应模式。
type ItemVerdict struct {
	ShouldNotify    bool     `json:"shouldNotify"`
	Severity        string   `json:"severity"`
	Title           string   `json:"title"` // ≤50 字符
	Explanation     string   `json:"explanation"`
	Recommendation  string   `json:"recommendation,omitempty"`
	MITRETechniques []string `json:"mitreTechniques,omitempty"`
}

// DiffAnalysis 周期性全量差异载荷。
type DiffAnalysis struct {
	Timestamp  time.Time `json:"timestamp"`
	TotalItems int       `json:"totalItems"`
	Added      []string  `json:"added,omitempty"`    // "name (category, risk N)" 摘要行
	Removed    []string  `json:"removed,omitempty"`
	Modified   []string  `json:"modified,omitempty"` // "name: field a → b"
}

// DiffFinding 差异分析响应中的单条发现。
type DiffFinding struct {
	Severity        string   `json:"severity"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	AffectedItems   []string `json:"affectedItems"`
	MITRETechniques []string `json:"mitreTechniques,omitempty"`
}

// DiffVerdict 周期差异路径的远端响应模式。
type DiffVerdict struct {
	Severity        string        `json:"severity"` // info/low/medium/high/critical
	Summary         string        `json:"summary"`
	Findings        []DiffFinding `json:"findings,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
}

// severityRank 响应枚举的排序（info 最低）。
func severityRank(s string) int {
	switch s {
	case "critical":
		return 5
	case "high":
		return 4
	case "medium":
		return 3
	case "low":
		return 2
	case "info":
		return 1
	default:
		return 0
	}
}

// BuildItemAnalysis 从变更事件构建单条目分析载荷。
func BuildItemAnalysis(change *models.Change, hosts []HostEvidence) *ItemAnalysis {
	item := &change.Item
	a := &ItemAnalysis{
		ChangeType:     change.Type,
		FieldChanges:   change.FieldChanges,
		Identifier:     item.Identifier,
		Name:           item.Name,
		Category:       item.Category,
		PlistPath:      item.PlistPath,
		ExecutablePath: item.ExecutablePath,
		RunAtLoad:      item.Launch.RunAtLoad,
		KeepAlive:      item.Launch.KeepAlive,
		StartInterval:  item.Launch.StartInterval,
		Arguments:      item.Launch.Arguments,
		TrustLevel:     item.Trust.Level(),
		Notarized:      item.Trust.Notarized,
		Entitlements:   item.Entitlements,
		HostEvidence:   hosts,
	}
	if item.Analysis != nil {
		a.RiskScore = item.Analysis.RiskScore
		a.RiskFactors = item.Analysis.RiskFactors
		a.LOLBinFindings = item.Analysis.LOLBinFindings
		a.BehaviorFindings = item.Analysis.BehaviorFindings
		a.IntentFindings = item.Analysis.IntentFindings
		a.AgeFindings = item.Analysis.AgeFindings
	}
	return a
}
