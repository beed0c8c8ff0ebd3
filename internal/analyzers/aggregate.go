package analyzers

import (
	"time"

	"baize/internal/models"
)

// 风险档位分界（策略常量）：low <30，medium <60，high <80，critical ≥80。
const (
	tierMediumFloor   = 30
	tierHighFloor     = 60
	tierCriticalFloor = 80
)

// Tier 把 0–100 的风险分映射到固定档位。
func Tier(score int) models.Severity {
	switch {
	case score >= tierCriticalFloor:
		return models.SeverityCritical
	case score >= tierHighFloor:
		return models.SeverityHigh
	case score >= tierMediumFloor:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Analyze 依次运行四个分析器并聚合为单一 0–100 风险分与档位，写入条目的分析快照。
// 任一分析器无数据时按零贡献处理；部分输入缺失绝不报错。
func Analyze(item *models.PersistenceItem, now time.Time) *models.AnalysisResult {
	lolbin := AnalyzeLOLBin(item)
	behavior := AnalyzeBehavior(item)
	intent := AnalyzeIntent(item)
	age := AnalyzeAge(item, now)

	score := 0
	var factors []string
	base := func(points int, factor string) {
		score += points
		factors = append(factors, factor)
	}

	// 基础信号：签名/位置/激进自启
	switch {
	case !item.Trust.Signed:
		base(25, "未签名")
	case !item.Trust.SignatureValid:
		base(30, "签名无效")
	case item.Trust.AdHoc:
		base(15, "ad-hoc 签名")
	}
	if item.Trust.Signed && !item.Trust.AppleSigned && !item.Trust.HardenedRuntime {
		base(10, "缺少 hardened runtime")
	}
	if !item.Trust.AppleSigned && !item.Trust.Notarized {
		base(10, "未公证")
	}
	if suspiciousLocation(item.ExecutablePath) != "" {
		base(15, "可疑路径")
	}
	if item.Launch.RunAtLoad && item.Launch.KeepAlive {
		base(10, "激进自启配置")
	}

	// 分析器贡献
	if lolbin.Points > 0 {
		base(lolbin.Points, "LOLBin 使用")
	}
	if p := models.SumPoints(behavior.Findings); p > 0 {
		base(p, "行为异常")
	}
	if p := models.SumPoints(intent.Findings); p > 0 {
		base(p, "意图错配")
	}
	if age.Points > 0 {
		base(age.Points, "时间戳异常")
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return &models.AnalysisResult{
		RiskScore:        score,
		RiskTier:         Tier(score),
		RiskFactors:      factors,
		LOLBinFindings:   lolbin.Findings,
		LOLBinPoints:     lolbin.Points,
		BehaviorFindings: behavior.Findings,
		BehaviorSeverity: behavior.Severity,
		IntentFindings:   intent.Findings,
		IntentSeverity:   intent.Severity,
		AgeFindings:      age.Findings,
		AgeSeverity:      age.Severity,
		AgePoints:        age.Points,
	}
}
