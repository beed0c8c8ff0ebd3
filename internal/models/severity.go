package models

// Severity 表示单条发现的严重程度，四档固定排序：critical > high > medium > low。
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Points 返回该严重程度对应的固定风险分值（low=5 medium=10 high=15 critical=20）。
// 个别分析器可对特定发现覆盖此映射（见 age 分析器）。
func (s Severity) Points() int {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 10
	default:
		return 5
	}
}

// Rank 返回可比较的序值，用于取最大严重程度。
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// MaxSeverity 返回一组发现中的最大严重程度；空列表返回 low。
func MaxSeverity(findings []Finding) Severity {
	max := SeverityLow
	for _, f := range findings {
		if f.Severity.Rank() > max.Rank() {
			max = f.Severity
		}
	}
	return max
}

// SumPoints 返回一组发现的风险分值之和。
func SumPoints(findings []Finding) int {
	total := 0
	for _, f := range findings {
		total += f.RiskPoints
	}
	return total
}
