package analyzers

import (
	"fmt"
	"time"

	"baize/internal/models"
)

// 时间窗常量；各检查独立使用，互不抑制。
const (
	recentBinaryWindow = 7 * 24 * time.Hour  // 近期修改窗口
	stalePlistWindow   = 30 * 24 * time.Hour // plist 陈旧窗口
	creationGapWindow  = 90 * 24 * time.Hour // 创建时间漂移阈值
	notarizeWindow     = 7 * 24 * time.Hour  // 公证后修改窗口
)

// oldPlistNewBinaryPoints "旧 plist、新二进制" 的覆盖分值（高于 critical 默认 20 分）。
const oldPlistNewBinaryPoints = 25

var updaterTokens = []string{"update", "updater", "autoupdate", "sparkle", "softwareupdate"}

// AgeResult 时间戳异常分析结果：severity 取最大，分值求和。
type AgeResult struct {
	Findings []models.Finding
	Severity models.Severity
	Points   int
}

// AnalyzeAge 基于四个可选时间戳（plist/二进制的创建与修改）加 now 做六项独立检查。
// 缺失的时间戳只会抑制对应检查，不会报错。
func AnalyzeAge(item *models.PersistenceItem, now time.Time) AgeResult {
	var findings []models.Finding
	add := func(typ, title, desc string, sev models.Severity, points int, evidence map[string]string) {
		findings = append(findings, models.Finding{
			Type:        typ,
			Title:       title,
			Description: desc,
			Severity:    sev,
			RiskPoints:  points,
			Evidence:    evidence,
		})
	}

	days := func(d time.Duration) int { return int(d.Hours() / 24) }

	// 1. 旧 plist、新二进制：经典装后替换
	if item.PlistCreated != nil && item.BinaryCreated != nil {
		plistAge := now.Sub(*item.PlistCreated)
		binaryAge := now.Sub(*item.BinaryCreated)
		if plistAge > stalePlistWindow && binaryAge < recentBinaryWindow {
			add("old_plist_new_binary", "Old Plist, New Binary",
				"plist 早已存在而二进制是新换上的，符合安装后替换载荷的模式",
				models.SeverityCritical, oldPlistNewBinaryPoints,
				map[string]string{
					"plistAge":       fmt.Sprintf("%d days", days(plistAge)),
					"binaryAge":      fmt.Sprintf("%d days", days(binaryAge)),
					"timeDifference": fmt.Sprintf("%d days difference", days(plistAge)-days(binaryAge)),
				})
		}
	}

	// 2. 静默二进制替换：二进制刚改过而 plist 修改时间陈旧
	if item.BinaryModified != nil && item.PlistModified != nil {
		if now.Sub(*item.BinaryModified) < recentBinaryWindow && now.Sub(*item.PlistModified) > stalePlistWindow {
			add("silent_binary_swap", "Silent Binary Swap",
				"二进制近期被修改而 plist 纹丝未动",
				models.SeverityCritical, models.SeverityCritical.Points(),
				map[string]string{"binaryModified": item.BinaryModified.Format(time.RFC3339)})
		}
	}

	// 3. 创建时间漂移超过 90 天（一般性漂移，不必然恶意）
	if item.PlistCreated != nil && item.BinaryCreated != nil {
		gap := item.PlistCreated.Sub(*item.BinaryCreated)
		if gap < 0 {
			gap = -gap
		}
		if gap > creationGapWindow {
			add("age_mismatch", "Significant Age Mismatch",
				"plist 与二进制的创建时间相差过大",
				models.SeverityMedium, models.SeverityMedium.Points(),
				map[string]string{"gap": fmt.Sprintf("%d days", days(gap))})
		}
	}

	// 4. 时间戳操纵：修改时间早于自身创建时间（不可能的顺序）
	if item.BinaryModified != nil && item.BinaryCreated != nil && item.BinaryModified.Before(*item.BinaryCreated) {
		add("timestamp_manipulation", "Timestamp Manipulation",
			"二进制修改时间早于创建时间，时间戳被人为改动",
			models.SeverityCritical, models.SeverityCritical.Points(),
			map[string]string{
				"created":  item.BinaryCreated.Format(time.RFC3339),
				"modified": item.BinaryModified.Format(time.RFC3339),
			})
	}

	// 5. 近 7 天内的修改落在凌晨 2–5 点
	if item.BinaryModified != nil && now.Sub(*item.BinaryModified) < recentBinaryWindow {
		hour := item.BinaryModified.Local().Hour()
		if hour >= 2 && hour <= 5 {
			add("odd_hour_modification", "Suspicious Modification Time",
				fmt.Sprintf("二进制在凌晨 %d 点被修改", hour),
				models.SeverityMedium, models.SeverityMedium.Points(),
				map[string]string{"hour": fmt.Sprintf("%d", hour)})
		}
	}

	// 6. 安装后修改：二进制在 plist 创建的公证窗口之后被改，且命名不似更新器
	if item.BinaryModified != nil && item.PlistCreated != nil {
		if item.BinaryModified.Sub(*item.PlistCreated) > notarizeWindow && !nameContainsAny(item.Name, updaterTokens) {
			add("post_install_modification", "Binary Modified Post-Install",
				"二进制在安装完成许久之后被修改，且该项命名不似更新器",
				models.SeverityHigh, models.SeverityHigh.Points(),
				map[string]string{"modified": item.BinaryModified.Format(time.RFC3339)})
		}
	}

	return AgeResult{
		Findings: findings,
		Severity: models.MaxSeverity(findings),
		Points:   models.SumPoints(findings),
	}
}
