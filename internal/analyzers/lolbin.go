// Package analyzers 实现四个相互独立的启发式分析器与风险聚合器。
// 所有分析器都是条目的纯函数：同一条目分析两次结果完全一致，缺失的可选字段只会抑制发现，不会出错。
package analyzers

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"baize/internal/models"
)

// LOLBinCategory 已知双用途系统二进制的分类。
type LOLBinCategory string

const (
	LOLBinScripting  LOLBinCategory = "scripting"
	LOLBinNetwork    LOLBinCategory = "network"
	LOLBinCredential LOLBinCategory = "credential"
	LOLBinPersist    LOLBinCategory = "persistence"
	LOLBinEncoding   LOLBinCategory = "encoding"
)

// lolbinEntry 静态表项：二进制名 → 分类、基础严重程度、说明、技术编号。
type lolbinEntry struct {
	Category    LOLBinCategory
	Severity    models.Severity
	Description string
	Technique   string
}

// lolbinTable 已知双用途系统二进制静态表。
var lolbinTable = map[string]lolbinEntry{
	"osascript":  {LOLBinScripting, models.SeverityHigh, "AppleScript 解释器，可执行任意脚本", "T1059.002"},
	"bash":       {LOLBinScripting, models.SeverityMedium, "Shell 解释器", "T1059.004"},
	"sh":         {LOLBinScripting, models.SeverityMedium, "Shell 解释器", "T1059.004"},
	"zsh":        {LOLBinScripting, models.SeverityMedium, "Shell 解释器", "T1059.004"},
	"python":     {LOLBinScripting, models.SeverityMedium, "Python 解释器", "T1059.006"},
	"python3":    {LOLBinScripting, models.SeverityMedium, "Python 解释器", "T1059.006"},
	"ruby":       {LOLBinScripting, models.SeverityMedium, "Ruby 解释器", "T1059"},
	"perl":       {LOLBinScripting, models.SeverityMedium, "Perl 解释器", "T1059"},
	"curl":       {LOLBinNetwork, models.SeverityMedium, "网络传输工具，可下载任意载荷", "T1105"},
	"wget":       {LOLBinNetwork, models.SeverityMedium, "网络传输工具", "T1105"},
	"nc":         {LOLBinNetwork, models.SeverityHigh, "任意 TCP/UDP 连接", "T1095"},
	"openssl":    {LOLBinNetwork, models.SeverityMedium, "可建立加密连接并传输数据", "T1573"},
	"security":   {LOLBinCredential, models.SeverityHigh, "钥匙串命令行工具，可导出凭据", "T1555.001"},
	"dscl":       {LOLBinCredential, models.SeverityHigh, "目录服务工具，可枚举与修改账户", "T1087.001"},
	"sqlite3":    {LOLBinCredential, models.SeverityMedium, "可读取浏览器 Cookie 等本地数据库", "T1539"},
	"launchctl":  {LOLBinPersist, models.SeverityMedium, "launchd 管理工具，可装载持久化项", "T1543.001"},
	"crontab":    {LOLBinPersist, models.SeverityMedium, "定时任务管理", "T1053.003"},
	"defaults":   {LOLBinPersist, models.SeverityLow, "偏好设置写入，可配置登录项", "T1547"},
	"base64":     {LOLBinEncoding, models.SeverityMedium, "编解码工具，常用于载荷混淆", "T1027"},
	"xxd":        {LOLBinEncoding, models.SeverityLow, "十六进制转换工具", "T1027"},
	"plutil":     {LOLBinEncoding, models.SeverityLow, "plist 转换工具", "T1647"},
}

// lolbinNames 表键的固定扫描顺序。
var lolbinNames = func() []string {
	names := make([]string, 0, len(lolbinTable))
	for name := range lolbinTable {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// comboRule LOLBin 组合升级规则。表按固定顺序自上而下求值，
// 同一发现可命中多条规则，后命中者覆盖先命中者的严重程度与理由（last match wins，与原始行为一致）。
type comboRule struct {
	Match    func(entry lolbinEntry, launch models.LaunchConfig) bool
	Severity models.Severity
	Reason   string
}

var comboRules = []comboRule{
	{
		Match: func(e lolbinEntry, l models.LaunchConfig) bool {
			return e.Category == LOLBinEncoding && (l.RunAtLoad || l.KeepAlive)
		},
		Severity: models.SeverityHigh,
		Reason:   "encoding tool with auto-start",
	},
	{
		Match: func(e lolbinEntry, l models.LaunchConfig) bool {
			return e.Category == LOLBinScripting && (l.RunAtLoad || l.KeepAlive)
		},
		Severity: models.SeverityCritical,
		Reason:   "script interpreter with auto-start",
	},
	{
		Match: func(e lolbinEntry, l models.LaunchConfig) bool {
			return e.Category == LOLBinNetwork && l.RunAtLoad
		},
		Severity: models.SeverityCritical,
		Reason:   "download & execute pattern",
	},
	{
		Match: func(e lolbinEntry, l models.LaunchConfig) bool {
			return e.Category == LOLBinCredential && (l.RunAtLoad || l.KeepAlive || l.StartInterval > 0)
		},
		Severity: models.SeverityCritical,
		Reason:   "credential access at persistence",
	},
}

// LOLBinResult LOLBin 检测结果：发现列表 + 分值合计。
type LOLBinResult struct {
	Findings []models.Finding
	Points   int
}

// AnalyzeLOLBin 检测条目对已知双用途系统二进制的使用。
// 依次检查可执行文件名本身、每个参数的最后路径分量，以及参数全文中的内联调用
// （如 bash -c "curl ..."）；按二进制名去重后应用组合升级规则。
func AnalyzeLOLBin(item *models.PersistenceItem) LOLBinResult {
	matched := map[string]lolbinEntry{}
	order := []string{}
	record := func(name string) {
		entry, ok := lolbinTable[name]
		if !ok {
			return
		}
		if _, dup := matched[name]; dup {
			return
		}
		matched[name] = entry
		order = append(order, name)
	}

	if name := item.ExecutableName(); name != "" {
		record(name)
	}
	argText := strings.Join(item.Launch.Arguments, " ")
	for _, arg := range item.Launch.Arguments {
		record(path.Base(arg))
	}
	// 内联调用：参数全文里按词边界匹配每个已知二进制名；按固定顺序扫描保证结果可复现
	for _, name := range lolbinNames {
		if containsToken(argText, name) {
			record(name)
		}
	}

	var result LOLBinResult
	for _, name := range order {
		entry := matched[name]
		severity := entry.Severity
		reason := ""
		for _, rule := range comboRules {
			if rule.Match(entry, item.Launch) {
				severity = rule.Severity
				reason = rule.Reason
			}
		}
		desc := entry.Description
		if reason != "" {
			desc = fmt.Sprintf("%s（%s）", entry.Description, reason)
		}
		f := models.Finding{
			Type:        "lolbin_" + string(entry.Category),
			Title:       fmt.Sprintf("LOLBin: %s", name),
			Description: desc,
			Severity:    severity,
			RiskPoints:  severity.Points(),
			Technique:   entry.Technique,
			Evidence:    map[string]string{"binary": name},
		}
		if reason != "" {
			f.Evidence["escalation"] = reason
		}
		result.Findings = append(result.Findings, f)
		result.Points += f.RiskPoints
	}
	return result
}

// containsToken 返回 text 中是否以独立词形式出现 name（前后均非字母数字）。
func containsToken(text, name string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], name)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(name)
		leftOK := idx == 0 || !isWordByte(text[idx-1])
		rightOK := end == len(text) || !isWordByte(text[end])
		if leftOK && rightOK {
			return true
		}
		start = idx + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}
