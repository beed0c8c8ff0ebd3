package analyzers

import (
	"fmt"
	"strings"

	"baize/internal/models"
)

// plistProfile plist 声明意图画像：复杂度、被动性、看门狗性、后台命名等维度。
type plistProfile struct {
	Simple         bool // 参数数量 ≤ 2
	Passive        bool // 非 RunAtLoad 且非 KeepAlive
	Watchdog       bool // KeepAlive 或 StartInterval < 300s
	BackgroundName bool
	NetworkArgs    bool
	ScriptArgs     bool
	Complexity     int // 0..10
}

var (
	backgroundNameTokens = []string{"helper", "agent", "daemon", "service", "sync", "update", "background", "task"}
	keychainNameTokens   = []string{"keychain", "password", "credential", "vault", "secret"}
	scriptArgTokens      = []string{"bash", "sh ", "python", "osascript", "ruby", "perl", "-c ", "eval"}
)

// buildPlistProfile 从启动配置构建声明意图画像；复杂度截断到 [0,10]。
func buildPlistProfile(item *models.PersistenceItem) plistProfile {
	args := item.Launch.Arguments
	argText := strings.ToLower(strings.Join(args, " "))
	p := plistProfile{
		Simple:         len(args) <= 2,
		Passive:        !item.Launch.RunAtLoad && !item.Launch.KeepAlive,
		Watchdog:       item.Launch.KeepAlive || (item.Launch.StartInterval > 0 && item.Launch.StartInterval < 300),
		BackgroundName: nameContainsAny(item.Name, backgroundNameTokens),
		NetworkArgs:    nameContainsAny(argText, networkTokens),
		ScriptArgs:     nameContainsAny(argText, scriptArgTokens),
	}
	complexity := 0
	if len(args) > 3 {
		complexity += 2
	}
	if p.NetworkArgs {
		complexity += 2
	}
	if p.ScriptArgs {
		complexity += 2
	}
	complexity += len(item.Launch.Environment)
	if complexity > 10 {
		complexity = 10
	}
	p.Complexity = complexity
	return p
}

// IntentResult 意图错配分析结果。
type IntentResult struct {
	Findings []models.Finding
	Severity models.Severity
}

// AnalyzeIntent 对比 plist 声明意图与二进制能力现实，检查四种错配模式。
// 条目完全没有 entitlement 数据时不产生任何发现（宁缺毋滥，不制造误报）。
func AnalyzeIntent(item *models.PersistenceItem) IntentResult {
	caps := item.Capabilities
	if caps.Empty() {
		return IntentResult{Severity: models.SeverityLow}
	}
	plist := buildPlistProfile(item)
	dangerous := caps.Has(models.CapDangerous)
	tcc := caps.Has(models.CapTCC)

	var findings []models.Finding
	add := func(typ, title, desc string, sev models.Severity, evidence map[string]string) {
		findings = append(findings, models.Finding{
			Type:        typ,
			Title:       title,
			Description: desc,
			Severity:    sev,
			RiskPoints:  sev.Points(),
			Evidence:    evidence,
		})
	}
	profileEvidence := func() map[string]string {
		return map[string]string{
			"plist_intent":   fmt.Sprintf("simple=%v passive=%v complexity=%d", plist.Simple, plist.Passive, plist.Complexity),
			"binary_reality": fmt.Sprintf("entitlements=%d heavy=%d buckets=%d", caps.RawCount, len(caps.Heavy), caps.BucketCount()),
		}
	}

	// (a) 简单低复杂度 plist 搭配重量级二进制
	if plist.Simple && plist.Complexity <= 3 && (len(caps.Heavy) >= 3 || dangerous || tcc) {
		add("innocent_plist_heavy_binary", "Innocent Plist, Heavy Binary",
			"plist 声明极简，二进制却持有重量级或危险 entitlement",
			models.SeverityCritical, profileEvidence())
	}

	// (b) 被动后台命名条目未声明网络参数却有网络能力
	if plist.Passive && plist.BackgroundName && !plist.NetworkArgs && caps.Has(models.CapNetwork) {
		add("undeclared_network", "Undeclared Network Capability",
			"被动后台任务未在参数中体现网络行为，却持有网络 entitlement",
			models.SeverityHigh, profileEvidence())
	}

	// (c) 后台命名低复杂度条目可加载未签名代码
	if plist.BackgroundName && plist.Complexity <= 3 && dangerous {
		add("unsigned_code_loading", "Unsigned Code Loading Capability",
			"低复杂度后台任务可关闭库校验或执行未签名内存",
			models.SeverityCritical, profileEvidence())
	}

	// (d) 极简/被动 plist 搭配宽能力面
	if (plist.Simple || plist.Passive) && (caps.RawCount >= 5 || caps.BucketCount() >= 3) {
		add("capability_surface_mismatch", "Capability Surface Mismatch",
			"极简声明搭配跨类别的宽 entitlement 组合",
			models.SeverityHigh, profileEvidence())
	}
	// (d) 补充：简单任务持有钥匙串能力但命名毫无钥匙串语义
	if caps.Has(models.CapKeychain) && plist.Simple && !nameContainsAny(item.Name, keychainNameTokens) {
		add("unexpected_keychain", "Unexpected Keychain Access",
			"简单任务持有钥匙串访问能力，命名却与钥匙串无关",
			models.SeverityHigh, profileEvidence())
	}

	return IntentResult{Findings: findings, Severity: models.MaxSeverity(findings)}
}
