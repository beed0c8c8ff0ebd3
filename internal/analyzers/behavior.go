package analyzers

import (
	"fmt"
	"strings"

	"baize/internal/models"
)

// BehaviorResult 行为/信誉分析结果：发现独立累积，整体严重程度取最大值。
type BehaviorResult struct {
	Findings []models.Finding
	Severity models.Severity
}

var (
	watchdogTokens   = []string{"watchdog", "keepalive", "monitor", "guard"}
	serviceTokens    = []string{"service", "daemon", "agent", "sync", "update", "helper", "backup"}
	suspiciousPaths  = []string{"/tmp/", "/var/tmp/", "/users/shared/", "/private/tmp/"}
	privescTokens    = []string{"sudo", "chown root", "chmod +s", "setuid", "authorizationdb", "visudo"}
	networkTokens    = []string{"curl", "wget", "nc ", "http://", "https://", "ftp://", "socket"}
	interpreterNames = []string{"bash", "sh", "zsh", "python", "python3", "ruby", "perl", "osascript"}
	inlineFlags      = []string{"-c", "-e", "-ec", "-Ee"}
	appleTokens      = []string{"com.apple", "apple", "macos", "coreservices", "systemui"}
)

func nameContainsAny(name string, tokens []string) bool {
	lower := strings.ToLower(name)
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// AnalyzeBehavior 对单个条目执行十项相互独立的即时检查。
// 各检查之间不做升级联动；整体严重程度为所有发现的最大值，空列表视为 low。
func AnalyzeBehavior(item *models.PersistenceItem) BehaviorResult {
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

	argText := strings.ToLower(strings.Join(item.Launch.Arguments, " "))

	// 1. 非看门狗命名却配置 KeepAlive
	if item.Launch.KeepAlive && !nameContainsAny(item.Name, watchdogTokens) {
		add("persistent_process", "Persistent Background Process",
			"KeepAlive 使进程被杀后立即重启，但命名不含看门狗语义",
			models.SeverityMedium, nil)
	}

	// 2. RunAtLoad + KeepAlive 且命名不似服务
	if item.Launch.RunAtLoad && item.Launch.KeepAlive && !nameContainsAny(item.Name, serviceTokens) {
		add("aggressive_autostart", "Aggressive Auto-Start",
			"开机即启并持续保活，命名却不似后台服务",
			models.SeverityHigh, nil)
	}

	// 3. 非 Apple 未知厂商的静默启动（无父应用指示）
	if item.Launch.RunAtLoad && item.ParentAppPath == "" && !item.Trust.AppleSigned {
		add("silent_launch", "Silent Launch",
			"开机自启且无任何界面归属，签名方非 Apple",
			models.SeverityMedium, nil)
	}

	// 4. 声明的可执行文件在磁盘上缺失
	if item.ExecutablePath != "" && item.ExecutableMissing {
		add("missing_executable", "Missing Executable",
			"plist 声明的可执行文件不存在，可能被删除以规避取证",
			models.SeverityHigh, map[string]string{"path": item.ExecutablePath})
	}

	// 5. 可疑路径或隐藏文件
	if reason := suspiciousLocation(item.ExecutablePath); reason != "" {
		add("suspicious_location", "Suspicious Executable Location",
			reason, models.SeverityHigh,
			map[string]string{"path": item.ExecutablePath})
	}

	// 6. 用户级条目的参数引用提权关键词
	if item.Category.IsUserLevel() && nameContainsAny(argText, privescTokens) {
		add("privilege_escalation", "Privilege Escalation Indicators",
			"用户级自启项的参数中出现提权关键词",
			models.SeverityHigh, map[string]string{"arguments": argText})
	}

	// 7. 参数包含网络工具指示
	if nameContainsAny(argText, networkTokens) {
		add("network_activity", "Network Tool Indicators",
			"启动参数中包含网络传输指示",
			models.SeverityMedium, nil)
	}

	// 8. 参数调用脚本解释器；带内联脚本标志时升一档
	if interp, inline := interpreterInvocation(item.Launch.Arguments); interp != "" {
		sev := models.SeverityMedium
		desc := "启动参数直接调用脚本解释器"
		if inline {
			sev = models.SeverityHigh
			desc = "启动参数以内联脚本方式调用解释器"
		}
		add("script_interpreter", "Script Interpreter Invocation", desc, sev,
			map[string]string{"interpreter": interp})
	}

	// 9. 名称仿冒 Apple/系统组件但实际非 Apple 签名
	if nameContainsAny(item.Name, appleTokens) && !item.Trust.AppleSigned {
		add("apple_impersonation", "Apple Name Impersonation",
			"命名仿冒系统组件，但二进制并非 Apple 签名",
			models.SeverityCritical, map[string]string{"name": item.Name})
	}

	// 10. StartInterval 低于 60 秒
	if item.Launch.StartInterval > 0 && item.Launch.StartInterval < 60 {
		add("frequent_restart", "Frequent Restart Pattern",
			fmt.Sprintf("每 %d 秒重启一次，低于常规维护任务频率", item.Launch.StartInterval),
			models.SeverityMedium,
			map[string]string{"interval": fmt.Sprintf("%ds", item.Launch.StartInterval)})
	}

	return BehaviorResult{Findings: findings, Severity: models.MaxSeverity(findings)}
}

// suspiciousLocation 返回路径可疑的原因；不可疑返回空串。
func suspiciousLocation(execPath string) string {
	if execPath == "" {
		return ""
	}
	lower := strings.ToLower(execPath)
	for _, frag := range suspiciousPaths {
		if strings.Contains(lower, frag) {
			return "可执行文件位于临时/共享目录 " + frag
		}
	}
	if strings.Contains(execPath, "/.") {
		return "可执行文件位于隐藏目录"
	}
	if base := lastComponent(execPath); strings.HasPrefix(base, ".") {
		return "可执行文件为隐藏文件"
	}
	return ""
}

// interpreterInvocation 返回参数中被调用的解释器名及是否带内联脚本标志。
func interpreterInvocation(args []string) (string, bool) {
	interp := ""
	inline := false
	for i, arg := range args {
		base := strings.ToLower(lastComponent(arg))
		for _, name := range interpreterNames {
			if base != name {
				continue
			}
			interp = name
			for _, rest := range args[i+1:] {
				for _, flag := range inlineFlags {
					if rest == flag {
						inline = true
					}
				}
			}
		}
	}
	return interp, inline
}

func lastComponent(p string) string {
	if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
