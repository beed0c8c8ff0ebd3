// Package models 提供 analyzers、monitor、baseline、escalate 等组件共用的数据类型。
package models

import "time"

// Category 持久化机制类别（封闭枚举）。
type Category string

const (
	CategoryLaunchDaemon     Category = "launch_daemon"
	CategoryLaunchAgent      Category = "launch_agent"
	CategoryLoginItem        Category = "login_item"
	CategoryCronJob          Category = "cron_job"
	CategoryConfigProfile    Category = "config_profile"
	CategoryBrowserExtension Category = "browser_extension"
	CategorySystemExtension  Category = "system_extension"
	CategoryKext             Category = "kext"
)

// AllCategories 全部类别，按固定顺序。
var AllCategories = []Category{
	CategoryLaunchDaemon,
	CategoryLaunchAgent,
	CategoryLoginItem,
	CategoryCronJob,
	CategoryConfigProfile,
	CategoryBrowserExtension,
	CategorySystemExtension,
	CategoryKext,
}

// WatchPaths 返回该类别默认监视的目录；无磁盘落点的类别返回 nil。
func (c Category) WatchPaths() []string {
	switch c {
	case CategoryLaunchDaemon:
		return []string{"/Library/LaunchDaemons", "/System/Library/LaunchDaemons"}
	case CategoryLaunchAgent:
		return []string{"/Library/LaunchAgents", "~/Library/LaunchAgents"}
	case CategoryCronJob:
		return []string{"/usr/lib/cron/tabs", "/etc/periodic"}
	case CategorySystemExtension:
		return []string{"/Library/SystemExtensions"}
	case CategoryKext:
		return []string{"/Library/Extensions"}
	default:
		return nil
	}
}

// IsUserLevel 返回该类别是否运行在用户上下文（区别于系统级守护）。
func (c Category) IsUserLevel() bool {
	return c == CategoryLaunchAgent || c == CategoryLoginItem || c == CategoryBrowserExtension
}

// TrustInfo 签名与公证快照，由扫描器填充，核心只读。
type TrustInfo struct {
	Signed          bool       `json:"signed"`
	SignatureValid  bool       `json:"signature_valid"`
	AppleSigned     bool       `json:"apple_signed"`
	Notarized       bool       `json:"notarized"`
	AdHoc           bool       `json:"ad_hoc"`
	HardenedRuntime bool       `json:"hardened_runtime"`
	TeamID          string     `json:"team_id,omitempty"`
	Authority       string     `json:"authority,omitempty"`
	CertExpiry      *time.Time `json:"cert_expiry,omitempty"`
}

// Level 返回可比较的信任档位文本，用于差异对比的人类可读输出。
func (t TrustInfo) Level() string {
	switch {
	case t.AppleSigned:
		return "apple"
	case t.Notarized:
		return "notarized"
	case t.AdHoc:
		return "ad-hoc"
	case t.Signed && t.SignatureValid:
		return "signed"
	case t.Signed:
		return "invalid-signature"
	default:
		return "unsigned"
	}
}

// LaunchConfig 启动配置快照（plist 声明的触发条件与参数）。
type LaunchConfig struct {
	RunAtLoad        bool              `json:"run_at_load"`
	KeepAlive        bool              `json:"keep_alive"`
	StartInterval    int               `json:"start_interval,omitempty"` // 秒；0 表示未声明
	Arguments        []string          `json:"arguments,omitempty"`
	Environment      map[string]string `json:"environment,omitempty"`
	WorkingDirectory string            `json:"working_directory,omitempty"`
}

// AnalysisResult 分析快照；全部可选，由风险引擎填充，monitor 不直接修改。
type AnalysisResult struct {
	RiskScore        int       `json:"risk_score"`
	RiskTier         Severity  `json:"risk_tier"`
	RiskFactors      []string  `json:"risk_factors,omitempty"`
	LOLBinFindings   []Finding `json:"lolbin_findings,omitempty"`
	LOLBinPoints     int       `json:"lolbin_points,omitempty"`
	BehaviorFindings []Finding `json:"behavior_findings,omitempty"`
	BehaviorSeverity Severity  `json:"behavior_severity,omitempty"`
	IntentFindings   []Finding `json:"intent_findings,omitempty"`
	IntentSeverity   Severity  `json:"intent_severity,omitempty"`
	AgeFindings      []Finding `json:"age_findings,omitempty"`
	AgeSeverity      Severity  `json:"age_severity,omitempty"`
	AgePoints        int       `json:"age_points,omitempty"`
}

// PersistenceItem 表示一个开机自启机制，是所有分析器与 monitor 共同操作的实体。
// Identifier 在类别内唯一且跨扫描稳定，是差异检测的键：
// 同一逻辑机制在两次扫描中必须得到相同 Identifier，否则会被当作 删除+新增。
type PersistenceItem struct {
	Identifier string   `json:"identifier"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`

	Enabled bool `json:"enabled"`
	Loaded  bool `json:"loaded"`

	PlistPath      string `json:"plist_path,omitempty"`
	ExecutablePath string `json:"executable_path,omitempty"`
	ParentAppPath  string `json:"parent_app_path,omitempty"`
	// ExecutableMissing 由扫描器在采集时核对磁盘后填写；分析器只读该字段，保持纯函数。
	ExecutableMissing bool `json:"executable_missing,omitempty"`

	Launch LaunchConfig `json:"launch"`
	Trust  TrustInfo    `json:"trust"`

	// Entitlements 原始 key 列表；Capabilities 在采集时一次性解析（见 capability.go）。
	Entitlements []string      `json:"entitlements,omitempty"`
	Capabilities CapabilitySet `json:"capabilities,omitempty"`

	Analysis *AnalysisResult `json:"analysis,omitempty"`

	PlistCreated   *time.Time `json:"plist_created,omitempty"`
	PlistModified  *time.Time `json:"plist_modified,omitempty"`
	BinaryCreated  *time.Time `json:"binary_created,omitempty"`
	BinaryModified *time.Time `json:"binary_modified,omitempty"`
	LastExecuted   *time.Time `json:"last_executed,omitempty"`
	// DiscoveredAt 首次观察时间，只在第一次入库时设置。
	DiscoveredAt time.Time `json:"discovered_at"`
}

// ExecutableName 返回可执行文件的最后路径分量；未声明返回空串。
func (p *PersistenceItem) ExecutableName() string {
	return lastPathComponent(p.ExecutablePath)
}

func lastPathComponent(path string) string {
	if path == "" {
		return ""
	}
	idx := -1
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			idx = i
			break
		}
	}
	return path[idx+1:]
}
