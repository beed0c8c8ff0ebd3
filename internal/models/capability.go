package models

import "strings"

// Capability 二进制能力分桶，从原始 entitlement key 一次性解析得出。
// 检查点只读类型化标志，不在各处重复做子串匹配。
type Capability string

const (
	CapNetwork    Capability = "network"
	CapKeychain   Capability = "keychain"
	CapAutomation Capability = "automation"
	CapDangerous  Capability = "dangerous" // 关闭库校验、未签名可执行内存、task port 等
	CapPrivacy    Capability = "privacy"
	CapTCC        Capability = "tcc"
)

// HeavyEntitlement 重量级 entitlement 表项。
type HeavyEntitlement struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// CapabilitySet 一个二进制的能力集合：分桶标志 + 命中的重量级 entitlement + 原始数量。
type CapabilitySet struct {
	Buckets  []Capability       `json:"buckets,omitempty"`
	Heavy    []HeavyEntitlement `json:"heavy,omitempty"`
	RawCount int                `json:"raw_count,omitempty"`
}

// Has 返回是否包含某个能力分桶。
func (s CapabilitySet) Has(c Capability) bool {
	for _, b := range s.Buckets {
		if b == c {
			return true
		}
	}
	return false
}

// BucketCount 返回命中的不同分桶数量（用于跨类别组合检查）。
func (s CapabilitySet) BucketCount() int { return len(s.Buckets) }

// Empty 返回是否完全没有 entitlement 数据。
func (s CapabilitySet) Empty() bool { return s.RawCount == 0 }

// heavyEntitlements 精选的重量级 entitlement 表（key 片段 → 说明 + 严重程度）。
var heavyEntitlements = []HeavyEntitlement{
	{"com.apple.security.cs.disable-library-validation", "可加载任意未签名库", SeverityCritical},
	{"com.apple.security.cs.allow-unsigned-executable-memory", "可执行未签名内存页", SeverityCritical},
	{"com.apple.security.cs.allow-dyld-environment-variables", "允许 DYLD 注入变量", SeverityHigh},
	{"com.apple.security.cs.debugger", "可调试其他进程", SeverityHigh},
	{"com.apple.security.get-task-allow", "允许获取自身 task port", SeverityMedium},
	{"com.apple.system-task-ports", "可获取任意进程 task port", SeverityCritical},
	{"com.apple.private.tcc.allow", "绕过 TCC 隐私授权", SeverityCritical},
	{"keychain-access-groups", "访问钥匙串分组", SeverityMedium},
	{"com.apple.security.automation.apple-events", "可向其他应用发送 Apple Event", SeverityMedium},
	{"com.apple.security.device.camera", "访问摄像头", SeverityHigh},
	{"com.apple.security.device.microphone", "访问麦克风", SeverityHigh},
}

// capabilityBuckets 分桶子串表；按 key 子串匹配归类。
var capabilityBuckets = []struct {
	substr string
	cap    Capability
}{
	{"network.client", CapNetwork},
	{"network.server", CapNetwork},
	{"keychain", CapKeychain},
	{"automation", CapAutomation},
	{"apple-events", CapAutomation},
	{"disable-library-validation", CapDangerous},
	{"allow-unsigned-executable-memory", CapDangerous},
	{"allow-dyld-environment-variables", CapDangerous},
	{"task-port", CapDangerous},
	{"system-task-ports", CapDangerous},
	{"get-task-allow", CapDangerous},
	{"device.camera", CapPrivacy},
	{"device.microphone", CapPrivacy},
	{"personal-information", CapPrivacy},
	{"addressbook", CapPrivacy},
	{"tcc", CapTCC},
}

// ResolveCapabilities 从原始 entitlement key 列表一次性解析能力集合。
// key 为不透明字符串（由采集方提供）；无数据时返回空集合，后续检查不产生任何发现。
func ResolveCapabilities(keys []string) CapabilitySet {
	set := CapabilitySet{RawCount: len(keys)}
	seen := map[Capability]bool{}
	for _, key := range keys {
		lower := strings.ToLower(key)
		for _, b := range capabilityBuckets {
			if strings.Contains(lower, b.substr) && !seen[b.cap] {
				seen[b.cap] = true
				set.Buckets = append(set.Buckets, b.cap)
			}
		}
		for _, h := range heavyEntitlements {
			if strings.Contains(lower, strings.ToLower(h.Key)) {
				set.Heavy = append(set.Heavy, h)
			}
		}
	}
	return set
}
