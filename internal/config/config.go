// Package config 提供统一配置模型与加载（YAML + env override）。
package config

// Config 根配置；敏感项由 env 覆盖（见 Load）。
type Config struct {
	Monitor MonitorConfig `yaml:"monitor"`
	Storage StorageConfig `yaml:"storage"`
	AI      AIConfig      `yaml:"ai"`
	Notify  NotifyConfig  `yaml:"notify"`
	Stream  StreamConfig  `yaml:"stream"`
}

// MonitorConfig 监控器参数：去抖、通知冷却、确定性阈值、历史保留。
type MonitorConfig struct {
	DebounceSeconds      int      `yaml:"debounce_seconds"`       // 默认 2
	CooldownHours        int      `yaml:"cooldown_hours"`         // 同一条目再次通知的冷却期，默认 24
	MinRelevanceScore    int      `yaml:"min_relevance_score"`    // 确定性路径的通知阈值，默认 50
	HistoryRetentionDays int      `yaml:"history_retention_days"` // 默认 90
	Categories           []string `yaml:"categories,omitempty"`   // 空表示全部类别
}

// StorageConfig 基线与历史的 SQLite 落盘路径。
type StorageConfig struct {
	Path string `yaml:"path"` // 如 ~/.baize/baize.db
}

// AIConfig 远端推理服务配置；api_key 实际从 BAIZE_AI_API_KEY 覆盖。
type AIConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	MaxTokens        int    `yaml:"max_tokens"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`   // 出站调用超时，默认 30
	PeriodicMinutes  int    `yaml:"periodic_minutes"`  // 周期性全量差异分析间隔，默认 60
	NotifyAtSeverity string `yaml:"notify_at_severity"` // 周期路径的通知阈值，默认 high
}

// NotifyConfig 通知投递配置。
type NotifyConfig struct {
	Feishu FeishuConfig `yaml:"feishu"`
}

// FeishuConfig 飞书应用配置；app_secret 从 BAIZE_FEISHU_APP_SECRET 覆盖。
type FeishuConfig struct {
	Enabled           bool   `yaml:"enabled"`
	AppID             string `yaml:"app_id"`
	AppSecret         string `yaml:"app_secret"`
	ChatID            string `yaml:"chat_id"`             // 群聊投递目标
	ReceiveUserID     string `yaml:"receive_user_id"`     // 指定接收人时优先于 chat_id
	UseCardDelivery   bool   `yaml:"use_card_delivery"`   // 发送带「知悉」按钮的交互卡片
	UseLongConnection bool   `yaml:"use_long_connection"` // 长连接接收卡片点击（确认变更）
	RetryMaxAttempts  int    `yaml:"retry_max_attempts"`
}

// StreamConfig 本地 WebSocket 事件流（供展示层订阅状态与变更）。
type StreamConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"` // 如 127.0.0.1:8787
}
