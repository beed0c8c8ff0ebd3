package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadEnvFile 从 path 读取 .env 风格文件（KEY=VALUE），并 set 到当前进程环境变量。
// 空行与 # 开头行忽略；override 为 false 时不覆盖已存在的环境变量。
// 在 Load 之前调用，则 YAML 的 env 覆盖会使用 .env 中的值。
func LoadEnvFile(path string, override bool) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
			val = strings.Trim(val, `"`)
		}
		if key == "" {
			continue
		}
		if override || os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
	return sc.Err()
}

// Load 从 path 加载 YAML 配置；敏感项由环境变量覆盖，缺省项补默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	applyEnvOverrides(&c)
	applyDefaults(&c)
	return &c, nil
}

// Default 返回全默认值配置（未提供配置文件时使用）。
func Default() *Config {
	c := &Config{}
	applyEnvOverrides(c)
	applyDefaults(c)
	return c
}

// applyDefaults 为缺省项补默认值。
func applyDefaults(c *Config) {
	if c.Monitor.DebounceSeconds <= 0 {
		c.Monitor.DebounceSeconds = 2
	}
	if c.Monitor.CooldownHours <= 0 {
		c.Monitor.CooldownHours = 24
	}
	if c.Monitor.MinRelevanceScore <= 0 {
		c.Monitor.MinRelevanceScore = 50
	}
	if c.Monitor.HistoryRetentionDays <= 0 {
		c.Monitor.HistoryRetentionDays = 90
	}
	if c.Storage.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Storage.Path = home + "/.baize/baize.db"
		} else {
			c.Storage.Path = "baize.db"
		}
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.anthropic.com"
	}
	if c.AI.Model == "" {
		c.AI.Model = "claude-sonnet-4-20250514"
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = 2048
	}
	if c.AI.TimeoutSeconds <= 0 {
		c.AI.TimeoutSeconds = 30
	}
	if c.AI.PeriodicMinutes <= 0 {
		c.AI.PeriodicMinutes = 60
	}
	if c.AI.NotifyAtSeverity == "" {
		c.AI.NotifyAtSeverity = "high"
	}
	if c.Notify.Feishu.RetryMaxAttempts <= 0 {
		c.Notify.Feishu.RetryMaxAttempts = 3
	}
	if c.Stream.ListenAddr == "" {
		c.Stream.ListenAddr = "127.0.0.1:8787"
	}
}

// applyEnvOverrides 用 BAIZE_ 前缀环境变量覆盖敏感或常用项。
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("BAIZE_AI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("BAIZE_AI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("BAIZE_AI_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("BAIZE_AI_ENABLED"); v != "" {
		c.AI.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("BAIZE_FEISHU_APP_ID"); v != "" {
		c.Notify.Feishu.AppID = v
	}
	if v := os.Getenv("BAIZE_FEISHU_APP_SECRET"); v != "" {
		c.Notify.Feishu.AppSecret = v
	}
	if v := os.Getenv("BAIZE_FEISHU_CHAT_ID"); v != "" {
		c.Notify.Feishu.ChatID = v
	}
	if v := os.Getenv("BAIZE_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("BAIZE_MONITOR_DEBOUNCE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Monitor.DebounceSeconds = n
		}
	}
	if v := os.Getenv("BAIZE_MONITOR_COOLDOWN_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Monitor.CooldownHours = n
		}
	}
}
