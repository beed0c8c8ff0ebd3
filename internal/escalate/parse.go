package escalate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeStructured 两段式解析：先直接按 JSON 解码响应文本；
// 失败则提取 ``` 围栏代码块内容重试；仍失败视为硬失败。
func decodeStructured(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	block, ok := extractFencedBlock(trimmed)
	if !ok {
		return fmt.Errorf("escalate: response is not valid JSON and has no fenced block")
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return fmt.Errorf("escalate: fenced block decode: %w", err)
	}
	return nil
}

// extractFencedBlock 提取第一个 ``` 围栏块内容；```json 语言标记会被剥掉。
func extractFencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start < 0 {
		return "", false
	}
	rest := text[start+3:]
	// 剥掉紧跟围栏的语言标记（如 json）
	rest = strings.TrimPrefix(rest, "json")
	rest = strings.TrimPrefix(rest, "JSON")
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
