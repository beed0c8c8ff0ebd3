package models

import "time"

// ChangeRecord 一条变更历史记录；无论是否达到通知阈值都会落盘。
type ChangeRecord struct {
	ID           string     `json:"id"`
	Timestamp    time.Time  `json:"timestamp"`
	Category     Category   `json:"category"`
	ChangeType   ChangeType `json:"change_type"`
	Identifier   string     `json:"identifier"`
	Name         string     `json:"name"`
	FieldChanges []string   `json:"field_changes,omitempty"`
	Relevance    int        `json:"relevance"`
	Notified     bool       `json:"notified"`
	Acknowledged bool       `json:"acknowledged"`
	// AI 裁决字段；未走 AI 路径时为空。
	AISeverity string `json:"ai_severity,omitempty"`
	AISummary  string `json:"ai_summary,omitempty"`
}
