package models

import "fmt"

// ModifiedItem 表示一个被修改的条目：标识 + 新状态 + 人类可读的字段变更列表。
type ModifiedItem struct {
	Identifier string          `json:"identifier"`
	Item       PersistenceItem `json:"item"`
	Changes    []string        `json:"changes"`
}

// DiffResult 单类别单轮监控周期的差异结果。
// 每轮新建、用后即弃：仅供通知/升级路径消费，不落盘；落盘的只有新条目集（基线）。
type DiffResult struct {
	Category Category          `json:"category"`
	Added    []PersistenceItem `json:"added"`
	Removed  []PersistenceItem `json:"removed"`
	Modified []ModifiedItem    `json:"modified"`
}

// HasChanges 返回三个列表是否存在任一非空。
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Modified) > 0
}

// Summary 返回人类可读的差异摘要；无变化返回 "No changes"。
func (d *DiffResult) Summary() string {
	if !d.HasChanges() {
		return "No changes"
	}
	return fmt.Sprintf("%d added, %d removed, %d modified", len(d.Added), len(d.Removed), len(d.Modified))
}

// ChangeType 变更种类。
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Change 单个条目的变更事件，流经 monitor → 分类 → 通知/升级路径。
type Change struct {
	Type         ChangeType      `json:"type"`
	Category     Category        `json:"category"`
	Item         PersistenceItem `json:"item"`
	FieldChanges []string        `json:"field_changes,omitempty"`
}
