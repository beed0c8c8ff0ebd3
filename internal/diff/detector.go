// Package diff 提供基线与新扫描结果之间的纯函数差异检测。
// 无副作用、无 I/O；Identifier 是唯一的对比键。
package diff

import (
	"fmt"
	"sort"

	"baize/internal/models"
)

// Detect 对单个类别计算 baseline 与 current 的差异：
// 标识集合差得到 added/removed，交集逐字段对比得到 modified。
func Detect(category models.Category, baseline, current []models.PersistenceItem) *models.DiffResult {
	base := indexByIdentifier(baseline)
	cur := indexByIdentifier(current)

	result := &models.DiffResult{Category: category}

	for _, id := range sortedKeys(cur) {
		if _, ok := base[id]; !ok {
			result.Added = append(result.Added, cur[id])
		}
	}
	for _, id := range sortedKeys(base) {
		if _, ok := cur[id]; !ok {
			result.Removed = append(result.Removed, base[id])
		}
	}
	for _, id := range sortedKeys(cur) {
		old, ok := base[id]
		if !ok {
			continue
		}
		if changes := fieldChanges(old, cur[id]); len(changes) > 0 {
			result.Modified = append(result.Modified, models.ModifiedItem{
				Identifier: id,
				Item:       cur[id],
				Changes:    changes,
			})
		}
	}
	return result
}

// fieldChanges 对比受监视的字段，返回人类可读的变更描述。
func fieldChanges(prev, curr models.PersistenceItem) []string {
	var changes []string
	if prev.Trust.Level() != curr.Trust.Level() {
		changes = append(changes, fmt.Sprintf("trust level: %s → %s", prev.Trust.Level(), curr.Trust.Level()))
	}
	if prev.Enabled != curr.Enabled {
		changes = append(changes, fmt.Sprintf("enabled: %v → %v", prev.Enabled, curr.Enabled))
	}
	if prevScore, currScore := riskScore(&prev), riskScore(&curr); prevScore != currScore {
		changes = append(changes, fmt.Sprintf("risk score: %d → %d", prevScore, currScore))
	}
	if prev.ExecutablePath != curr.ExecutablePath {
		changes = append(changes, fmt.Sprintf("executable path: %s → %s", prev.ExecutablePath, curr.ExecutablePath))
	}
	return changes
}

func riskScore(item *models.PersistenceItem) int {
	if item.Analysis == nil {
		return 0
	}
	return item.Analysis.RiskScore
}

func indexByIdentifier(items []models.PersistenceItem) map[string]models.PersistenceItem {
	m := make(map[string]models.PersistenceItem, len(items))
	for _, it := range items {
		m[it.Identifier] = it
	}
	return m
}

func sortedKeys(m map[string]models.PersistenceItem) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
