// Package scanner 定义类别扫描器契约。
// 具体的 plist 解析、签名校验、entitlement 提取由采集方实现；核心只消费其输出。
package scanner

import (
	"context"

	"baize/internal/models"
)

// Scanner 类别扫描器接口：对单个类别或全部类别做一次完整扫描，返回已填充字段的条目列表。
type Scanner interface {
	// Scan 重新扫描一个类别。
	Scan(ctx context.Context, category models.Category) ([]models.PersistenceItem, error)
	// ScanAll 扫描全部启用类别。
	ScanAll(ctx context.Context) ([]models.PersistenceItem, error)
}
