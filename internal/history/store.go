// Package history 提供变更历史的存取契约与实现。
// 每个检测到的变更无论相关度高低都会落一条记录；通知与知悉状态随后更新。
package history

import (
	"context"

	"baize/internal/models"
)

// Store 变更历史存储接口。
type Store interface {
	// Save 写入一条变更记录。
	Save(ctx context.Context, rec *models.ChangeRecord) error
	// UnacknowledgedCount 返回未知悉记录数（供展示层角标）。
	UnacknowledgedCount(ctx context.Context) (int, error)
	// Acknowledge 按记录 ID 标记知悉（飞书卡片按钮回调用）。
	Acknowledge(ctx context.Context, id string) error
	// AcknowledgeAll 标记全部记录为已知悉。
	AcknowledgeAll(ctx context.Context) error
	// PruneOlderThan 删除早于 days 天的记录，返回删除数量。
	PruneOlderThan(ctx context.Context, days int) (int, error)
}
