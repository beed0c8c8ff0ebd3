// Package baseline 提供「最近已知良好」条目快照的存取契约与实现。
package baseline

import (
	"context"
	"errors"

	"baize/internal/models"
)

// ErrNoBaseline 请求的类别尚无基线。
var ErrNoBaseline = errors.New("baseline: not found")

// Store 基线存储接口。单类别的 Update 必须原子：要么整体替换成功，要么保持旧基线。
type Store interface {
	// Has 返回是否已存在任何基线。
	Has(ctx context.Context) (bool, error)
	// Create 从一次全量扫描结果建立初始基线（按类别分组整体写入）。
	Create(ctx context.Context, items []models.PersistenceItem) error
	// Get 读取一个类别的基线；不存在返回 ErrNoBaseline。
	Get(ctx context.Context, category models.Category) ([]models.PersistenceItem, error)
	// Update 以新扫描结果整体覆盖一个类别的基线（非合并）。
	Update(ctx context.Context, category models.Category, items []models.PersistenceItem) error
	// Reset 清空全部基线。
	Reset(ctx context.Context) error
}
