// Package notify 把通过分类阈值的变更投递给用户。
// 投递失败只记日志，绝不影响监控主流程。
package notify

import (
	"context"

	"baize/internal/escalate"
	"baize/internal/models"
)

// Alert 一次投递的完整内容：历史记录 ID（确认按钮回传用）+ 变更 + 分类结论。
type Alert struct {
	RecordID string
	Change   *models.Change
	Decision *escalate.Decision
}

// Notifier 投递契约。
type Notifier interface {
	Send(ctx context.Context, alert *Alert) error
}
