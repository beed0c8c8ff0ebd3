package escalate

import (
	"context"
	"fmt"
	"log"
	"time"

	"baize/internal/diff"
	"baize/internal/models"
)

// SnapshotFunc 返回当前追踪的全量条目集。
type SnapshotFunc func(ctx context.Context) ([]models.PersistenceItem, error)

// DiffNotifyFunc 周期差异裁决达到阈值时的通知回调。
type DiffNotifyFunc func(ctx context.Context, verdict *DiffVerdict)

// PeriodicLoop 定时把整个追踪集与上次捕获的基线对比，汇总为一批发给远端分析。
type PeriodicLoop struct {
	Client    *Client
	Interval  time.Duration
	Snapshot  SnapshotFunc
	Notify    DiffNotifyFunc
	Threshold string // 达到该严重程度才通知，如 "high"

	captured []models.PersistenceItem
}

// Run 阻塞运行周期分析，ctx 取消时退出。首轮先捕获基线，不发请求。
func (l *PeriodicLoop) Run(ctx context.Context) {
	if snap, err := l.Snapshot(ctx); err == nil {
		l.captured = snap
	}
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

// runOnce 执行一轮差异分析；失败只记日志，下一轮照常。
func (l *PeriodicLoop) runOnce(ctx context.Context) {
	current, err := l.Snapshot(ctx)
	if err != nil {
		log.Printf("[baize] periodic snapshot: %v", err)
		return
	}
	result := diff.Detect("", l.captured, current)
	if !result.HasChanges() {
		l.captured = current
		return
	}
	payload := buildDiffAnalysis(current, result)
	verdict, err := l.Client.AnalyzeDiff(ctx, payload)
	if err != nil {
		log.Printf("[baize] periodic diff analysis: %v", err)
		return
	}
	if severityRank(verdict.Severity) >= severityRank(l.Threshold) && l.Notify != nil {
		l.Notify(ctx, verdict)
	}
	// 本轮已汇报，捕获新基线
	l.captured = current
}

// buildDiffAnalysis 把差异结果压缩为摘要行载荷。
func buildDiffAnalysis(current []models.PersistenceItem, result *models.DiffResult) *DiffAnalysis {
	payload := &DiffAnalysis{Timestamp: time.Now(), TotalItems: len(current)}
	for _, it := range result.Added {
		payload.Added = append(payload.Added, itemLine(&it))
	}
	for _, it := range result.Removed {
		payload.Removed = append(payload.Removed, itemLine(&it))
	}
	for _, mod := range result.Modified {
		for _, c := range mod.Changes {
			payload.Modified = append(payload.Modified, fmt.Sprintf("%s: %s", mod.Item.Name, c))
		}
	}
	return payload
}

func itemLine(it *models.PersistenceItem) string {
	risk := 0
	if it.Analysis != nil {
		risk = it.Analysis.RiskScore
	}
	return fmt.Sprintf("%s (%s, trust %s, risk %d)", it.Name, it.Category, it.Trust.Level(), risk)
}
