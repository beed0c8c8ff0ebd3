// Package monitor 实现监控编排器：建基线、挂目录监视、按类别去抖、
// 定向重扫、差异分类、历史落盘、冷却控制下的通知投递。
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"baize/internal/analyzers"
	"baize/internal/baseline"
	"baize/internal/config"
	"baize/internal/diff"
	"baize/internal/escalate"
	"baize/internal/history"
	"baize/internal/models"
	"baize/internal/notify"
	"baize/internal/scanner"
	"baize/internal/watcher"
)

// Publisher 事件外发契约；stream.Hub 实现。nil 表示不外发。
type Publisher interface {
	PublishChange(change *models.Change)
	PublishState(state models.MonitorState)
}

// Monitor 监控编排器。所有可变状态由 mu 保护；
// 去抖定时器回调与 watcher 回调都可能并发进入。
type Monitor struct {
	cfg        config.MonitorConfig
	scanner    scanner.Scanner
	baseline   baseline.Store
	history    history.Store
	watcher    watcher.Watcher
	classifier escalate.Classifier
	fallback   *escalate.RelevanceClassifier
	notifier   notify.Notifier
	publisher  Publisher

	debounce time.Duration
	cooldown time.Duration
	now      func() time.Time

	mu           sync.Mutex
	state        models.MonitorState
	timers       map[models.Category]*time.Timer
	timerSeq     map[models.Category]uint64
	lastNotified map[string]time.Time
	runCtx       context.Context
	runCancel    context.CancelFunc
	scanCount    int
	lastChangeAt time.Time
}

// Stats 重扫次数与最近一次检出变更的时间。
type Stats struct {
	ScanCount    int
	LastChangeAt time.Time
}

// Options 编排器装配件。Classifier 为 nil 时只走确定性路径。
type Options struct {
	Config     config.MonitorConfig
	Scanner    scanner.Scanner
	Baseline   baseline.Store
	History    history.Store
	Watcher    watcher.Watcher
	Classifier escalate.Classifier
	Notifier   notify.Notifier
	Publisher  Publisher
}

// New 装配监控编排器；初始为 stopped。
func New(opts Options) *Monitor {
	cfg := opts.Config
	debounce := time.Duration(cfg.DebounceSeconds) * time.Second
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	cooldown := time.Duration(cfg.CooldownHours) * time.Hour
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	fallback := &escalate.RelevanceClassifier{MinScore: cfg.MinRelevanceScore}
	classifier := opts.Classifier
	if classifier == nil {
		classifier = fallback
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Monitor{
		cfg:          cfg,
		scanner:      opts.Scanner,
		baseline:     opts.Baseline,
		history:      opts.History,
		watcher:      opts.Watcher,
		classifier:   classifier,
		fallback:     fallback,
		notifier:     notifier,
		publisher:    opts.Publisher,
		debounce:     debounce,
		cooldown:     cooldown,
		now:          time.Now,
		timers:       make(map[models.Category]*time.Timer),
		timerSeq:     make(map[models.Category]uint64),
		lastNotified: make(map[string]time.Time),
	}
}

// State 返回当前状态快照。
func (m *Monitor) State() models.MonitorState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SnapshotStats 返回运行计数快照。
func (m *Monitor) SnapshotStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{ScanCount: m.scanCount, LastChangeAt: m.lastChangeAt}
}

// Start 启动监控：建基线（首次）、挂 watcher、进入 running。
// 仅在 stopped / error 状态下生效，其余状态为 no-op。
// 启动失败进入 error 状态并返回原因；再次 Start 可重试。
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Phase != models.PhaseStopped && m.state.Phase != models.PhaseError {
		m.mu.Unlock()
		return nil
	}
	m.setStateLocked(models.MonitorState{Phase: models.PhaseStarting})
	m.runCtx, m.runCancel = context.WithCancel(ctx)
	runCtx := m.runCtx
	m.mu.Unlock()

	if err := m.bootstrap(runCtx); err != nil {
		m.mu.Lock()
		m.setStateLocked(models.MonitorState{Phase: models.PhaseError, Err: err.Error()})
		m.mu.Unlock()
		return err
	}

	for _, category := range m.enabledCategories() {
		paths := category.WatchPaths()
		if len(paths) == 0 {
			continue
		}
		if err := m.watcher.Watch(category, paths, m.handleEvent); err != nil {
			m.watcher.StopAll()
			m.mu.Lock()
			m.setStateLocked(models.MonitorState{Phase: models.PhaseError, Err: err.Error()})
			m.mu.Unlock()
			return fmt.Errorf("monitor: watch %s: %w", category, err)
		}
	}

	m.mu.Lock()
	m.setStateLocked(models.MonitorState{Phase: models.PhaseRunning})
	m.mu.Unlock()
	return nil
}

// Stop 停止监控：先取消全部去抖定时器，再摘 watcher。运行中之外的状态为 no-op。
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state.Phase != models.PhaseRunning && m.state.Phase != models.PhaseStarting {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(models.MonitorState{Phase: models.PhaseStopping})
	for category, timer := range m.timers {
		timer.Stop()
		delete(m.timers, category)
	}
	cancel := m.runCancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.watcher.StopAll()

	m.mu.Lock()
	m.setStateLocked(models.MonitorState{Phase: models.PhaseStopped})
	m.mu.Unlock()
}

// bootstrap 首次启动建立基线；已有基线则跳过扫描。
func (m *Monitor) bootstrap(ctx context.Context) error {
	has, err := m.baseline.Has(ctx)
	if err != nil {
		return fmt.Errorf("monitor: baseline check: %w", err)
	}
	if has {
		return nil
	}
	items, err := m.scanner.ScanAll(ctx)
	if err != nil {
		return fmt.Errorf("monitor: initial scan: %w", err)
	}
	now := m.now()
	for i := range items {
		items[i].Analysis = analyzers.Analyze(&items[i], now)
		if items[i].DiscoveredAt.IsZero() {
			items[i].DiscoveredAt = now
		}
	}
	if err := m.baseline.Create(ctx, items); err != nil {
		return fmt.Errorf("monitor: create baseline: %w", err)
	}
	return nil
}

// handleEvent watcher 回调：按类别去抖，同类别的后续事件重置定时器。
// Stop 可能晚于定时器触发，此时旧回调已在等锁，单靠 Stop 拦不住；
// 每次重置都推进类别序号，旧回调持到锁后对不上序号即放弃。
func (m *Monitor) handleEvent(ev watcher.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Phase != models.PhaseRunning {
		return
	}
	if timer, ok := m.timers[ev.Category]; ok {
		timer.Stop()
	}
	category := ev.Category
	m.timerSeq[category]++
	seq := m.timerSeq[category]
	m.timers[category] = time.AfterFunc(m.debounce, func() {
		m.debounceFired(category, seq)
	})
}

// debounceFired 去抖定时器到期回调。序号不匹配说明该定时器已被更新
// 的事件取代，直接放弃，不触碰活动定时器的登记项。
func (m *Monitor) debounceFired(category models.Category, seq uint64) {
	m.mu.Lock()
	if m.timerSeq[category] != seq {
		m.mu.Unlock()
		return
	}
	delete(m.timers, category)
	ctx := m.runCtx
	running := m.state.Phase == models.PhaseRunning
	m.mu.Unlock()
	if !running || ctx == nil || ctx.Err() != nil {
		return
	}
	m.Rescan(ctx, category)
}

// Rescan 定向重扫一个类别：扫描、分析、对比基线、分类、落历史、
// 冷却控制下通知，最后提交新基线。扫描失败时基线保持不变。
func (m *Monitor) Rescan(ctx context.Context, category models.Category) {
	current, err := m.scanner.Scan(ctx, category)
	if err != nil {
		log.Printf("[baize] rescan %s: %v", category, err)
		return
	}
	now := m.now()
	for i := range current {
		current[i].Analysis = analyzers.Analyze(&current[i], now)
		if current[i].DiscoveredAt.IsZero() {
			current[i].DiscoveredAt = now
		}
	}

	prev, err := m.baseline.Get(ctx, category)
	if err != nil && !errors.Is(err, baseline.ErrNoBaseline) {
		log.Printf("[baize] baseline get %s: %v", category, err)
		return
	}

	result := diff.Detect(category, prev, current)
	changes := collectChanges(result)
	m.mu.Lock()
	m.scanCount++
	if len(changes) > 0 {
		m.lastChangeAt = m.now()
	}
	m.mu.Unlock()
	for _, change := range changes {
		m.processChange(ctx, change)
	}

	// 扫描成功才提交；单类别整体替换
	if err := m.baseline.Update(ctx, category, current); err != nil {
		log.Printf("[baize] baseline update %s: %v", category, err)
	}
}

// collectChanges 把差异结果展开为变更事件流。
func collectChanges(result *models.DiffResult) []*models.Change {
	var changes []*models.Change
	for _, item := range result.Added {
		changes = append(changes, &models.Change{Type: models.ChangeAdded, Category: result.Category, Item: item})
	}
	for _, item := range result.Removed {
		changes = append(changes, &models.Change{Type: models.ChangeRemoved, Category: result.Category, Item: item})
	}
	for _, mod := range result.Modified {
		changes = append(changes, &models.Change{
			Type:         models.ChangeModified,
			Category:     result.Category,
			Item:         mod.Item,
			FieldChanges: mod.Changes,
		})
	}
	return changes
}

// processChange 单个变更：分类（AI 失败回退确定性路径）、历史落盘、
// 冷却控制下通知、事件外发。
func (m *Monitor) processChange(ctx context.Context, change *models.Change) {
	decision, err := m.classifier.Classify(ctx, change)
	if err != nil {
		log.Printf("[baize] classify %s: %v, falling back", change.Item.Identifier, err)
		decision, _ = m.fallback.Classify(ctx, change)
		if decision.Relevance < escalate.DefaultFallbackRelevance {
			decision.Relevance = escalate.DefaultFallbackRelevance
			decision.Notify = decision.Relevance >= m.fallback.MinScore
		}
		decision.Source = "relevance-fallback"
	}

	rec := &models.ChangeRecord{
		ID:           uuid.New().String(),
		Timestamp:    m.now(),
		Category:     change.Category,
		ChangeType:   change.Type,
		Identifier:   change.Item.Identifier,
		Name:         change.Item.Name,
		FieldChanges: change.FieldChanges,
		Relevance:    decision.Relevance,
	}
	if decision.Source == "ai" {
		rec.AISeverity = decision.Severity
		rec.AISummary = decision.Explanation
	}

	if decision.Notify && m.cooldownPassed(change.Item.Identifier) {
		alert := &notify.Alert{RecordID: rec.ID, Change: change, Decision: decision}
		if err := m.notifier.Send(ctx, alert); err != nil {
			log.Printf("[baize] notify %s: %v", change.Item.Identifier, err)
		} else {
			rec.Notified = true
			m.markNotified(change.Item.Identifier)
		}
	}

	if err := m.history.Save(ctx, rec); err != nil {
		log.Printf("[baize] history save %s: %v", rec.ID, err)
	}
	if m.publisher != nil {
		m.publisher.PublishChange(change)
	}
}

// cooldownPassed 同一条目在冷却期内最多通知一次。
func (m *Monitor) cooldownPassed(identifier string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastNotified[identifier]
	return !ok || m.now().Sub(last) >= m.cooldown
}

func (m *Monitor) markNotified(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastNotified[identifier] = m.now()
}

// enabledCategories 返回配置启用的类别；未配置表示全部。
func (m *Monitor) enabledCategories() []models.Category {
	if len(m.cfg.Categories) == 0 {
		return models.AllCategories
	}
	var categories []models.Category
	for _, name := range m.cfg.Categories {
		categories = append(categories, models.Category(name))
	}
	return categories
}

func (m *Monitor) setStateLocked(state models.MonitorState) {
	m.state = state
	if m.publisher != nil {
		m.publisher.PublishState(state)
	}
}

// PruneHistory 按保留期清理历史，返回删除数量。
func (m *Monitor) PruneHistory(ctx context.Context) (int, error) {
	days := m.cfg.HistoryRetentionDays
	if days <= 0 {
		days = 90
	}
	return m.history.PruneOlderThan(ctx, days)
}
