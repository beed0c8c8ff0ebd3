package notify

import (
	"context"
	"log"
	"sync"
)

// LogNotifier 退化投递：没有配置飞书时只写进程日志。
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, alert *Alert) error {
	log.Printf("[baize] alert [%s] %s (relevance %d)", alert.Decision.Severity, alert.Decision.Title, alert.Decision.Relevance)
	return nil
}

// MemoryNotifier 测试用投递：记录收到的告警。
type MemoryNotifier struct {
	mu     sync.Mutex
	Alerts []*Alert
	Err    error
}

func (m *MemoryNotifier) Send(ctx context.Context, alert *Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Alerts = append(m.Alerts, alert)
	return nil
}

// Len 返回已记录的告警条数。
func (m *MemoryNotifier) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Alerts)
}

var (
	_ Notifier = LogNotifier{}
	_ Notifier = (*MemoryNotifier)(nil)
)
