package watcher

import (
	"sync"

	"baize/internal/models"
)

// FakeWatcher 进程内实现：手工注入事件，供测试与演示装配使用。
type FakeWatcher struct {
	mu       sync.RWMutex
	handlers map[models.Category]Handler
	stopped  bool
}

func NewFakeWatcher() *FakeWatcher {
	return &FakeWatcher{handlers: make(map[models.Category]Handler)}
}

func (w *FakeWatcher) Watch(category models.Category, paths []string, handler Handler) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[category] = handler
	w.stopped = false
	return nil
}

func (w *FakeWatcher) StopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = make(map[models.Category]Handler)
	w.stopped = true
}

// Emit 向已挂监视的类别注入一条事件；未挂监视时静默丢弃。
func (w *FakeWatcher) Emit(ev Event) {
	w.mu.RLock()
	h := w.handlers[ev.Category]
	w.mu.RUnlock()
	if h != nil {
		h(ev)
	}
}

// Watching 返回某类别当前是否挂有监视（测试用）。
func (w *FakeWatcher) Watching(category models.Category) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.handlers[category]
	return ok
}

var _ Watcher = (*FakeWatcher)(nil)
