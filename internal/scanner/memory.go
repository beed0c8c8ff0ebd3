package scanner

import (
	"context"
	"sync"

	"baize/internal/models"
)

// MemoryScanner 内存实现：返回预置条目集，可在运行中替换，供测试与演示装配使用。
type MemoryScanner struct {
	mu    sync.RWMutex
	items map[models.Category][]models.PersistenceItem
	err   error
}

// NewMemoryScanner 创建空的内存扫描器。
func NewMemoryScanner() *MemoryScanner {
	return &MemoryScanner{items: make(map[models.Category][]models.PersistenceItem)}
}

// SetItems 替换某类别的条目集。
func (s *MemoryScanner) SetItems(category models.Category, items []models.PersistenceItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[category] = items
}

// SetError 使后续扫描返回固定错误（测试扫描失败路径）。
func (s *MemoryScanner) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Scan 返回该类别当前条目集的副本。
func (s *MemoryScanner) Scan(ctx context.Context, category models.Category) ([]models.PersistenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.PersistenceItem, len(s.items[category]))
	copy(out, s.items[category])
	return out, nil
}

// ScanAll 返回全部类别条目。
func (s *MemoryScanner) ScanAll(ctx context.Context) ([]models.PersistenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.PersistenceItem
	for _, cat := range models.AllCategories {
		out = append(out, s.items[cat]...)
	}
	return out, nil
}

var _ Scanner = (*MemoryScanner)(nil)
