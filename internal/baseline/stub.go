package baseline

import (
	"context"
	"sync"

	"baize/internal/models"
)

// MemoryStore 内存基线，供测试与装配占位。
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[models.Category][]models.PersistenceItem
	created bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[models.Category][]models.PersistenceItem)}
}

func (s *MemoryStore) Has(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.created, nil
}

func (s *MemoryStore) Create(ctx context.Context, items []models.PersistenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[models.Category][]models.PersistenceItem)
	for _, it := range items {
		s.data[it.Category] = append(s.data[it.Category], it)
	}
	s.created = true
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, category models.Category) ([]models.PersistenceItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.created {
		return nil, ErrNoBaseline
	}
	out := make([]models.PersistenceItem, len(s.data[category]))
	copy(out, s.data[category])
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, category models.Category, items []models.PersistenceItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.PersistenceItem, len(items))
	copy(cp, items)
	s.data[category] = cp
	s.created = true
	return nil
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[models.Category][]models.PersistenceItem)
	s.created = false
	return nil
}

var _ Store = (*MemoryStore)(nil)
