package history

import (
	"context"
	"sync"
	"time"

	"baize/internal/models"
)

// MemoryStore 内存历史，供测试与装配占位。
type MemoryStore struct {
	mu      sync.Mutex
	Records []*models.ChangeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(ctx context.Context, rec *models.ChangeRecord) error {
	if rec == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.Records = append(s.Records, &cp)
	return nil
}

func (s *MemoryStore) UnacknowledgedCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.Records {
		if !r.Acknowledged {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Acknowledge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Records {
		if r.ID == id {
			r.Acknowledged = true
		}
	}
	return nil
}

func (s *MemoryStore) AcknowledgeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Records {
		r.Acknowledged = true
	}
	return nil
}

func (s *MemoryStore) PruneOlderThan(ctx context.Context, days int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -days)
	var kept []*models.ChangeRecord
	pruned := 0
	for _, r := range s.Records {
		if r.Timestamp.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, r)
	}
	s.Records = kept
	return pruned, nil
}

// Len 返回记录总数（测试用）。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Records)
}

var _ Store = (*MemoryStore)(nil)
