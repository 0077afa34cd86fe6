package data

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/DevRickLin/feishu-modbot/internal/biz/domain"
)

// MemEvidenceStore is the in-process evidence cache, bounded both per user and in the number of users.
// It implements repo.EvidenceRepo.
type MemEvidenceStore struct {
	mu   sync.Mutex
	Data *expirable.LRU[string, []domain.EvidenceEntry]
}

// NewMemEvidenceStore creates a cache holding at most users entries; ttl <= 0 disables expiry
func NewMemEvidenceStore(users int, ttl time.Duration) *MemEvidenceStore {
	return &MemEvidenceStore{
		Data: expirable.NewLRU[string, []domain.EvidenceEntry](users, nil, ttl),
	}
}

func (s *MemEvidenceStore) Record(ctx context.Context, userID string, entry domain.EvidenceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, _ := s.Data.Get(userID)
	s.Data.Add(userID, domain.AppendEvidence(append([]domain.EvidenceEntry(nil), prev...), entry))
	return nil
}

func (s *MemEvidenceStore) Get(ctx context.Context, userID string) ([]domain.EvidenceEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Data.Get(userID)
	if !ok {
		return nil, nil
	}
	return append([]domain.EvidenceEntry(nil), v...), nil
}
