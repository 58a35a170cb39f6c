package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

// ProgressStore garde la progression en mémoire uniquement: rien ne survit au redémarrage.
type ProgressStore struct {
	mu   sync.Mutex
	byID map[string]domain.ProgressRecord
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{byID: map[string]domain.ProgressRecord{}}
}

func (s *ProgressStore) Get(ctx context.Context, contentUnitID string) (domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[contentUnitID]
	if !ok {
		return domain.ProgressRecord{}, ports.ErrNotFound
	}
	return rec, nil
}

func (s *ProgressStore) List(ctx context.Context) ([]domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ProgressRecord, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentUnitID < out[j].ContentUnitID })
	return out, nil
}

func (s *ProgressStore) MarkCompleted(ctx context.Context, contentUnitID string, at time.Time, source domain.CompletionSource) (domain.ProgressRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.byID[contentUnitID]; ok && rec.Completed {
		return rec, false, nil
	}
	rec := domain.ProgressRecord{ContentUnitID: contentUnitID, Completed: true, CompletedAt: at.UTC(), Source: source}
	s.byID[contentUnitID] = rec
	return rec, true, nil
}
