package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
)

// FallbackProgressStore bascule sur un store mémoire dès que le store durable se
// déclare indisponible (ports.ErrPersistenceUnavailable). La complétion continue
// de fonctionner pour la visite en cours mais ne survivra pas à un redémarrage.
// Une fois dégradé, on ne revient pas sur le store durable. Les autres erreurs
// (contexte annulé, délai dépassé) remontent telles quelles sans basculer.
type FallbackProgressStore struct {
	logger  zerolog.Logger
	durable ports.ProgressStore
	memory  ports.ProgressStore

	mu       sync.Mutex
	degraded bool
}

func NewFallbackProgressStore(logger zerolog.Logger, durable ports.ProgressStore, memory ports.ProgressStore) *FallbackProgressStore {
	return &FallbackProgressStore{logger: logger, durable: durable, memory: memory}
}

func (s *FallbackProgressStore) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded || s.durable == nil
}

// unavailable indique si err justifie la bascule définitive en mémoire.
func unavailable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ports.ErrPersistenceUnavailable)
}

func (s *FallbackProgressStore) degrade(op string, err error) {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()
	if !already {
		s.logger.Warn().Err(err).Str("op", op).Msg("progress store unavailable, falling back to memory")
	}
}

func (s *FallbackProgressStore) Get(ctx context.Context, contentUnitID string) (domain.ProgressRecord, error) {
	if rec, err := s.memory.Get(ctx, contentUnitID); err == nil && rec.Completed {
		return rec, nil
	}
	if s.Degraded() {
		return s.memory.Get(ctx, contentUnitID)
	}
	rec, err := s.durable.Get(ctx, contentUnitID)
	if err == nil || !unavailable(err) {
		return rec, err
	}
	// Lecture impossible: "pas terminé".
	s.degrade("get", err)
	return s.memory.Get(ctx, contentUnitID)
}

func (s *FallbackProgressStore) List(ctx context.Context) ([]domain.ProgressRecord, error) {
	mem, err := s.memory.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.Degraded() {
		return mem, nil
	}
	durable, err := s.durable.List(ctx)
	if err != nil {
		if !unavailable(err) {
			return nil, err
		}
		s.degrade("list", err)
		return mem, nil
	}
	byID := make(map[string]domain.ProgressRecord, len(durable)+len(mem))
	for _, rec := range durable {
		byID[rec.ContentUnitID] = rec
	}
	for _, rec := range mem {
		if _, ok := byID[rec.ContentUnitID]; !ok || rec.Completed {
			byID[rec.ContentUnitID] = rec
		}
	}
	out := make([]domain.ProgressRecord, 0, len(byID))
	for _, rec := range byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentUnitID < out[j].ContentUnitID })
	return out, nil
}

func (s *FallbackProgressStore) MarkCompleted(ctx context.Context, contentUnitID string, at time.Time, source domain.CompletionSource) (domain.ProgressRecord, bool, error) {
	if !s.Degraded() {
		rec, created, err := s.durable.MarkCompleted(ctx, contentUnitID, at, source)
		if err == nil || !unavailable(err) {
			return rec, created, err
		}
		s.degrade("mark_completed", err)
	}
	return s.memory.MarkCompleted(ctx, contentUnitID, at, source)
}
