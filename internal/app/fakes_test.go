package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type memSubsRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Subscription
}

func newMemSubsRepo(subs ...domain.Subscription) *memSubsRepo {
	r := &memSubsRepo{byID: map[string]domain.Subscription{}}
	for _, s := range subs {
		r.byID[s.ID] = s
	}
	return r
}

func (r *memSubsRepo) Get(ctx context.Context, id string) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return domain.Subscription{}, ports.ErrNotFound
	}
	return sub, nil
}

func (r *memSubsRepo) List(ctx context.Context, limit int) ([]domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Subscription, 0, len(r.byID))
	for _, sub := range r.byID {
		out = append(out, sub)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memSubsRepo) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byID[sub.ID]; ok {
		sub.LastCompletedDay = prev.LastCompletedDay
	}
	r.byID[sub.ID] = sub
	return sub, nil
}

func (r *memSubsRepo) MarkCompletedDayMax(ctx context.Context, id string, day int) (domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.byID[id]
	if !ok {
		return domain.Subscription{}, ports.ErrNotFound
	}
	if day > sub.LastCompletedDay {
		sub.LastCompletedDay = day
		r.byID[id] = sub
	}
	return sub, nil
}

type memContentRepo struct {
	mu        sync.Mutex
	byID      map[string]domain.ContentUnit
	durations map[string]time.Duration
}

func newMemContentRepo(units ...domain.ContentUnit) *memContentRepo {
	r := &memContentRepo{byID: map[string]domain.ContentUnit{}, durations: map[string]time.Duration{}}
	for _, u := range units {
		r.byID[u.ID] = u
	}
	return r
}

func (r *memContentRepo) Get(ctx context.Context, id string) (domain.ContentUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ContentUnit{}, ports.ErrNotFound
	}
	return u, nil
}

func (r *memContentRepo) ListByPlan(ctx context.Context, planType string) ([]domain.ContentUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ContentUnit{}
	for _, u := range r.byID {
		if u.PlanType == planType {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayIndex < out[j].DayIndex })
	return out, nil
}

func (r *memContentRepo) Upsert(ctx context.Context, unit domain.ContentUnit) (domain.ContentUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[unit.ID] = unit
	return unit, nil
}

func (r *memContentRepo) SetDuration(ctx context.Context, id string, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	u.Duration = d
	r.byID[id] = u
	r.durations[id] = d
	return nil
}

func (r *memContentRepo) persisted(id string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.durations[id]
}

type memSettingsRepo struct {
	mu sync.Mutex
	s  domain.Settings
}

func (r *memSettingsRepo) Get(ctx context.Context) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s, nil
}

func (r *memSettingsRepo) Put(ctx context.Context, s domain.Settings) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.s = s
	return s, nil
}

// fakeProgressStore compte les écritures et peut simuler une panne.
type fakeProgressStore struct {
	mu     sync.Mutex
	byID   map[string]domain.ProgressRecord
	writes int
	fail   error
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{byID: map[string]domain.ProgressRecord{}}
}

func (s *fakeProgressStore) setFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *fakeProgressStore) Get(ctx context.Context, id string) (domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return domain.ProgressRecord{}, s.fail
	}
	rec, ok := s.byID[id]
	if !ok {
		return domain.ProgressRecord{}, ports.ErrNotFound
	}
	return rec, nil
}

func (s *fakeProgressStore) List(ctx context.Context) ([]domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]domain.ProgressRecord, 0, len(s.byID))
	for _, rec := range s.byID {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentUnitID < out[j].ContentUnitID })
	return out, nil
}

// MarkCompleted n'est volontairement pas conditionnel: l'aggregator doit suffire.
func (s *fakeProgressStore) MarkCompleted(ctx context.Context, id string, at time.Time, source domain.CompletionSource) (domain.ProgressRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return domain.ProgressRecord{}, false, s.fail
	}
	s.writes++
	rec := domain.ProgressRecord{ContentUnitID: id, Completed: true, CompletedAt: at, Source: source}
	s.byID[id] = rec
	return rec, true, nil
}

func (s *fakeProgressStore) put(rec domain.ProgressRecord) {
	s.mu.Lock()
	s.byID[rec.ContentUnitID] = rec
	s.mu.Unlock()
}

func (s *fakeProgressStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type fakeDurationSource struct {
	calls   atomic.Int32
	d       time.Duration
	err     error
	release chan struct{}
}

func (f *fakeDurationSource) Duration(ctx context.Context, mediaRef string) (time.Duration, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.d, nil
}

var errStoreDown = fmt.Errorf("disk unavailable: %w", ports.ErrPersistenceUnavailable)
