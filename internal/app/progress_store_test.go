package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/adapters/memstore"
	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
)

func TestFallbackProgressStore_UsesDurableWhenHealthy(t *testing.T) {
	durable := newFakeProgressStore()
	mem := memstore.NewProgressStore()
	s := NewFallbackProgressStore(zerolog.Nop(), durable, mem)
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 21, 30, 0, 0, time.UTC)

	if _, created, err := s.MarkCompleted(ctx, "u1", at, domain.SourcePoll); err != nil || !created {
		t.Fatalf("MarkCompleted: created=%v err=%v", created, err)
	}
	if durable.writeCount() != 1 {
		t.Fatalf("expected durable write")
	}
	if _, err := mem.Get(ctx, "u1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("memory store must stay untouched, got %v", err)
	}
	if s.Degraded() {
		t.Fatalf("store must not be degraded")
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFallbackProgressStore_WriteFailureDegradesToMemory(t *testing.T) {
	durable := newFakeProgressStore()
	durable.put(domain.ProgressRecord{ContentUnitID: "old", Completed: true, Source: domain.SourceManual})
	s := NewFallbackProgressStore(zerolog.Nop(), durable, memstore.NewProgressStore())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)

	durable.setFail(errStoreDown)
	rec, created, err := s.MarkCompleted(ctx, "u1", at, domain.SourcePlayer)
	if err != nil || !created {
		t.Fatalf("completion must still succeed: created=%v err=%v", created, err)
	}
	if rec.Source != domain.SourcePlayer || !rec.CompletedAt.Equal(at) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !s.Degraded() {
		t.Fatalf("expected degraded store")
	}

	got, err := s.Get(ctx, "u1")
	if err != nil || !got.Completed {
		t.Fatalf("completion must be visible for the current visit: %+v err=%v", got, err)
	}

	// Une fois dégradé, on ne revient pas sur le store durable.
	durable.setFail(nil)
	if _, _, err := s.MarkCompleted(ctx, "u2", at, domain.SourcePoll); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if durable.writeCount() != 0 {
		t.Fatalf("degraded store wrote to durable: %d", durable.writeCount())
	}
	list, err := s.List(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("List: %v %+v", err, list)
	}
}

func TestFallbackProgressStore_ReadFailureMeansNotCompleted(t *testing.T) {
	durable := newFakeProgressStore()
	durable.put(domain.ProgressRecord{ContentUnitID: "u1", Completed: true})
	durable.setFail(errStoreDown)
	s := NewFallbackProgressStore(zerolog.Nop(), durable, memstore.NewProgressStore())

	if _, err := s.Get(context.Background(), "u1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("unreadable record must read as absent, got %v", err)
	}
	if !s.Degraded() {
		t.Fatalf("expected degraded store")
	}
}

func TestFallbackProgressStore_ListMergesMemory(t *testing.T) {
	durable := newFakeProgressStore()
	durable.put(domain.ProgressRecord{ContentUnitID: "a", Completed: false})
	durable.put(domain.ProgressRecord{ContentUnitID: "b", Completed: true, Source: domain.SourceManual})
	mem := memstore.NewProgressStore()
	ctx := context.Background()
	if _, _, err := mem.MarkCompleted(ctx, "a", time.Now(), domain.SourceFallback); err != nil {
		t.Fatalf("seed memory: %v", err)
	}
	s := NewFallbackProgressStore(zerolog.Nop(), durable, mem)

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ContentUnitID != "a" || !list[0].Completed || list[0].Source != domain.SourceFallback {
		t.Fatalf("unexpected merge: %+v", list)
	}
	if s.Degraded() {
		t.Fatalf("healthy list must not degrade")
	}
}

func TestFallbackProgressStore_ContextErrorsDoNotDegrade(t *testing.T) {
	durable := newFakeProgressStore()
	durable.put(domain.ProgressRecord{ContentUnitID: "u1", Completed: true, Source: domain.SourcePoll})
	s := NewFallbackProgressStore(zerolog.Nop(), durable, memstore.NewProgressStore())
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)

	// Une requête HTTP annulée ou un arrêt en cours ne doit pas couper le store durable.
	for _, cause := range []error{context.Canceled, context.DeadlineExceeded, errors.New("constraint failed")} {
		durable.setFail(cause)
		if _, err := s.Get(ctx, "u1"); !errors.Is(err, cause) {
			t.Fatalf("Get: expected %v, got %v", cause, err)
		}
		if _, _, err := s.MarkCompleted(ctx, "u2", at, domain.SourcePlayer); !errors.Is(err, cause) {
			t.Fatalf("MarkCompleted: expected %v, got %v", cause, err)
		}
		if _, err := s.List(ctx); !errors.Is(err, cause) {
			t.Fatalf("List: expected %v, got %v", cause, err)
		}
		if s.Degraded() {
			t.Fatalf("%v must not degrade the store", cause)
		}
	}

	durable.setFail(nil)
	rec, err := s.Get(ctx, "u1")
	if err != nil || !rec.Completed {
		t.Fatalf("durable completion must stay visible: %+v err=%v", rec, err)
	}
	if _, created, err := s.MarkCompleted(ctx, "u2", at, domain.SourcePlayer); err != nil || !created {
		t.Fatalf("MarkCompleted after recovery: created=%v err=%v", created, err)
	}
	if durable.writeCount() != 1 {
		t.Fatalf("expected the write to reach the durable store, got %d", durable.writeCount())
	}
}
