package domain

import (
	"testing"
	"time"
)

var testUnlock = time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)

func TestEvaluate_LockedBeforeUnlock(t *testing.T) {
	p := DefaultLivePolicy()
	for _, before := range []time.Duration{time.Nanosecond, time.Second, time.Hour, 72 * time.Hour} {
		got := Evaluate(testUnlock, testUnlock.Add(-before), ProgressRecord{}, 10*time.Minute, p)
		if got != StateLocked {
			t.Fatalf("now=unlock-%s: want %q, got %q", before, StateLocked, got)
		}
	}
}

func TestEvaluate_UnlockBoundaryIsInclusive(t *testing.T) {
	got := Evaluate(testUnlock, testUnlock, ProgressRecord{}, 0, DefaultLivePolicy())
	if got != StateLive {
		t.Fatalf("want %q, got %q", StateLive, got)
	}
}

func TestEvaluate_CompletedRecordOverridesTime(t *testing.T) {
	done := ProgressRecord{ContentUnitID: "u1", Completed: true, CompletedAt: testUnlock}
	for _, now := range []time.Time{testUnlock.Add(-48 * time.Hour), testUnlock, testUnlock.Add(time.Minute), testUnlock.Add(30 * 24 * time.Hour)} {
		if got := Evaluate(testUnlock, now, done, 10*time.Minute, DefaultLivePolicy()); got != StateCompleted {
			t.Fatalf("now=%s: want %q, got %q", now, StateCompleted, got)
		}
	}
}

func TestEvaluate_DurationDrivesCompletion(t *testing.T) {
	d := 600 * time.Second
	p := DefaultLivePolicy()
	if got := Evaluate(testUnlock, testUnlock.Add(d-time.Second), ProgressRecord{}, d, p); got != StateLive {
		t.Fatalf("just before duration: want %q, got %q", StateLive, got)
	}
	if got := Evaluate(testUnlock, testUnlock.Add(d), ProgressRecord{}, d, p); got != StateCompleted {
		t.Fatalf("at duration: want %q, got %q", StateCompleted, got)
	}
	if got := Evaluate(testUnlock, testUnlock.Add(601*time.Second), ProgressRecord{}, d, p); got != StateCompleted {
		t.Fatalf("after duration: want %q, got %q", StateCompleted, got)
	}
}

func TestEvaluate_FallbackDurationWhenUnknown(t *testing.T) {
	p := LivePolicy{FallbackDuration: 7200 * time.Second, MaxLiveWindow: 24 * time.Hour}
	if got := Evaluate(testUnlock, testUnlock.Add(7199*time.Second), ProgressRecord{}, 0, p); got != StateLive {
		t.Fatalf("+7199s: want %q, got %q", StateLive, got)
	}
	if got := Evaluate(testUnlock, testUnlock.Add(7201*time.Second), ProgressRecord{}, 0, p); got != StateCompleted {
		t.Fatalf("+7201s: want %q, got %q", StateCompleted, got)
	}
}

func TestEvaluate_CeilingCapsLiveWindow(t *testing.T) {
	// Fallback énorme: seul le plafond 24h peut terminer le live.
	p := LivePolicy{FallbackDuration: 1000 * time.Hour, MaxLiveWindow: 24 * time.Hour}
	now := testUnlock.Add(24*time.Hour + time.Second)
	if got := Evaluate(testUnlock, now, ProgressRecord{}, 0, p); got != StateCompleted {
		t.Fatalf("want %q, got %q", StateCompleted, got)
	}
	// Une durée connue aberrante est elle aussi plafonnée.
	if got := Evaluate(testUnlock, now, ProgressRecord{}, 72*time.Hour, p); got != StateCompleted {
		t.Fatalf("known duration: want %q, got %q", StateCompleted, got)
	}
}

func TestEvaluate_ReloadSelfHeals(t *testing.T) {
	// Rechargement 5h après le déblocage, record persisté non terminé, durée inconnue:
	// la fenêtre reste live tant qu'on est sous le plafond.
	p := LivePolicy{FallbackDuration: 1000 * time.Hour, MaxLiveWindow: 24 * time.Hour}
	got := Evaluate(testUnlock, testUnlock.Add(5*time.Hour), ProgressRecord{ContentUnitID: "u1", Completed: false}, 0, p)
	if got != StateLive {
		t.Fatalf("want %q, got %q", StateLive, got)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to DerivedState
		want     bool
	}{
		{"", StateLocked, true},
		{StateLocked, StateLive, true},
		{StateLocked, StateCompleted, true},
		{StateLive, StateCompleted, true},
		{StateLive, StateLive, true},
		{StateLive, StateLocked, false},
		{StateCompleted, StateLive, false},
		{StateCompleted, StateLocked, false},
		{StateLocked, "bogus", false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%q, %q): want %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
