package app

import (
	"testing"
	"time"
)

func TestCountdownPresenter_SignalsUnlockOnce(t *testing.T) {
	unlock := time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)
	p := NewCountdownPresenter(unlock)

	rem, unlocked := p.Tick(unlock.Add(-90 * time.Second))
	if unlocked || rem.Minutes != 1 || rem.Seconds != 30 {
		t.Fatalf("before unlock: rem=%+v unlocked=%v", rem, unlocked)
	}

	if _, unlocked := p.Tick(unlock); !unlocked {
		t.Fatalf("expected unlockedNow at the unlock instant")
	}
	for i := 1; i <= 3; i++ {
		rem, unlocked := p.Tick(unlock.Add(time.Duration(i) * time.Second))
		if unlocked {
			t.Fatalf("unlockedNow must fire only once (tick %d)", i)
		}
		if !rem.IsZero() {
			t.Fatalf("remaining must be clamped at zero, got %+v", rem)
		}
	}
}
