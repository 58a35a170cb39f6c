package app

import (
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
)

// CountdownPresenter calcule le temps restant avant déblocage et signale
// le passage à zéro une seule fois, même si Tick est appelé à chaque seconde.
type CountdownPresenter struct {
	unlock time.Time

	mu       sync.Mutex
	signaled bool
}

func NewCountdownPresenter(unlock time.Time) *CountdownPresenter {
	return &CountdownPresenter{unlock: unlock}
}

func (p *CountdownPresenter) UnlockAt() time.Time { return p.unlock }

func (p *CountdownPresenter) Remaining(now time.Time) domain.Remaining {
	return domain.RemainingUntil(p.unlock, now)
}

// Tick renvoie unlockedNow=true au premier appel où le restant vaut zéro.
func (p *CountdownPresenter) Tick(now time.Time) (domain.Remaining, bool) {
	rem := p.Remaining(now)
	if !rem.IsZero() {
		return rem, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signaled {
		return rem, false
	}
	p.signaled = true
	return rem, true
}
