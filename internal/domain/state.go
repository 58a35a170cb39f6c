package domain

import "time"

type DerivedState string

const (
	StateLocked    DerivedState = "locked"
	StateLive      DerivedState = "live"
	StateCompleted DerivedState = "completed"
)

func (s DerivedState) IsTerminal() bool {
	return s == StateCompleted
}

func (s DerivedState) rank() int {
	switch s {
	case StateLocked:
		return 1
	case StateLive:
		return 2
	case StateCompleted:
		return 3
	default:
		return 0
	}
}

// CanTransition: l'état d'un contenu ne fait qu'avancer (locked -> live -> completed).
func CanTransition(from, to DerivedState) bool {
	if from == to {
		return true
	}
	if from == "" {
		return to.rank() > 0
	}
	return from.rank() > 0 && to.rank() > from.rank()
}

// LivePolicy borne la fenêtre "live".
type LivePolicy struct {
	// FallbackDuration remplace la durée du média quand elle est inconnue.
	FallbackDuration time.Duration
	// MaxLiveWindow est un plafond dur, même avec une durée connue.
	MaxLiveWindow time.Duration
}

func DefaultLivePolicy() LivePolicy {
	return LivePolicy{FallbackDuration: 2 * time.Hour, MaxLiveWindow: 24 * time.Hour}
}

func (p LivePolicy) EffectiveDuration(duration time.Duration) time.Duration {
	if duration > 0 {
		return duration
	}
	if p.FallbackDuration > 0 {
		return p.FallbackDuration
	}
	return DefaultLivePolicy().FallbackDuration
}

// Evaluate dérive l'état d'un contenu. Fonction pure, à rappeler à chaque tick:
// c'est elle qui réconcilie l'enregistrement persisté et l'heure courante.
func Evaluate(unlock time.Time, now time.Time, progress ProgressRecord, duration time.Duration, policy LivePolicy) DerivedState {
	if progress.Completed {
		return StateCompleted
	}
	if now.Before(unlock) {
		return StateLocked
	}
	elapsed := now.Sub(unlock)
	if elapsed >= policy.EffectiveDuration(duration) {
		return StateCompleted
	}
	if policy.MaxLiveWindow > 0 && elapsed >= policy.MaxLiveWindow {
		return StateCompleted
	}
	return StateLive
}
