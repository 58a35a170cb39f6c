package app

import (
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type TimerPhase string

const (
	PhaseIdle        TimerPhase = "idle"
	PhaseArmedLocked TimerPhase = "armed-locked"
	PhaseArmedLive   TimerPhase = "armed-live"
	PhaseDisarmed    TimerPhase = "disarmed"
)

type TimerIntervals struct {
	Countdown       time.Duration
	Poll            time.Duration
	FallbackTimeout time.Duration
}

func DefaultTimerIntervals() TimerIntervals {
	return TimerIntervals{Countdown: time.Second, Poll: 5 * time.Second, FallbackTimeout: 30 * time.Minute}
}

// TimerHooks sont appelés depuis les goroutines des timers.
// Chaque hook reçoit la génération qui l'a armé: à l'appelant de vérifier
// qu'elle est toujours courante (Current) sous son propre verrou.
type TimerHooks struct {
	OnCountdownTick func(gen uint64)
	OnPoll          func(gen uint64)
	OnFallback      func(gen uint64)
}

// TimerCoordinator possède tous les timers d'un contenu actif.
//
// idle -> armed-locked (countdown) -> armed-live (poll + fallback) -> disarmed.
// Changer de contenu coupe d'abord tous les timers de l'ancien, puis arme le nouveau.
type TimerCoordinator struct {
	clock     ports.Clock
	intervals TimerIntervals

	mu        sync.Mutex
	unitID    string
	state     domain.DerivedState
	phase     TimerPhase
	gen       uint64
	timers    []ports.Timer
	cancelled int
	fired     int
	dropped   int
}

func NewTimerCoordinator(clock ports.Clock, intervals TimerIntervals) *TimerCoordinator {
	def := DefaultTimerIntervals()
	if intervals.Countdown <= 0 {
		intervals.Countdown = def.Countdown
	}
	if intervals.Poll <= 0 {
		intervals.Poll = def.Poll
	}
	if intervals.FallbackTimeout <= 0 {
		intervals.FallbackTimeout = def.FallbackTimeout
	}
	return &TimerCoordinator{clock: clock, intervals: intervals, phase: PhaseIdle}
}

func phaseFor(state domain.DerivedState) TimerPhase {
	switch state {
	case domain.StateLocked:
		return PhaseArmedLocked
	case domain.StateLive:
		return PhaseArmedLive
	default:
		return PhaseDisarmed
	}
}

// Arm aligne les timers sur l'état dérivé de unitID et renvoie la génération courante.
// Un état qui régresse (live -> locked) pour le même contenu est ignoré.
func (c *TimerCoordinator) Arm(unitID string, state domain.DerivedState, hooks TimerHooks) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if unitID != c.unitID {
		c.stopLocked()
		c.gen++
		c.unitID = unitID
		c.state = ""
		c.phase = PhaseIdle
	}
	if !domain.CanTransition(c.state, state) {
		return c.gen
	}
	next := phaseFor(state)
	if next == c.phase && c.state == state {
		return c.gen
	}

	c.stopLocked()
	c.gen++
	c.state = state
	c.phase = next
	gen := c.gen

	switch next {
	case PhaseArmedLocked:
		c.timers = append(c.timers, c.clock.Every(c.intervals.Countdown, c.wrap(gen, hooks.OnCountdownTick)))
	case PhaseArmedLive:
		c.timers = append(c.timers,
			c.clock.Every(c.intervals.Poll, c.wrap(gen, hooks.OnPoll)),
			c.clock.AfterFunc(c.intervals.FallbackTimeout, c.wrap(gen, hooks.OnFallback)),
		)
	}
	return gen
}

func (c *TimerCoordinator) wrap(gen uint64, fn func(uint64)) func() {
	return func() {
		c.mu.Lock()
		if gen != c.gen {
			c.dropped++
			c.mu.Unlock()
			return
		}
		c.fired++
		c.mu.Unlock()
		if fn != nil {
			fn(gen)
		}
	}
}

// CancelUnit coupe les timers de unitID s'il est toujours le contenu actif.
func (c *TimerCoordinator) CancelUnit(unitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unitID == "" || unitID != c.unitID || c.phase == PhaseDisarmed {
		return
	}
	c.stopLocked()
	c.gen++
	c.state = domain.StateCompleted
	c.phase = PhaseDisarmed
}

// Close coupe tout et oublie le contenu actif.
func (c *TimerCoordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.gen++
	c.unitID = ""
	c.state = ""
	c.phase = PhaseIdle
}

func (c *TimerCoordinator) stopLocked() {
	for _, t := range c.timers {
		t.Stop()
		c.cancelled++
	}
	c.timers = nil
}

// Current indique si gen est toujours la génération armée.
func (c *TimerCoordinator) Current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

func (c *TimerCoordinator) Phase() TimerPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *TimerCoordinator) UnitID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unitID
}

// Active compte les timers armés.
func (c *TimerCoordinator) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Cancelled compte les timers coupés depuis la création.
func (c *TimerCoordinator) Cancelled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Dropped compte les déclenchements ignorés car leur génération était périmée.
func (c *TimerCoordinator) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *TimerCoordinator) Fired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}
