package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
)

type SessionConfig struct {
	Schedule       domain.Schedule
	Policy         domain.LivePolicy
	Intervals      TimerIntervals
	EndedTolerance time.Duration
	PlayerOrigins  []string
}

func SessionConfigFromSettings(s domain.Settings) SessionConfig {
	s = s.Normalize()
	return SessionConfig{
		Schedule: s.Schedule(),
		Policy:   s.LivePolicy(),
		Intervals: TimerIntervals{
			Countdown:       time.Second,
			Poll:            s.PollInterval(),
			FallbackTimeout: s.FallbackTimeout(),
		},
		EndedTolerance: s.EndedTolerance(),
		PlayerOrigins:  append([]string(nil), s.PlayerOrigins...),
	}
}

type SessionDeps struct {
	Logger        zerolog.Logger
	Clock         ports.Clock
	Subscriptions ports.SubscriptionRepository
	Content       ports.ContentRepository
	Progress      ports.ProgressStore
	Durations     *DurationResolver
	Aggregator    *CompletionAggregator
	Bus           ports.EventBus
}

type SessionSnapshot struct {
	ID               string              `json:"id"`
	SubscriptionID   string              `json:"subscriptionId"`
	ContentUnitID    string              `json:"contentUnitId"`
	DayIndex         int                 `json:"dayIndex"`
	Title            string              `json:"title,omitempty"`
	MediaRef         string              `json:"mediaRef,omitempty"`
	State            domain.DerivedState `json:"state"`
	UnlockAt         time.Time           `json:"unlockAt"`
	Remaining        domain.Remaining    `json:"remaining"`
	ElapsedSeconds   int                 `json:"elapsedSeconds"`
	LiveWindowActive bool                `json:"liveWindowActive"`
	DurationSeconds  int                 `json:"durationSeconds,omitempty"`
	DurationKnown    bool                `json:"durationKnown"`
	Completed        bool                `json:"completed"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
	CompletionSource string              `json:"completionSource,omitempty"`
	TimerPhase       TimerPhase          `json:"timerPhase"`
}

// Session est la surface de visionnage d'un abonné: un contenu actif à la fois,
// avec ses timers, son listener player et son compte à rebours.
//
// Toutes les entrées (API, timers, player) passent par mu. Les callbacks d'un
// contenu qui n'est plus actif sont ignorés grâce à la génération des timers.
type Session struct {
	id     string
	deps   SessionDeps
	cfg    SessionConfig
	logger zerolog.Logger
	player *PlayerRelay
	timers *TimerCoordinator

	ctx    context.Context
	cancel context.CancelFunc

	mu               sync.Mutex
	sub              domain.Subscription
	unit             domain.ContentUnit
	unlock           time.Time
	countdown        *CountdownPresenter
	state            domain.DerivedState
	active           bool
	closed           bool
	lastSeen         time.Time
	detachPlayer     func()
	detachCompletion func()
}

func NewSession(ctx context.Context, id string, deps SessionDeps, cfg SessionConfig, subscriptionID, contentUnitID string) (*Session, error) {
	if deps.Subscriptions == nil || deps.Content == nil || deps.Progress == nil || deps.Aggregator == nil || deps.Clock == nil {
		return nil, errors.New("session: missing dependencies")
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, &CodedError{Code: CodeInvalidParams, Message: "missing subscriptionId"}
	}
	sub, err := deps.Subscriptions.Get(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger.With().Str("session_id", id).Str("subscription_id", sub.ID).Logger()
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		deps:     deps,
		cfg:      cfg,
		logger:   logger,
		player:   NewPlayerRelay(logger, cfg.PlayerOrigins),
		timers:   NewTimerCoordinator(deps.Clock, cfg.Intervals),
		ctx:      baseCtx,
		cancel:   cancel,
		sub:      sub,
		lastSeen: deps.Clock.Now(),
	}
	if err := s.Activate(ctx, contentUnitID); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Player() *PlayerRelay { return s.player }

func (s *Session) Timers() *TimerCoordinator { return s.timers }

// Activate change le contenu actif. Les timers et le listener player de l'ancien
// contenu sont coupés avant que quoi que ce soit soit armé pour le nouveau.
// En cas d'erreur, l'ancien contenu reste actif tel quel.
func (s *Session) Activate(ctx context.Context, contentUnitID string) error {
	contentUnitID = strings.TrimSpace(contentUnitID)
	if contentUnitID == "" {
		return &CodedError{Code: CodeInvalidParams, Message: "missing contentUnitId"}
	}
	unit, err := s.deps.Content.Get(ctx, contentUnitID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	sub := s.sub
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	if sub.PlanType != "" && unit.PlanType != "" && unit.PlanType != sub.PlanType {
		return &domain.InvalidScheduleError{Field: "contentUnitId", Reason: "not part of subscription plan"}
	}
	unlock, err := domain.UnlockInstant(sub.StartDate, unit.DayIndex, s.cfg.Schedule)
	if err != nil {
		return err
	}
	if s.deps.Durations != nil {
		if d, ok := s.deps.Durations.Resolve(ctx, unit); ok {
			unit.Duration = d
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.deactivateLocked()

	s.unit = unit
	s.unlock = unlock
	s.countdown = NewCountdownPresenter(unlock)
	s.state = ""
	s.active = true
	s.lastSeen = s.deps.Clock.Now()

	unitID := unit.ID
	s.detachCompletion = s.deps.Aggregator.OnCompleted(unitID, func(domain.ProgressRecord) {
		s.timers.CancelUnit(unitID)
	})
	s.detachPlayer = s.player.OnPlayerStateChange(func(evt ports.PlayerEvent) {
		s.handlePlayerEvent(unitID, evt)
	})

	s.logger.Info().
		Str("content_unit_id", unitID).
		Int("day_index", unit.DayIndex).
		Time("unlock_at", unlock).
		Msg("content unit activated")
	s.refreshLocked(s.ctx)
	return nil
}

func (s *Session) deactivateLocked() {
	s.timers.Close()
	if s.detachPlayer != nil {
		s.detachPlayer()
		s.detachPlayer = nil
	}
	if s.detachCompletion != nil {
		s.detachCompletion()
		s.detachCompletion = nil
	}
	s.active = false
}

// Close coupe tout. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.deactivateLocked()
	s.mu.Unlock()
	s.cancel()
	s.logger.Debug().Msg("session closed")
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.deps.Clock.Now()
	s.mu.Unlock()
}

func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// DeriveState évalue l'état du contenu actif à now, sans effet de bord.
func (s *Session) DeriveState(ctx context.Context, now time.Time) domain.DerivedState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return ""
	}
	return domain.Evaluate(s.unlock, now, s.progressLocked(ctx), s.unit.Duration, s.cfg.Policy)
}

func (s *Session) RemainingUntilUnlock(now time.Time) domain.Remaining {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown == nil {
		return domain.Remaining{}
	}
	return s.countdown.Remaining(now)
}

func (s *Session) IsLiveWindowActive(ctx context.Context) bool {
	return s.DeriveState(ctx, s.deps.Clock.Now()) == domain.StateLive
}

// MarkCompleted correspond au bouton "terminer" de l'UI.
func (s *Session) MarkCompleted(ctx context.Context) (domain.ProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ProgressRecord{}, ErrSessionClosed
	}
	if !s.active {
		return domain.ProgressRecord{}, &CodedError{Code: CodeInvalidParams, Message: "no active content unit"}
	}
	rec, _, err := s.deps.Aggregator.MarkCompleted(ctx, s.completionRequestLocked(domain.SourceManual))
	if err != nil {
		return domain.ProgressRecord{}, err
	}
	s.refreshLocked(ctx)
	return rec, nil
}

// HandlePlayerEvent traite un événement pour le contenu actif (sans filtre d'origine).
func (s *Session) HandlePlayerEvent(evt ports.PlayerEvent) {
	s.mu.Lock()
	unitID := s.unit.ID
	s.mu.Unlock()
	s.handlePlayerEvent(unitID, evt)
}

// Refresh réévalue l'état à l'heure courante et réaligne les timers.
func (s *Session) Refresh(ctx context.Context) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.deps.Clock.Now()
	if s.active && !s.closed {
		s.refreshLocked(ctx)
	}
	return s.snapshotLocked(ctx)
}

func (s *Session) Snapshot(ctx context.Context) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(ctx)
}

func (s *Session) snapshotLocked(ctx context.Context) SessionSnapshot {
	now := s.deps.Clock.Now()
	snap := SessionSnapshot{
		ID:             s.id,
		SubscriptionID: s.sub.ID,
		TimerPhase:     s.timers.Phase(),
	}
	if !s.active {
		return snap
	}
	rec := s.progressLocked(ctx)
	state := domain.Evaluate(s.unlock, now, rec, s.unit.Duration, s.cfg.Policy)

	snap.ContentUnitID = s.unit.ID
	snap.DayIndex = s.unit.DayIndex
	snap.Title = s.unit.Title
	snap.MediaRef = s.unit.MediaRef
	snap.State = state
	snap.UnlockAt = s.unlock
	snap.Remaining = s.countdown.Remaining(now)
	snap.LiveWindowActive = state == domain.StateLive
	if d, ok := s.unit.KnownDuration(); ok {
		snap.DurationKnown = true
		snap.DurationSeconds = int(d / time.Second)
	}
	if elapsed := now.Sub(s.unlock); elapsed > 0 {
		snap.ElapsedSeconds = int(elapsed / time.Second)
	}
	if rec.Completed {
		at := rec.CompletedAt
		snap.Completed = true
		snap.CompletedAt = &at
		snap.CompletionSource = string(rec.Source)
	}
	return snap
}

func (s *Session) progressLocked(ctx context.Context) domain.ProgressRecord {
	rec, err := s.deps.Progress.Get(ctx, s.unit.ID)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			s.logger.Debug().Err(err).Str("content_unit_id", s.unit.ID).Msg("progress read failed, treating as not completed")
		}
		return domain.ProgressRecord{ContentUnitID: s.unit.ID}
	}
	return rec
}

func (s *Session) completionRequestLocked(source domain.CompletionSource) CompletionRequest {
	return CompletionRequest{
		ContentUnitID:  s.unit.ID,
		SubscriptionID: s.sub.ID,
		DayIndex:       s.unit.DayIndex,
		Source:         source,
	}
}

func (s *Session) markCompletedLocked(source domain.CompletionSource) {
	if _, _, err := s.deps.Aggregator.MarkCompleted(s.ctx, s.completionRequestLocked(source)); err != nil {
		s.logger.Warn().Err(err).Str("content_unit_id", s.unit.ID).Str("source", string(source)).Msg("mark completed failed")
	}
}

// refreshLocked est le seul endroit où l'état dérivé pilote les timers.
func (s *Session) refreshLocked(ctx context.Context) domain.DerivedState {
	now := s.deps.Clock.Now()
	st := domain.Evaluate(s.unlock, now, s.progressLocked(ctx), s.unit.Duration, s.cfg.Policy)
	if st == s.state || !domain.CanTransition(s.state, st) {
		return st
	}
	prev := s.state
	s.state = st
	s.timers.Arm(s.unit.ID, st, TimerHooks{
		OnCountdownTick: s.onCountdownTick,
		OnPoll:          s.onPoll,
		OnFallback:      s.onFallback,
	})
	s.logger.Info().
		Str("content_unit_id", s.unit.ID).
		Str("from", string(prev)).
		Str("to", string(st)).
		Msg("content unit state changed")
	s.publishStateLocked(st, now)
	return st
}

func (s *Session) publishStateLocked(st domain.DerivedState, at time.Time) {
	if s.deps.Bus == nil {
		return
	}
	b, err := json.Marshal(map[string]any{
		"sessionId":     s.id,
		"contentUnitId": s.unit.ID,
		"state":         st,
		"at":            at.UTC(),
	})
	if err != nil {
		return
	}
	s.deps.Bus.Publish(ports.TopicSessionState, b)
}

// usable: verrou tenu, le callback appartient toujours au contenu actif.
func (s *Session) usableLocked(gen uint64) bool {
	return !s.closed && s.active && s.timers.Current(gen)
}

func (s *Session) onCountdownTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(gen) {
		return
	}
	if _, unlocked := s.countdown.Tick(s.deps.Clock.Now()); unlocked {
		s.refreshLocked(s.ctx)
	}
}

func (s *Session) onPoll(gen uint64) {
	s.mu.Lock()
	if !s.usableLocked(gen) {
		s.mu.Unlock()
		return
	}
	unit := s.unit
	s.mu.Unlock()

	// La durée peut nécessiter un appel réseau: hors verrou.
	d, known := unit.KnownDuration()
	if !known && s.deps.Durations != nil {
		d, known = s.deps.Durations.Resolve(s.ctx, unit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(gen) || s.unit.ID != unit.ID {
		return
	}
	if known {
		s.unit.Duration = d
		if s.deps.Clock.Now().Sub(s.unlock) >= d {
			s.markCompletedLocked(domain.SourcePoll)
		}
	}
	s.refreshLocked(s.ctx)
}

func (s *Session) onFallback(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.usableLocked(gen) {
		return
	}
	s.logger.Info().Str("content_unit_id", s.unit.ID).Msg("fallback timeout reached")
	s.markCompletedLocked(domain.SourceFallback)
	s.refreshLocked(s.ctx)
}

func (s *Session) handlePlayerEvent(unitID string, evt ports.PlayerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.active || unitID == "" || s.unit.ID != unitID {
		return
	}

	st := s.refreshLocked(s.ctx)
	if st != domain.StateLocked && playerReportsEnd(evt, s.cfg.EndedTolerance) {
		s.markCompletedLocked(domain.SourcePlayer)
	}

	// Le player connaît la durée réelle: on l'apprend pour cette session seulement.
	// Le message vient du navigateur; il ne touche ni au cache partagé ni à la base.
	if _, known := s.unit.KnownDuration(); !known {
		if d, ok := plausiblePlayerDuration(evt.TotalDuration); ok {
			s.unit.Duration = d
		} else if evt.TotalDuration > 0 {
			s.logger.Debug().Float64("total_duration", evt.TotalDuration).Str("content_unit_id", s.unit.ID).Msg("implausible player duration ignored")
		}
	}
	s.refreshLocked(s.ctx)
}

const (
	minPlayerDuration = 30 * time.Second
	maxPlayerDuration = 24 * time.Hour
)

func plausiblePlayerDuration(seconds float64) (time.Duration, bool) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, false
	}
	if seconds < minPlayerDuration.Seconds() || seconds > maxPlayerDuration.Seconds() {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func playerReportsEnd(evt ports.PlayerEvent, tolerance time.Duration) bool {
	if evt.State == ports.PlayerEnded {
		return true
	}
	if evt.State != ports.PlayerPlaying || evt.TotalDuration <= 0 {
		return false
	}
	remaining := evt.TotalDuration - evt.CurrentTime
	return remaining <= tolerance.Seconds()
}
