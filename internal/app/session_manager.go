package app

import (
	"context"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

// SessionManager garde les sessions ouvertes et ferme celles qui ne sont plus consultées.
type SessionManager struct {
	logger   zerolog.Logger
	deps     SessionDeps
	settings *SettingsService
	limiter  *SessionLimiter

	TickInterval time.Duration
	IdleTimeout  time.Duration
	// AcquireTimeout borne l'attente d'une place quand maxSessions est atteint.
	AcquireTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// limiter est optionnel (nil = pas de plafond).
func NewSessionManager(logger zerolog.Logger, deps SessionDeps, settings *SettingsService, limiter *SessionLimiter) *SessionManager {
	return &SessionManager{
		logger:         logger,
		deps:           deps,
		settings:       settings,
		limiter:        limiter,
		TickInterval:   60 * time.Second,
		IdleTimeout:    2 * time.Hour,
		AcquireTimeout: 2 * time.Second,
		sessions:       map[string]*Session{},
	}
}

// ApplySettings est appelé après chaque PUT /settings.
func (m *SessionManager) ApplySettings(s domain.Settings) {
	if m.limiter != nil {
		m.limiter.SetLimit(s.Normalize().MaxSessions)
	}
}

func (m *SessionManager) acquire(ctx context.Context, id string) error {
	if m.limiter == nil {
		return nil
	}
	if m.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.AcquireTimeout)
		defer cancel()
	}
	return m.limiter.Acquire(ctx, id)
}

func (m *SessionManager) release(id string) {
	if m.limiter != nil && !m.limiter.Release(id) {
		m.logger.Debug().Str("session_id", id).Msg("session slot already released")
	}
}

func (m *SessionManager) Open(ctx context.Context, subscriptionID, contentUnitID string) (*Session, error) {
	cfg := SessionConfigFromSettings(domain.DefaultSettings())
	if m.settings != nil {
		s, err := m.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		cfg = SessionConfigFromSettings(s)
	}

	id := xid.New().String()
	if err := m.acquire(ctx, id); err != nil {
		m.logger.Warn().Int("open_sessions", m.Count()).Msg("session limit reached")
		return nil, err
	}

	sess, err := NewSession(ctx, id, m.deps, cfg, subscriptionID, contentUnitID)
	if err != nil {
		m.release(id)
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = sess
	n := len(m.sessions)
	m.mu.Unlock()
	m.logger.Info().Str("session_id", id).Int("open_sessions", n).Msg("session opened")
	return sess, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return sess, nil
}

func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ports.ErrNotFound
	}
	sess.Close()
	m.release(id)
	return nil
}

func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CloseAll ferme toutes les sessions (arrêt du serveur).
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, sess := range m.sessions {
		all = append(all, sess)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, sess := range all {
		sess.Close()
		m.release(sess.ID())
	}
}

func (m *SessionManager) Run(ctx context.Context) {
	interval := m.TickInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			m.logger.Info().Msg("session manager stopped")
			return
		case <-ticker.C:
			m.reap(m.deps.Clock.Now())
		}
	}
}

func (m *SessionManager) reap(now time.Time) int {
	idle := m.IdleTimeout
	if idle <= 0 {
		idle = 2 * time.Hour
	}

	m.mu.Lock()
	stale := []*Session{}
	for id, sess := range m.sessions {
		if sess.Closed() || now.Sub(sess.LastSeen()) >= idle {
			stale = append(stale, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range stale {
		sess.Close()
		m.release(sess.ID())
		m.logger.Debug().Str("session_id", sess.ID()).Msg("idle session reaped")
	}
	return len(stale)
}
