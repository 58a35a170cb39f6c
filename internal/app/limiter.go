package app

import (
	"context"
	"errors"
	"sync"
)

var ErrTooManySessions = errors.New("too many open sessions")

// SessionLimiter plafonne le nombre de sessions ouvertes. Chaque place est
// réservée au nom d'un identifiant de session: rendre deux fois la même place
// (fermeture explicite puis reaper, arrêt du serveur) ne libère qu'un slot.
// Le plafond suit les réglages (maxSessions) et change à chaud via SetLimit:
// le baisser ne ferme pas les sessions existantes, il bloque seulement les suivantes.
type SessionLimiter struct {
	mu     sync.Mutex
	limit  int
	held   map[string]struct{}
	notify chan struct{}
}

func NewSessionLimiter(limit int) *SessionLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &SessionLimiter{limit: limit, held: map[string]struct{}{}, notify: make(chan struct{})}
}

func (l *SessionLimiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// InFlight compte les sessions qui tiennent une place.
func (l *SessionLimiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func (l *SessionLimiter) Holds(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[sessionID]
	return ok
}

func (l *SessionLimiter) SetLimit(limit int) {
	if limit <= 0 {
		limit = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit == limit {
		return
	}
	l.limit = limit
	l.wakeLocked()
}

// takeLocked réserve une place pour sessionID; une session qui en tient déjà une la garde.
func (l *SessionLimiter) takeLocked(sessionID string) bool {
	if _, ok := l.held[sessionID]; ok {
		return true
	}
	if len(l.held) >= l.limit {
		return false
	}
	l.held[sessionID] = struct{}{}
	return true
}

// TryAcquire ne bloque jamais.
func (l *SessionLimiter) TryAcquire(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.takeLocked(sessionID)
}

// Acquire attend une place libre pour sessionID; ErrTooManySessions si ctx expire avant.
func (l *SessionLimiter) Acquire(ctx context.Context, sessionID string) error {
	for {
		l.mu.Lock()
		if l.takeLocked(sessionID) {
			l.mu.Unlock()
			return nil
		}
		ch := l.notify
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ErrTooManySessions
		case <-ch:
		}
	}
}

// Release rend la place de sessionID. false si elle n'était pas (ou plus) tenue.
func (l *SessionLimiter) Release(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[sessionID]; !ok {
		return false
	}
	delete(l.held, sessionID)
	l.wakeLocked()
	return true
}

// wakeLocked réveille tous les waiters en fermant le channel puis en le recréant.
func (l *SessionLimiter) wakeLocked() {
	close(l.notify)
	l.notify = make(chan struct{})
}
