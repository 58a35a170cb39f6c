package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidSchedule = errors.New("invalid schedule")

// InvalidScheduleError signale un abonnement ou un index de jour inexploitable.
// Côté UI, ça se traduit par "contenu indisponible".
type InvalidScheduleError struct {
	Field  string
	Reason string
}

func (e *InvalidScheduleError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return "invalid schedule: " + e.Reason
	}
	return fmt.Sprintf("invalid schedule: %s: %s", e.Field, e.Reason)
}

func (e *InvalidScheduleError) Unwrap() error { return ErrInvalidSchedule }

// Schedule fixe l'heure locale de déblocage quotidienne.
type Schedule struct {
	UnlockHour   int
	UnlockMinute int
	Location     *time.Location
}

func DefaultSchedule() Schedule {
	return Schedule{UnlockHour: 21, UnlockMinute: 0, Location: time.Local}
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s Schedule) validate() error {
	if s.UnlockHour < 0 || s.UnlockHour > 23 {
		return &InvalidScheduleError{Field: "unlockHour", Reason: fmt.Sprintf("out of range: %d", s.UnlockHour)}
	}
	if s.UnlockMinute < 0 || s.UnlockMinute > 59 {
		return &InvalidScheduleError{Field: "unlockMinute", Reason: fmt.Sprintf("out of range: %d", s.UnlockMinute)}
	}
	return nil
}

// UnlockInstant renvoie l'instant où le jour dayIndex (1-based) devient visible.
//
// Le calcul se fait en jours calendaires dans la location du schedule: time.Date
// normalise d+N, donc un changement d'heure (DST) ne décale jamais l'heure locale
// de déblocage, contrairement à start.Add(N*24h).
func UnlockInstant(start time.Time, dayIndex int, s Schedule) (time.Time, error) {
	if dayIndex < 1 {
		return time.Time{}, &InvalidScheduleError{Field: "dayIndex", Reason: fmt.Sprintf("must be >= 1, got %d", dayIndex)}
	}
	if start.IsZero() {
		return time.Time{}, &InvalidScheduleError{Field: "startDate", Reason: "missing"}
	}
	if err := s.validate(); err != nil {
		return time.Time{}, err
	}
	loc := s.location()
	y, m, d := start.In(loc).Date()
	return time.Date(y, m, d+dayIndex-1, s.UnlockHour, s.UnlockMinute, 0, 0, loc), nil
}

// DayIndexAt renvoie le dernier jour débloqué à now (0 avant le jour 1).
func DayIndexAt(start time.Time, now time.Time, s Schedule) (int, error) {
	first, err := UnlockInstant(start, 1, s)
	if err != nil {
		return 0, err
	}
	if now.Before(first) {
		return 0, nil
	}
	loc := s.location()
	fy, fm, fd := first.Date()
	ny, nm, nd := now.In(loc).Date()
	// Différence en jours calendaires, calculée en UTC pour ignorer les offsets.
	days := int(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC).Sub(time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	idx := days + 1
	unlock, err := UnlockInstant(start, idx, s)
	if err != nil {
		return 0, err
	}
	if now.Before(unlock) {
		idx--
	}
	return idx, nil
}
