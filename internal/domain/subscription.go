package domain

import "time"

// Subscription est fourni par le système de facturation: lecture seule pour le moteur.
type Subscription struct {
	ID string

	// PlanType relie l'abonnement à la suite de contenus (ex: "21-days").
	PlanType string

	StartDate time.Time
	EndDate   time.Time
	IsActive  bool

	// LastCompletedDay = max(dayIndex) des contenus terminés. Ne redescend jamais.
	LastCompletedDay int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Subscription) Validate() error {
	if s.ID == "" {
		return &InvalidScheduleError{Field: "id", Reason: "missing"}
	}
	if s.StartDate.IsZero() {
		return &InvalidScheduleError{Field: "startDate", Reason: "missing"}
	}
	if !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate) {
		return &InvalidScheduleError{Field: "endDate", Reason: "before startDate"}
	}
	return nil
}

// ContentUnit est le contenu d'un jour du plan.
type ContentUnit struct {
	ID       string
	PlanType string
	DayIndex int
	Title    string
	MediaRef string

	// Duration <= 0 signifie inconnue.
	Duration time.Duration
}

func (c ContentUnit) KnownDuration() (time.Duration, bool) {
	if c.Duration <= 0 {
		return 0, false
	}
	return c.Duration, true
}
