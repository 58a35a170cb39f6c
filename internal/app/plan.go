package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type DayStatus struct {
	ContentUnitID    string              `json:"contentUnitId"`
	DayIndex         int                 `json:"dayIndex"`
	Title            string              `json:"title,omitempty"`
	State            domain.DerivedState `json:"state"`
	UnlockAt         time.Time           `json:"unlockAt"`
	Remaining        domain.Remaining    `json:"remaining"`
	DurationSeconds  int                 `json:"durationSeconds,omitempty"`
	Completed        bool                `json:"completed"`
	CompletedAt      *time.Time          `json:"completedAt,omitempty"`
	CompletionSource string              `json:"completionSource,omitempty"`
}

type PlanOverview struct {
	Subscription SubscriptionDTO `json:"subscription"`
	CurrentDay   int             `json:"currentDay"`
	Days         []DayStatus     `json:"days"`
}

// PlanService donne la vue "liste des jours" d'un abonnement, sans ouvrir de session.
type PlanService struct {
	subs      ports.SubscriptionRepository
	content   ports.ContentRepository
	progress  ports.ProgressStore
	durations *DurationResolver
	settings  *SettingsService
}

func NewPlanService(subs ports.SubscriptionRepository, content ports.ContentRepository, progress ports.ProgressStore, durations *DurationResolver, settings *SettingsService) *PlanService {
	return &PlanService{subs: subs, content: content, progress: progress, durations: durations, settings: settings}
}

func (p *PlanService) Overview(ctx context.Context, subscriptionID string, now time.Time) (PlanOverview, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return PlanOverview{}, &CodedError{Code: CodeInvalidParams, Message: "missing subscriptionId"}
	}
	sub, err := p.subs.Get(ctx, subscriptionID)
	if err != nil {
		return PlanOverview{}, err
	}
	if err := sub.Validate(); err != nil {
		return PlanOverview{}, err
	}

	settings := domain.DefaultSettings()
	if p.settings != nil {
		if settings, err = p.settings.Get(ctx); err != nil {
			return PlanOverview{}, err
		}
	}
	schedule := settings.Schedule()
	policy := settings.LivePolicy()

	units, err := p.content.ListByPlan(ctx, sub.PlanType)
	if err != nil {
		return PlanOverview{}, err
	}
	sort.Slice(units, func(i, j int) bool { return units[i].DayIndex < units[j].DayIndex })

	current, err := domain.DayIndexAt(sub.StartDate, now, schedule)
	if err != nil {
		return PlanOverview{}, err
	}

	days := make([]DayStatus, 0, len(units))
	for _, unit := range units {
		unlock, err := domain.UnlockInstant(sub.StartDate, unit.DayIndex, schedule)
		if err != nil {
			return PlanOverview{}, err
		}
		// Pas d'appel réseau ici: seulement les durées déjà connues.
		duration, _ := unit.KnownDuration()
		if p.durations != nil {
			if d, ok := p.durations.Cached(unit); ok {
				duration = d
			}
		}

		rec, err := p.progress.Get(ctx, unit.ID)
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			rec = domain.ProgressRecord{}
		}

		st := domain.Evaluate(unlock, now, rec, duration, policy)
		day := DayStatus{
			ContentUnitID: unit.ID,
			DayIndex:      unit.DayIndex,
			Title:         unit.Title,
			State:         st,
			UnlockAt:      unlock,
			Remaining:     domain.RemainingUntil(unlock, now),
			Completed:     rec.Completed,
		}
		if duration > 0 {
			day.DurationSeconds = int(duration / time.Second)
		}
		if rec.Completed {
			at := rec.CompletedAt
			day.CompletedAt = &at
			day.CompletionSource = string(rec.Source)
		}
		days = append(days, day)
	}

	return PlanOverview{Subscription: toSubscriptionDTO(sub), CurrentDay: current, Days: days}, nil
}
