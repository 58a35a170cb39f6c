package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

// SeedFile est le format d'import des abonnements et du plan de contenus
// (export du système de facturation / du CMS).
type SeedFile struct {
	Subscriptions []SeedSubscription `json:"subscriptions"`
	ContentUnits  []SeedContentUnit  `json:"contentUnits"`
}

type SeedSubscription struct {
	ID        string `json:"id"`
	PlanType  string `json:"planType"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
	IsActive  *bool  `json:"isActive,omitempty"`
}

type SeedContentUnit struct {
	ID              string  `json:"id"`
	PlanType        string  `json:"planType"`
	DayIndex        int     `json:"dayIndex"`
	Title           string  `json:"title"`
	MediaRef        string  `json:"mediaRef"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

type SeedResult struct {
	Subscriptions int `json:"subscriptions"`
	ContentUnits  int `json:"contentUnits"`
}

// parseSeedDate accepte RFC3339 ou une date seule (minuit dans loc).
func parseSeedDate(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, loc)
}

// ImportSeed valide tout le fichier avant d'écrire quoi que ce soit.
func ImportSeed(ctx context.Context, r io.Reader, loc *time.Location, subs ports.SubscriptionRepository, content ports.ContentRepository) (SeedResult, error) {
	if loc == nil {
		loc = time.Local
	}
	var f SeedFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return SeedResult{}, &CodedError{Code: CodeInvalidParams, Message: "invalid seed file", Err: err}
	}

	toSave := make([]domain.Subscription, 0, len(f.Subscriptions))
	for i, s := range f.Subscriptions {
		start, err := parseSeedDate(s.StartDate, loc)
		if err != nil {
			return SeedResult{}, fmt.Errorf("subscriptions[%d].startDate: %w", i, err)
		}
		end, err := parseSeedDate(s.EndDate, loc)
		if err != nil {
			return SeedResult{}, fmt.Errorf("subscriptions[%d].endDate: %w", i, err)
		}
		sub := domain.Subscription{
			ID:        strings.TrimSpace(s.ID),
			PlanType:  strings.TrimSpace(s.PlanType),
			StartDate: start,
			EndDate:   end,
			IsActive:  s.IsActive == nil || *s.IsActive,
		}
		if err := sub.Validate(); err != nil {
			return SeedResult{}, fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
		toSave = append(toSave, sub)
	}

	units := make([]domain.ContentUnit, 0, len(f.ContentUnits))
	for i, u := range f.ContentUnits {
		unit := domain.ContentUnit{
			ID:       strings.TrimSpace(u.ID),
			PlanType: strings.TrimSpace(u.PlanType),
			DayIndex: u.DayIndex,
			Title:    u.Title,
			MediaRef: strings.TrimSpace(u.MediaRef),
		}
		if unit.ID == "" {
			return SeedResult{}, fmt.Errorf("contentUnits[%d]: %w", i, &domain.InvalidScheduleError{Field: "id", Reason: "missing"})
		}
		if unit.DayIndex < 1 {
			return SeedResult{}, fmt.Errorf("contentUnits[%d]: %w", i, &domain.InvalidScheduleError{Field: "dayIndex", Reason: "must be >= 1"})
		}
		if u.DurationSeconds > 0 {
			unit.Duration = time.Duration(u.DurationSeconds * float64(time.Second))
		}
		units = append(units, unit)
	}

	var res SeedResult
	for _, sub := range toSave {
		if _, err := subs.Upsert(ctx, sub); err != nil {
			return res, err
		}
		res.Subscriptions++
	}
	for _, unit := range units {
		if _, err := content.Upsert(ctx, unit); err != nil {
			return res, err
		}
		res.ContentUnits++
	}
	return res, nil
}
