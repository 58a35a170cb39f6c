package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
	"github.com/rs/zerolog"
)

// ProgressTracker écoute les complétions et fait avancer lastCompletedDay de l'abonnement.
type ProgressTracker struct {
	logger zerolog.Logger
	bus    ports.EventBus
	subs   ports.SubscriptionRepository
}

func NewProgressTracker(logger zerolog.Logger, bus ports.EventBus, subs ports.SubscriptionRepository) *ProgressTracker {
	return &ProgressTracker{logger: logger, bus: bus, subs: subs}
}

func (u *ProgressTracker) Run(ctx context.Context) {
	if u == nil || u.bus == nil || u.subs == nil {
		return
	}
	ch, cancel := u.bus.Subscribe(ports.TopicProgressCompleted)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info().Msg("progress tracker stopped")
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			u.handleEvent(ctx, evt)
		}
	}
}

func (u *ProgressTracker) handleEvent(ctx context.Context, evt ports.Event) {
	if evt.Topic != ports.TopicProgressCompleted {
		return
	}

	var done CompletionEvent
	if err := json.Unmarshal(evt.Payload, &done); err != nil {
		return
	}
	done.SubscriptionID = strings.TrimSpace(done.SubscriptionID)
	if done.SubscriptionID == "" || done.DayIndex <= 0 {
		return
	}

	updated, err := u.subs.MarkCompletedDayMax(ctx, done.SubscriptionID, done.DayIndex)
	if err != nil {
		u.logger.Warn().Err(err).Str("subscription_id", done.SubscriptionID).Msg("failed to mark day completed")
		return
	}

	// Best-effort notification.
	if u.bus != nil {
		b, _ := json.Marshal(toSubscriptionDTO(updated))
		if len(b) > 0 {
			u.bus.Publish(ports.TopicSubscriptionProgressed, b)
		}
	}
}

type SubscriptionDTO struct {
	ID               string `json:"id"`
	PlanType         string `json:"planType"`
	StartDate        string `json:"startDate"`
	EndDate          string `json:"endDate,omitempty"`
	IsActive         bool   `json:"isActive"`
	LastCompletedDay int    `json:"lastCompletedDay"`
}

func toSubscriptionDTO(s domain.Subscription) SubscriptionDTO {
	dto := SubscriptionDTO{
		ID:               s.ID,
		PlanType:         s.PlanType,
		StartDate:        s.StartDate.Format(time.RFC3339),
		IsActive:         s.IsActive,
		LastCompletedDay: s.LastCompletedDay,
	}
	if !s.EndDate.IsZero() {
		dto.EndDate = s.EndDate.Format(time.RFC3339)
	}
	return dto
}
