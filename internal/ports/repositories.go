package ports

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
)

type SubscriptionRepository interface {
	Get(ctx context.Context, id string) (domain.Subscription, error)
	List(ctx context.Context, limit int) ([]domain.Subscription, error)
	Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error)
	// MarkCompletedDayMax met à jour lastCompletedDay de façon atomique:
	// lastCompletedDay = max(lastCompletedDay, day).
	MarkCompletedDayMax(ctx context.Context, id string, day int) (domain.Subscription, error)
}

type ContentRepository interface {
	Get(ctx context.Context, id string) (domain.ContentUnit, error)
	ListByPlan(ctx context.Context, planType string) ([]domain.ContentUnit, error)
	Upsert(ctx context.Context, unit domain.ContentUnit) (domain.ContentUnit, error)
	SetDuration(ctx context.Context, id string, d time.Duration) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Put(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// ProgressStore est la seule ressource mutable partagée du moteur.
// Seul le CompletionAggregator écrit dedans.
type ProgressStore interface {
	// Get renvoie ErrNotFound si aucun record n'existe.
	Get(ctx context.Context, contentUnitID string) (domain.ProgressRecord, error)
	List(ctx context.Context) ([]domain.ProgressRecord, error)
	// MarkCompleted écrit {completed:true, completedAt:at} sauf si le contenu est déjà terminé.
	// created=false signifie que l'appel n'a rien changé; rec est alors le record existant.
	MarkCompleted(ctx context.Context, contentUnitID string, at time.Time, source domain.CompletionSource) (rec domain.ProgressRecord, created bool, err error)
}

// DurationSource est best-effort: ErrDurationUnavailable quand le média ne la fournit pas.
type DurationSource interface {
	Duration(ctx context.Context, mediaRef string) (time.Duration, error)
}
