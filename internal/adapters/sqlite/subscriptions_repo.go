package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

// SubscriptionsRepository: le moteur ne fait que lire; Upsert sert à l'import
// des abonnements depuis le système de facturation.
type SubscriptionsRepository struct {
	db *sql.DB
}

func NewSubscriptionsRepository(db *sql.DB) *SubscriptionsRepository {
	return &SubscriptionsRepository{db: db}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (r *SubscriptionsRepository) Get(ctx context.Context, id string) (domain.Subscription, error) {
	var (
		sub                          domain.Subscription
		start, end, created, updated string
		active                       int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, plan_type, start_date, end_date, is_active, last_completed_day, created_at, updated_at
		FROM subscriptions
		WHERE id = ?
	`, id).Scan(&sub.ID, &sub.PlanType, &start, &end, &active, &sub.LastCompletedDay, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subscription{}, ports.ErrNotFound
		}
		return domain.Subscription{}, err
	}
	sub.StartDate = parseTime(start)
	sub.EndDate = parseTime(end)
	sub.IsActive = active != 0
	sub.CreatedAt = parseTime(created)
	sub.UpdatedAt = parseTime(updated)
	return sub, nil
}

func (r *SubscriptionsRepository) List(ctx context.Context, limit int) ([]domain.Subscription, error) {
	q := `
		SELECT id FROM subscriptions
		ORDER BY updated_at DESC
	`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

// Upsert ne touche jamais last_completed_day d'un abonnement existant.
func (r *SubscriptionsRepository) Upsert(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	active := 0
	if sub.IsActive {
		active = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions(id, plan_type, start_date, end_date, is_active, last_completed_day, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plan_type = excluded.plan_type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`,
		sub.ID, sub.PlanType, formatTime(sub.StartDate), formatTime(sub.EndDate), active, sub.LastCompletedDay,
		formatTime(sub.CreatedAt), formatTime(now),
	)
	if err != nil {
		return domain.Subscription{}, err
	}
	return r.Get(ctx, sub.ID)
}

func (r *SubscriptionsRepository) MarkCompletedDayMax(ctx context.Context, id string, day int) (domain.Subscription, error) {
	if day <= 0 {
		return r.Get(ctx, id)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET last_completed_day = CASE
			WHEN ? > last_completed_day THEN ?
			ELSE last_completed_day
		END,
		updated_at = ?
		WHERE id = ?
	`, day, day, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return domain.Subscription{}, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return domain.Subscription{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}
