package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, plan_type, day_index, title, media_ref, duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContentUnit(row rowScanner) (domain.ContentUnit, error) {
	var (
		unit       domain.ContentUnit
		durationMS int64
	)
	if err := row.Scan(&unit.ID, &unit.PlanType, &unit.DayIndex, &unit.Title, &unit.MediaRef, &durationMS); err != nil {
		return domain.ContentUnit{}, err
	}
	unit.Duration = time.Duration(durationMS) * time.Millisecond
	return unit, nil
}

func (r *ContentRepository) Get(ctx context.Context, id string) (domain.ContentUnit, error) {
	unit, err := scanContentUnit(r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_units WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ContentUnit{}, ports.ErrNotFound
		}
		return domain.ContentUnit{}, err
	}
	return unit, nil
}

func (r *ContentRepository) ListByPlan(ctx context.Context, planType string) ([]domain.ContentUnit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contentColumns+`
		FROM content_units
		WHERE plan_type = ?
		ORDER BY day_index ASC, id ASC
	`, planType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ContentUnit{}
	for rows.Next() {
		unit, err := scanContentUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, unit)
	}
	return out, rows.Err()
}

// Upsert garde une durée déjà connue si la nouvelle valeur est inconnue.
func (r *ContentRepository) Upsert(ctx context.Context, unit domain.ContentUnit) (domain.ContentUnit, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO content_units(id, plan_type, day_index, title, media_ref, duration_ms, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plan_type = excluded.plan_type,
			day_index = excluded.day_index,
			title = excluded.title,
			media_ref = excluded.media_ref,
			duration_ms = CASE WHEN excluded.duration_ms > 0 THEN excluded.duration_ms ELSE content_units.duration_ms END,
			updated_at = excluded.updated_at
	`,
		unit.ID, unit.PlanType, unit.DayIndex, unit.Title, unit.MediaRef, durationMillis(unit.Duration),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return domain.ContentUnit{}, err
	}
	return r.Get(ctx, unit.ID)
}

func (r *ContentRepository) SetDuration(ctx context.Context, id string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE content_units SET duration_ms = ?, updated_at = ? WHERE id = ?
	`, durationMillis(d), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func durationMillis(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(d / time.Millisecond)
}
