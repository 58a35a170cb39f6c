package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, contentUnitID string) (domain.ProgressRecord, error) {
	var (
		rec         domain.ProgressRecord
		completed   int
		completedAt int64
		source      string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT content_unit_id, completed, completed_at, source
		FROM progress
		WHERE content_unit_id = ?
	`, contentUnitID).Scan(&rec.ContentUnitID, &completed, &completedAt, &source)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProgressRecord{}, ports.ErrNotFound
		}
		return domain.ProgressRecord{}, storeErr(ctx, "get progress", err)
	}
	return toProgressRecord(rec.ContentUnitID, completed, completedAt, source), nil
}

func (r *ProgressRepository) List(ctx context.Context) ([]domain.ProgressRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT content_unit_id, completed, completed_at, source
		FROM progress
		ORDER BY content_unit_id ASC
	`)
	if err != nil {
		return nil, storeErr(ctx, "list progress", err)
	}
	defer rows.Close()

	out := []domain.ProgressRecord{}
	for rows.Next() {
		var (
			id          string
			completed   int
			completedAt int64
			source      string
		)
		if err := rows.Scan(&id, &completed, &completedAt, &source); err != nil {
			return nil, storeErr(ctx, "scan progress", err)
		}
		out = append(out, toProgressRecord(id, completed, completedAt, source))
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(ctx, "list progress", err)
	}
	return out, nil
}

// MarkCompleted n'écrit que si le contenu n'est pas déjà terminé (WHERE completed = 0):
// le premier appel gagne, y compris entre plusieurs process sur la même base.
func (r *ProgressRepository) MarkCompleted(ctx context.Context, contentUnitID string, at time.Time, source domain.CompletionSource) (domain.ProgressRecord, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO progress(content_unit_id, completed, completed_at, source, updated_at)
		VALUES(?, 1, ?, ?, ?)
		ON CONFLICT(content_unit_id) DO UPDATE SET
			completed = 1,
			completed_at = excluded.completed_at,
			source = excluded.source,
			updated_at = excluded.updated_at
		WHERE progress.completed = 0
	`, contentUnitID, at.UTC().UnixMilli(), string(source), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return domain.ProgressRecord{}, false, storeErr(ctx, "mark completed", err)
	}
	n, _ := res.RowsAffected()
	rec, err := r.Get(ctx, contentUnitID)
	if err != nil {
		return domain.ProgressRecord{}, false, err
	}
	return rec, n > 0, nil
}

// storeErr classe une erreur du driver: l'annulation du contexte remonte telle
// quelle, le reste signale une base indisponible.
func storeErr(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, ports.ErrPersistenceUnavailable, err)
}

func toProgressRecord(id string, completed int, completedAt int64, source string) domain.ProgressRecord {
	rec := domain.ProgressRecord{ContentUnitID: id, Completed: completed != 0, Source: domain.CompletionSource(source)}
	if rec.Completed && completedAt > 0 {
		rec.CompletedAt = time.UnixMilli(completedAt).UTC()
	}
	return rec
}
