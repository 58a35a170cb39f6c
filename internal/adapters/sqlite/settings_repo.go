package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
)

const settingsKey = "engine"

type SettingsRepository struct {
	db       *sql.DB
	defaults domain.Settings
}

// NewSettingsRepository: defaults sert tant qu'aucun réglage n'a été enregistré
// (typiquement les valeurs issues de la config d'environnement).
func NewSettingsRepository(db *sql.DB, defaults domain.Settings) *SettingsRepository {
	return &SettingsRepository{db: db, defaults: defaults.Normalize()}
}

func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	var b []byte
	err := r.db.QueryRowContext(ctx, `SELECT value_json FROM settings WHERE key = ?`, settingsKey).Scan(&b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.defaults, nil
		}
		return domain.Settings{}, err
	}
	// Si corrompu: fallback sur les défauts.
	s := r.defaults
	if err := json.Unmarshal(b, &s); err != nil {
		return r.defaults, nil
	}
	return s.Normalize(), nil
}

func (r *SettingsRepository) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	b, err := json.Marshal(settings.Normalize())
	if err != nil {
		return domain.Settings{}, err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings(key, value_json, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`, settingsKey, b, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return domain.Settings{}, err
	}
	return r.Get(ctx)
}
