package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astraietm/registration/internal/model"
)

// SettingsRepository persists the versioned runtime key-value settings.
// Flags like maintenance mode live here and are read at request time,
// never cached in process globals.
type SettingsRepository struct {
	db *pgxpool.Pool
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns a setting or ErrSettingNotFound.
func (r *SettingsRepository) Get(ctx context.Context, key string) (*model.Setting, error) {
	var s model.Setting
	err := r.db.QueryRow(ctx,
		`SELECT key, value, version, updated_at FROM settings WHERE key = $1`,
		key,
	).Scan(&s.Key, &s.Value, &s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return &s, nil
}

// Set upserts a setting, bumping its version monotonically.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) (*model.Setting, error) {
	var s model.Setting
	err := r.db.QueryRow(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET
		   value      = EXCLUDED.value,
		   version    = settings.version + 1,
		   updated_at = now()
		 RETURNING key, value, version, updated_at`,
		key, value,
	).Scan(&s.Key, &s.Value, &s.Version, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("set setting: %w", err)
	}
	return &s, nil
}
