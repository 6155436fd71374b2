package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

// Recognized setting keys.
const (
	SettingOllamaHost       = "ollama_host"
	SettingOllamaPort       = "ollama_port"
	SettingKeepAlive        = "keep_alive"
	SettingHistoryRetention = "history_retention"
)

// SettingsStore is the key-value table of runtime overrides.
type SettingsStore struct {
	db *DB
}

// NewSettingsStore creates a SettingsStore backed by db.
func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// GetAll returns every stored setting.
func (s *SettingsStore) GetAll(ctx context.Context) (map[string]string, error) {
	var settings []Setting
	if err := sqlscan.Select(ctx, s.db.db, &settings, `SELECT key, value, updated_at FROM settings`); err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}

	out := make(map[string]string, len(settings))
	for _, st := range settings {
		out[st.Key] = st.Value
	}
	return out, nil
}

// Get returns a single setting, or ErrNotFound.
func (s *SettingsStore) Get(ctx context.Context, key string) (string, error) {
	var st Setting
	err := sqlscan.Get(ctx, s.db.db, &st, `SELECT key, value, updated_at FROM settings WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound{Kind: "setting", ID: key}
		}
		return "", fmt.Errorf("getting setting %s: %w", key, err)
	}
	return st.Value, nil
}

// Set creates or replaces a setting.
func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.db.ExecContext(ctx, upsertSetting, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// SetMany writes all values in a single transaction.
func (s *SettingsStore) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings transaction: %w", err)
	}

	now := time.Now().UTC()
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, upsertSetting, key, value, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

// Delete removes a setting so the configured default applies again.
func (s *SettingsStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting setting %s: %w", key, err)
	}
	return nil
}

const upsertSetting = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
