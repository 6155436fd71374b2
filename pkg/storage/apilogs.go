package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
)

const DefaultLogLimit = 100

// APILogStore records every call made to the inference server.
type APILogStore struct {
	db *DB
}

// NewAPILogStore creates an APILogStore backed by db.
func NewAPILogStore(db *DB) *APILogStore {
	return &APILogStore{db: db}
}

// Append inserts l and sets its ID.
func (s *APILogStore) Append(ctx context.Context, l *APILog) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	l.CreatedAt = l.CreatedAt.UTC()

	res, err := s.db.db.ExecContext(ctx, `
		INSERT INTO api_logs (endpoint, method, request, response, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.Endpoint, l.Method, l.Request, l.Response, l.Error, l.DurationMs, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting api log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

// List returns the most recent entries first.
func (s *APILogStore) List(ctx context.Context, limit int) ([]*APILog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	var out []*APILog
	err := sqlscan.Select(ctx, s.db.db, &out, `
		SELECT id, endpoint, method, request, response, error, duration_ms, created_at
		FROM api_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing api logs: %w", err)
	}
	return out, nil
}

// Clear deletes every entry and returns how many were removed.
func (s *APILogStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM api_logs`)
	if err != nil {
		return 0, fmt.Errorf("clearing api logs: %w", err)
	}
	return res.RowsAffected()
}

// PruneBefore deletes entries older than cutoff.
func (s *APILogStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM api_logs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning api logs: %w", err)
	}
	return res.RowsAffected()
}
