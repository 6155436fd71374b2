package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

const (
	DefaultListLimit   = 50
	DefaultSearchLimit = 20
)

// ListOptions pages through conversation history.
type ListOptions struct {
	Limit       int
	Offset      int
	StarredOnly bool
}

// ConversationStore persists completed chat exchanges.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a ConversationStore backed by db.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

const conversationColumns = `id, model, title, starred, messages, metadata, created_at`

// Append stores c, assigning an ID and timestamp when they are unset, and
// returns the ID.
func (s *ConversationStore) Append(ctx context.Context, c *Conversation) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC()

	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Model, c.Title, c.Starred, c.Messages, c.Metadata, c.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("inserting conversation: %w", err)
	}
	return c.ID, nil
}

// Get returns a single conversation, or ErrNotFound.
func (s *ConversationStore) Get(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	err := sqlscan.Get(ctx, s.db.db, &c, `SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound{Kind: "conversation", ID: id}
		}
		return nil, fmt.Errorf("getting conversation %s: %w", id, err)
	}
	return &c, nil
}

// List returns conversations newest first.
func (s *ConversationStore) List(ctx context.Context, opts ListOptions) ([]*Conversation, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	query := `SELECT ` + conversationColumns + ` FROM conversations`
	if opts.StarredOnly {
		query += ` WHERE starred = 1`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	var out []*Conversation
	if err := sqlscan.Select(ctx, s.db.db, &out, query, opts.Limit, opts.Offset); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return out, nil
}

// Search matches query case-insensitively against titles, model names and
// message bodies, newest first.
func (s *ConversationStore) Search(ctx context.Context, query string, limit int) ([]*Conversation, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	pattern := "%" + escapeLike(query) + "%"

	var out []*Conversation
	err := sqlscan.Select(ctx, s.db.db, &out, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE title LIKE ? ESCAPE '\' OR model LIKE ? ESCAPE '\' OR messages LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching conversations: %w", err)
	}
	return out, nil
}

// SetTitle renames a conversation. A nil title clears it.
func (s *ConversationStore) SetTitle(ctx context.Context, id string, title *string) error {
	return s.update(ctx, id, `UPDATE conversations SET title = ? WHERE id = ?`, title, id)
}

// SetStarred marks or unmarks a conversation. Starred conversations survive pruning.
func (s *ConversationStore) SetStarred(ctx context.Context, id string, starred bool) error {
	return s.update(ctx, id, `UPDATE conversations SET starred = ? WHERE id = ?`, starred, id)
}

// Delete removes a conversation, or returns ErrNotFound.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	return s.update(ctx, id, `DELETE FROM conversations WHERE id = ?`, id)
}

// PruneBefore deletes unstarred conversations created before cutoff and
// returns how many were removed.
func (s *ConversationStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE starred = 0 AND created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning conversations: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored conversations.
func (s *ConversationStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting conversations: %w", err)
	}
	return n, nil
}

func (s *ConversationStore) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating conversation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound{Kind: "conversation", ID: id}
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
