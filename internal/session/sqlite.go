package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id TEXT PRIMARY KEY,
    title TEXT,
    model TEXT NOT NULL,
    last_response_id TEXT,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS turns (
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    user_text TEXT NOT NULL,
    state TEXT,
    duration_ms INTEGER,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC);
`

// NewSQLiteStore opens (creating if needed) the conversations database
// at the default data path.
func NewSQLiteStore() (*SQLiteStore, error) {
	dbPath, err := GetDBPath()
	if err != nil {
		return nil, fmt.Errorf("get db path: %w", err)
	}
	return OpenSQLiteStore(dbPath)
}

// OpenSQLiteStore opens a store at an explicit path. Used by tests.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateConversation(ctx context.Context, c *Conversation) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = StatusActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, title, model, last_response_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Title, c.Model, c.LastResponseID, string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, model, last_response_id, status, created_at, updated_at
		FROM conversations WHERE id = ?`, id)
	var c Conversation
	var status string
	if err := row.Scan(&c.ID, &c.Title, &c.Model, &c.LastResponseID, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %s not found", id)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	c.Status = Status(status)
	return &c, nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, limit, offset int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, model, last_response_id, status, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		var status string
		if err := rows.Scan(&c.ID, &c.Title, &c.Model, &c.LastResponseID, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.Status = Status(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveTurn(ctx context.Context, turn *Turn, status Status) error {
	stateJSON, err := turn.StateJSON()
	if err != nil {
		return fmt.Errorf("serialize turn state: %w", err)
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save turn: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (conversation_id, seq, user_text, state, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, seq) DO UPDATE SET
			user_text = excluded.user_text,
			state = excluded.state,
			duration_ms = excluded.duration_ms`,
		turn.ConversationID, turn.Seq, turn.UserText, stateJSON, turn.DurationMs, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert turn: %w", err)
	}

	lastResponseID := ""
	if turn.State != nil {
		lastResponseID = turn.State.ResponseID
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE conversations SET
			last_response_id = CASE WHEN ? != '' THEN ? ELSE last_response_id END,
			status = ?,
			updated_at = ?
		WHERE id = ?`,
		lastResponseID, lastResponseID, string(status), time.Now(), turn.ConversationID)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetTurns(ctx context.Context, conversationID string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversation_id, seq, user_text, state, duration_ms, created_at
		FROM turns WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()

	var out []Turn
	for rows.Next() {
		var t Turn
		var stateJSON sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&t.ConversationID, &t.Seq, &t.UserText, &stateJSON, &durationMs, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if err := t.SetStateFromJSON(stateJSON.String); err != nil {
			return nil, fmt.Errorf("decode turn state: %w", err)
		}
		t.DurationMs = durationMs.Int64
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
