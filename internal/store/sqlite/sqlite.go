package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/beereshbc/collabroom-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	room_id    TEXT PRIMARY KEY,
	content    TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS strokes (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id   TEXT NOT NULL,
	stroke_id TEXT NOT NULL,
	payload   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_strokes_room ON strokes(room_id, seq);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL,
	user       TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_room ON chat_messages(room_id, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== DocumentStore implementation ====

// LoadDocument retrieves the document snapshot for a room.
func (s *SQLiteStore) LoadDocument(ctx context.Context, roomID string) (*store.Document, error) {
	query := `
		SELECT room_id, content, updated_at
		FROM documents
		WHERE room_id = ?
	`
	var (
		doc     store.Document
		content string
	)
	err := s.db.QueryRowContext(ctx, query, roomID).Scan(
		&doc.RoomID,
		&content,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}

	doc.Content = json.RawMessage(content)
	return &doc, nil
}

// SaveDocument replaces the persisted snapshot, creating it if absent.
func (s *SQLiteStore) SaveDocument(ctx context.Context, roomID string, content json.RawMessage) error {
	query := `
		INSERT INTO documents (room_id, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, string(content), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// ==== BoardStore implementation ====

// LoadStrokes returns the room's strokes in append order.
func (s *SQLiteStore) LoadStrokes(ctx context.Context, roomID string) ([]store.Stroke, error) {
	query := `
		SELECT payload
		FROM strokes
		WHERE room_id = ?
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query strokes: %w", err)
	}
	defer rows.Close()

	strokes := make([]store.Stroke, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan stroke: %w", err)
		}
		var stroke store.Stroke
		if err := json.Unmarshal([]byte(payload), &stroke); err != nil {
			return nil, fmt.Errorf("decode stroke: %w", err)
		}
		strokes = append(strokes, stroke)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strokes: %w", err)
	}

	return strokes, nil
}

// AppendStroke adds one stroke to the end of the room's log.
func (s *SQLiteStore) AppendStroke(ctx context.Context, roomID string, stroke store.Stroke) error {
	payload, err := json.Marshal(stroke)
	if err != nil {
		return fmt.Errorf("encode stroke: %w", err)
	}

	query := `
		INSERT INTO strokes (room_id, stroke_id, payload)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, stroke.ID, string(payload)); err != nil {
		return fmt.Errorf("insert stroke: %w", err)
	}
	return nil
}

// RemoveStroke deletes the oldest stroke matching strokeID.
func (s *SQLiteStore) RemoveStroke(ctx context.Context, roomID, strokeID string) error {
	query := `
		DELETE FROM strokes
		WHERE seq = (
			SELECT seq FROM strokes
			WHERE room_id = ? AND stroke_id = ?
			ORDER BY seq
			LIMIT 1
		)
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, strokeID); err != nil {
		return fmt.Errorf("delete stroke: %w", err)
	}
	return nil
}

// ReplaceStrokes swaps the room's entire log for the given sequence.
func (s *SQLiteStore) ReplaceStrokes(ctx context.Context, roomID string, strokes []store.Stroke) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM strokes WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("clear strokes: %w", err)
	}

	insert := `
		INSERT INTO strokes (room_id, stroke_id, payload)
		VALUES (?, ?, ?)
	`
	for _, stroke := range strokes {
		payload, err := json.Marshal(stroke)
		if err != nil {
			return fmt.Errorf("encode stroke: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert, roomID, stroke.ID, string(payload)); err != nil {
			return fmt.Errorf("insert stroke: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}
	return nil
}

// ==== ChatStore implementation ====

// LoadChat returns the room's transcript in receipt order.
func (s *SQLiteStore) LoadChat(ctx context.Context, roomID string) ([]store.Message, error) {
	query := `
		SELECT user, body, created_at
		FROM chat_messages
		WHERE room_id = ?
		ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query chat: %w", err)
	}
	defer rows.Close()

	messages := make([]store.Message, 0)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.User, &msg.Text, &msg.TS); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat: %w", err)
	}

	return messages, nil
}

// AppendChatMessage appends one message to the room's transcript.
func (s *SQLiteStore) AppendChatMessage(ctx context.Context, roomID string, msg store.Message) error {
	query := `
		INSERT INTO chat_messages (room_id, user, body, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, msg.User, msg.Text, msg.TS.UTC()); err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}
