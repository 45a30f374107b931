package topicstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/cascade/internal/codec"
	"github.com/petrijr/cascade/pkg/api"
)

// SQLiteStore is a TopicStore persisting topic entries in a SQLite
// database. Entries are gob-encoded and ordered by an auto-incrementing
// id, which preserves append order.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the topic_entries table in the given DB and
// returns a new store. The caller owns the DB handle.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS topic_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic TEXT NOT NULL,
			payload BLOB,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS topic_entries_topic ON topic_entries (topic);
	`)
	return err
}

var _ api.TopicStore = (*SQLiteStore)(nil)

func (s *SQLiteStore) Append(ctx context.Context, topic string, v any) error {
	payload, err := codec.Encode(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO topic_entries (topic, payload, created_at)
		VALUES (?, ?, ?)`,
		topic, payload, time.Now().UnixNano(),
	)
	return err
}

func (s *SQLiteStore) Read(ctx context.Context, topic string) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM topic_entries
		WHERE topic = ?
		ORDER BY id`, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		v, err := codec.Decode(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Close is a no-op: the caller owns the DB handle.
func (s *SQLiteStore) Close() error { return nil }
