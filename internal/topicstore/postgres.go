package topicstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/cascade/internal/codec"
	"github.com/petrijr/cascade/pkg/api"
)

// PostgresStore is a TopicStore persisting topic entries in PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore initializes the topic_entries table in the given
// database and returns a new store. The caller owns the DB handle.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS topic_entries (
			id BIGSERIAL PRIMARY KEY,
			topic TEXT NOT NULL,
			payload BYTEA,
			created_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS topic_entries_topic ON topic_entries (topic);
	`)
	return err
}

var _ api.TopicStore = (*PostgresStore)(nil)

func (s *PostgresStore) Append(ctx context.Context, topic string, v any) error {
	payload, err := codec.Encode(v)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO topic_entries (topic, payload, created_at)
		VALUES ($1, $2, $3)`,
		topic, payload, time.Now().UnixNano(),
	)
	return err
}

func (s *PostgresStore) Read(ctx context.Context, topic string) ([]any, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM topic_entries
		WHERE topic = $1
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
func (s *PostgresStore) Close() error { return nil }
