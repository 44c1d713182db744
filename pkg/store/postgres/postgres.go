// Package postgres provides a PostgreSQL store.Store backend for
// deployments that already run a shared Postgres instance and want
// conversation state alongside other services. Same schema, operations, and
// ConflictError semantics as the sqlite backend, via a unique-constraint
// violation on (conversation_id, sequence_index).
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/store"
)

const uniqueViolation = "23505"

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// New creates a PostgreSQL store, verifies connectivity, and optionally
// applies schema migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

func (s *Store) CreateConversation(ctx context.Context) (string, error) {
	id := api.NewConversationID()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, created_at) VALUES ($1, $2)`,
		id, time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting conversation: %w", err)
	}
	return id, nil
}

func (s *Store) AppendItems(ctx context.Context, conversationID string, items []api.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_index), -1) + 1 FROM items WHERE conversation_id = $1`,
		conversationID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("reading next sequence index: %w", err)
	}

	for i, item := range items {
		payload, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshaling item: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO items (conversation_id, sequence_index, item_type, payload) VALUES ($1, $2, $3, $4)`,
			conversationID, next+i, string(item.Type), payload,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &store.ConflictError{ConversationID: conversationID}
			}
			return fmt.Errorf("inserting item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}
	return nil
}

func (s *Store) LoadItems(ctx context.Context, conversationID string) ([]api.Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM items WHERE conversation_id = $1 ORDER BY sequence_index ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []api.Item
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		var item api.Item
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, fmt.Errorf("unmarshaling item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

func (s *Store) RecordResponse(ctx context.Context, responseID, conversationID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO responses (id, conversation_id, created_at) VALUES ($1, $2, $3)`,
		responseID, conversationID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording response: %w", err)
	}
	return nil
}

func (s *Store) ResolvePrevious(ctx context.Context, responseID string) (string, error) {
	var conversationID string
	err := s.pool.QueryRow(ctx,
		`SELECT conversation_id FROM responses WHERE id = $1`,
		responseID,
	).Scan(&conversationID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying response: %w", err)
	}
	return conversationID, nil
}

// Ping verifies the connection pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
