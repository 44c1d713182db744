// Package sqlite provides the default, embedded-file store.Store backend
// backed by github.com/glebarez/go-sqlite, a pure-Go SQLite driver requiring
// no cgo toolchain.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/store"
)

// Store is a SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if necessary) the SQLite database at dsn and applies
// any pending migrations. dsn is the portion of DATABASE_URL after the
// "sqlite://" scheme, e.g. "ors_proxy.db?mode=rwc".
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite serializes writers at the file level; a single connection
	// avoids "database is locked" errors under concurrent appends.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite database: %w", err)
	}
	// SQLite leaves FOREIGN KEY constraints unenforced unless this pragma is
	// set; it applies to the connection it runs on, the pool's only one.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling sqlite foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) CreateConversation(ctx context.Context) (string, error) {
	id := api.NewConversationID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at) VALUES (?, ?)`,
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence_index), -1) + 1 FROM items WHERE conversation_id = ?`,
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

		_, err = tx.ExecContext(ctx,
			`INSERT INTO items (conversation_id, sequence_index, item_type, payload) VALUES (?, ?, ?, ?)`,
			conversationID, next+i, string(item.Type), string(payload),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return &store.ConflictError{ConversationID: conversationID}
			}
			return fmt.Errorf("inserting item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}
	return nil
}

func (s *Store) LoadItems(ctx context.Context, conversationID string) ([]api.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM items WHERE conversation_id = ? ORDER BY sequence_index ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []api.Item
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		var item api.Item
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
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
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (id, conversation_id, created_at) VALUES (?, ?, ?)`,
		responseID, conversationID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording response: %w", err)
	}
	return nil
}

func (s *Store) ResolvePrevious(ctx context.Context, responseID string) (string, error) {
	var conversationID string
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id FROM responses WHERE id = ?`,
		responseID,
	).Scan(&conversationID)
	if err == sql.ErrNoRows {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying response: %w", err)
	}
	return conversationID, nil
}

// Ping verifies the underlying database connection is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
