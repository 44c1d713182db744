// Package store defines the persistence boundary for conversation state: an
// append-only item log per conversation plus the response-id to
// conversation-id mapping a client resumes through via previous_response_id.
package store

import (
	"context"
	"errors"

	"github.com/ors-proxy/ors-proxy/pkg/api"
)

// ErrNotFound is returned when a conversation or response id does not resolve.
var ErrNotFound = errors.New("store: not found")

// ConflictError indicates two concurrent appends to the same conversation
// raced for the same sequence_index. The caller should reload the
// conversation's items and retry the append.
type ConflictError struct {
	ConversationID string
}

func (e *ConflictError) Error() string {
	return "store: conflicting append to conversation " + e.ConversationID
}

// Store is the persistence interface every backend (memory, sqlite,
// postgres) implements identically. It never returns a partial append: a
// failed AppendItems call leaves the conversation's stored items unchanged.
type Store interface {
	// CreateConversation inserts a new, empty conversation and returns its id.
	CreateConversation(ctx context.Context) (string, error)

	// AppendItems inserts items at the next sequence_index within a single
	// transaction. Returns a *ConflictError if a concurrent append to the
	// same conversation already claimed that index.
	AppendItems(ctx context.Context, conversationID string, items []api.Item) error

	// LoadItems returns all of a conversation's items ordered by
	// sequence_index ascending.
	LoadItems(ctx context.Context, conversationID string) ([]api.Item, error)

	// RecordResponse records that responseID belongs to conversationID so a
	// later request can resume it via previous_response_id.
	RecordResponse(ctx context.Context, responseID, conversationID string) error

	// ResolvePrevious maps a previously issued response id to the
	// conversation id it belongs to. Returns ErrNotFound if unknown.
	ResolvePrevious(ctx context.Context, responseID string) (string, error)

	// Ping verifies the store's backing connection (or pool) is reachable.
	// Used by the /healthz endpoint; it performs no schema or data checks.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
