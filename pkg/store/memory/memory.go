// Package memory provides an in-memory store.Store implementation for unit
// tests and lightweight deployments. State is lost on process restart.
package memory

import (
	"context"
	"sync"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/store"
)

type conversation struct {
	items []api.Item
}

// Store is an in-memory store.Store guarded by a single mutex; conflict
// detection is therefore advisory only (it can never actually race), but
// the method still exercises the same call shape production backends use.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*conversation
	responses     map[string]string // response id -> conversation id
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		conversations: make(map[string]*conversation),
		responses:     make(map[string]string),
	}
}

func (s *Store) CreateConversation(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := api.NewConversationID()
	s.conversations[id] = &conversation{}
	return id, nil
}

func (s *Store) AppendItems(_ context.Context, conversationID string, items []api.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return store.ErrNotFound
	}
	conv.items = append(conv.items, items...)
	return nil
}

func (s *Store) LoadItems(_ context.Context, conversationID string) ([]api.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, store.ErrNotFound
	}
	items := make([]api.Item, len(conv.items))
	copy(items, conv.items)
	return items, nil
}

func (s *Store) RecordResponse(_ context.Context, responseID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return store.ErrNotFound
	}
	s.responses[responseID] = conversationID
	return nil
}

func (s *Store) ResolvePrevious(_ context.Context, responseID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversationID, ok := s.responses[responseID]
	if !ok {
		return "", store.ErrNotFound
	}
	return conversationID, nil
}

// Ping always succeeds; there is no underlying connection to verify.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}
