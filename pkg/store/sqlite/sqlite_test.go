package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ors-proxy/ors-proxy/pkg/api"
	"github.com/ors-proxy/ors-proxy/pkg/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db") + "?mode=rwc"
	s, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_CreateAndLoadConversation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	convID, err := s.CreateConversation(ctx)
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}

	items, err := s.LoadItems(ctx, convID)
	if err != nil {
		t.Fatalf("LoadItems failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items for fresh conversation, want 0", len(items))
	}
}

func TestSQLite_AppendAndLoadItemsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	convID, _ := s.CreateConversation(ctx)

	userMsg := api.NewMessageItem("item_1", api.ItemStatusCompleted, api.RoleUser, []api.ContentPart{api.NewInputText("hi")})
	call := api.NewFunctionCallItem("item_2", api.ItemStatusCompleted, "call_1", "fn", `{"a":1}`)

	if err := s.AppendItems(ctx, convID, []api.Item{userMsg}); err != nil {
		t.Fatalf("first AppendItems failed: %v", err)
	}
	if err := s.AppendItems(ctx, convID, []api.Item{call}); err != nil {
		t.Fatalf("second AppendItems failed: %v", err)
	}

	items, err := s.LoadItems(ctx, convID)
	if err != nil {
		t.Fatalf("LoadItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "item_1" || items[0].Type != api.ItemTypeMessage {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].ID != "item_2" || items[1].FunctionCall.Arguments != `{"a":1}` {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestSQLite_AppendToUnknownConversationFails(t *testing.T) {
	s := openTestStore(t)
	item := api.NewMessageItem("item_1", api.ItemStatusCompleted, api.RoleUser, nil)
	err := s.AppendItems(context.Background(), "conv_does_not_exist", []api.Item{item})
	if err == nil {
		t.Fatal("expected an error appending to an unknown conversation")
	}
}

func TestSQLite_RecordAndResolvePrevious(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	convID, _ := s.CreateConversation(ctx)

	if err := s.RecordResponse(ctx, "resp_abc", convID); err != nil {
		t.Fatalf("RecordResponse failed: %v", err)
	}

	got, err := s.ResolvePrevious(ctx, "resp_abc")
	if err != nil {
		t.Fatalf("ResolvePrevious failed: %v", err)
	}
	if got != convID {
		t.Errorf("ResolvePrevious() = %q, want %q", got, convID)
	}
}

func TestSQLite_ResolvePreviousUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ResolvePrevious(context.Background(), "resp_missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLite_MigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db") + "?mode=rwc"
	ctx := context.Background()

	s1, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	s1.Close()

	s2, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("second Open (re-running migrations) failed: %v", err)
	}
	s2.Close()
}
