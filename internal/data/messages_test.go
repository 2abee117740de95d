package data

import (
	"context"
	"testing"
	"time"

	"github.com/PaulBabatuyi/directChat-gRPC/internal/chat"
)

func TestMessagesInsertAndList(t *testing.T) {
	c := setupDB(t)
	convs := NewConversationsStore(c.ConversationsCollection())
	msgs := NewMessagesStore(c.MessagesCollection())
	ctx := context.Background()

	store := chat.NewMessageStore(convs, msgs, chat.WithStoreClock(chat.NewMonotonicClockWithResolution(time.Millisecond)))
	conv, err := chat.NewResolver(convs).ResolveOrCreate(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}

	// empty history first
	history, err := store.List(ctx, conv.ID)
	if err != nil || len(history) != 0 {
		t.Fatalf("expected empty history, got %d (%v)", len(history), err)
	}

	for _, body := range []string{"hi", "there", "again"} {
		if _, err := store.Append(ctx, conv.ID, "alice", body); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	history, err = store.List(ctx, conv.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(history) != 3 || history[0].Body != "hi" || history[1].Body != "there" || history[2].Body != "again" {
		t.Fatalf("unexpected history order: %+v", history)
	}
	for i := 1; i < len(history); i++ {
		if history[i].CreatedAt.Before(history[i-1].CreatedAt) {
			t.Fatalf("timestamps go backwards at %d", i)
		}
	}
}
