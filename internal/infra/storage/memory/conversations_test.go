package memory

import (
	"context"
	"testing"

	"dmbox/internal/domain/chat"
)

func upsert(t *testing.T, x *ConversationIndex, a, b, body, from string, ts int64) {
	t.Helper()
	err := x.Upsert(context.Background(), chat.SummaryUpsert{
		PairKey:      chat.PairKey(a, b),
		Participants: chat.Participants(a, b),
		Body:         body,
		From:         from,
		Ts:           ts,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}

func TestConversationIndexKeepsNewest(t *testing.T) {
	t.Parallel()
	x := NewConversationIndex()
	upsert(t, x, "alice", "bob", "first", "alice", 1000)
	upsert(t, x, "alice", "bob", "second", "bob", 2000)

	got, err := x.ListForUser(context.Background(), "alice", 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	if got[0].LastBody != "second" || got[0].LastTs != 2000 || got[0].LastFrom != "bob" {
		t.Errorf("summary = %+v, want the ts=2000 write", got[0])
	}
}

func TestConversationIndexIgnoresStaleUpsert(t *testing.T) {
	t.Parallel()
	x := NewConversationIndex()
	upsert(t, x, "alice", "bob", "newer", "alice", 2000)
	upsert(t, x, "alice", "bob", "older", "bob", 1999)
	upsert(t, x, "alice", "bob", "equal", "bob", 2000)

	got, err := x.ListForUser(context.Background(), "bob", 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 1 || got[0].LastBody != "newer" || got[0].LastTs != 2000 {
		t.Errorf("summary = %+v, want the ts=2000 write untouched", got)
	}
}

func TestConversationIndexListOrder(t *testing.T) {
	t.Parallel()
	x := NewConversationIndex()
	upsert(t, x, "alice", "bob", "hi", "bob", 100)
	upsert(t, x, "alice", "carol", "yo", "carol", 300)
	upsert(t, x, "alice", "dave", "hey", "dave", 200)
	upsert(t, x, "bob", "carol", "unrelated", "bob", 400)

	got, err := x.ListForUser(context.Background(), "alice", 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d summaries, want 3", len(got))
	}
	wantPeers := []string{"carol", "dave", "bob"}
	for i, want := range wantPeers {
		other, ok := got[i].Other("alice")
		if !ok || other != want {
			t.Errorf("got[%d] peer = %q, want %q", i, other, want)
		}
	}
}

func TestConversationIndexEqualTsTieBreakOnPairKey(t *testing.T) {
	t.Parallel()
	x := NewConversationIndex()
	upsert(t, x, "alice", "dave", "one", "dave", 500)
	upsert(t, x, "alice", "bob", "two", "bob", 500)

	got, err := x.ListForUser(context.Background(), "alice", 0)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 2 || got[0].PairKey != "alice|bob" || got[1].PairKey != "alice|dave" {
		t.Errorf("equal-ts order = %v, want pair key ascending", got)
	}
}

func TestConversationIndexListLimit(t *testing.T) {
	t.Parallel()
	x := NewConversationIndex()
	upsert(t, x, "alice", "bob", "a", "bob", 100)
	upsert(t, x, "alice", "carol", "b", "carol", 200)
	upsert(t, x, "alice", "dave", "c", "dave", 300)

	got, err := x.ListForUser(context.Background(), "alice", 2)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(got) != 2 || got[0].LastTs != 300 || got[1].LastTs != 200 {
		t.Errorf("limit=2 list = %v, want the two newest", got)
	}
}
