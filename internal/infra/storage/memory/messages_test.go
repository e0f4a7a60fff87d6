package memory

import (
	"context"
	"fmt"
	"testing"

	"dmbox/internal/domain/chat"
)

func seedMessages(t *testing.T, s *MessageStore, pairKey string, ts ...int64) {
	t.Helper()
	for i, v := range ts {
		msg := chat.Message{
			ID:      fmt.Sprintf("m%03d", i),
			From:    "alice",
			To:      "bob",
			Body:    fmt.Sprintf("body-%d", v),
			Ts:      v,
			PairKey: pairKey,
		}
		if err := s.Append(context.Background(), msg); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
}

func TestMessageStoreOrderedByTs(t *testing.T) {
	t.Parallel()
	s := NewMessageStore()
	seedMessages(t, s, "alice|bob", 300, 100, 200)

	got, err := s.ByPairSince(context.Background(), "alice|bob", 0, 10)
	if err != nil {
		t.Fatalf("ByPairSince: %v", err)
	}
	want := []int64{100, 200, 300}
	if len(got) != len(want) {
		t.Fatalf("got %d messages, want %d", len(got), len(want))
	}
	for i, ts := range want {
		if got[i].Ts != ts {
			t.Errorf("got[%d].Ts = %d, want %d", i, got[i].Ts, ts)
		}
	}
}

func TestMessageStoreSinceIsStrict(t *testing.T) {
	t.Parallel()
	s := NewMessageStore()
	seedMessages(t, s, "alice|bob", 100, 200, 300)

	got, err := s.ByPairSince(context.Background(), "alice|bob", 200, 10)
	if err != nil {
		t.Fatalf("ByPairSince: %v", err)
	}
	if len(got) != 1 || got[0].Ts != 300 {
		t.Errorf("ByPairSince(after=200) = %v, want exactly the ts=300 message", got)
	}
}

func TestMessageStoreBeforeDescExclusive(t *testing.T) {
	t.Parallel()
	s := NewMessageStore()
	seedMessages(t, s, "alice|bob", 100, 200, 300, 400)

	got, err := s.ByPairBeforeDesc(context.Background(), "alice|bob", 300, 2)
	if err != nil {
		t.Fatalf("ByPairBeforeDesc: %v", err)
	}
	if len(got) != 2 || got[0].Ts != 200 || got[1].Ts != 100 {
		t.Errorf("ByPairBeforeDesc(before=300, limit=2) = %v, want ts 200 then 100", got)
	}
}

func TestMessageStorePaginationIsGapFree(t *testing.T) {
	t.Parallel()
	s := NewMessageStore()
	var all []int64
	for ts := int64(1); ts <= 25; ts++ {
		all = append(all, ts*10)
	}
	seedMessages(t, s, "alice|bob", all...)

	// walk backwards page by page, then check union covers everything
	seen := make(map[int64]bool)
	before := int64(10_000)
	for {
		page, err := s.ByPairBeforeDesc(context.Background(), "alice|bob", before, 7)
		if err != nil {
			t.Fatalf("ByPairBeforeDesc: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			if seen[m.Ts] {
				t.Fatalf("ts %d returned twice", m.Ts)
			}
			seen[m.Ts] = true
		}
		before = page[len(page)-1].Ts
	}
	if len(seen) != len(all) {
		t.Errorf("pagination covered %d of %d messages", len(seen), len(all))
	}
}

func TestMessageStoreEqualTsOrderedByID(t *testing.T) {
	t.Parallel()
	s := NewMessageStore()
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		err := s.Append(ctx, chat.Message{ID: id, Ts: 500, PairKey: "alice|bob"})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.ByPairSince(ctx, "alice|bob", 0, 10)
	if err != nil {
		t.Fatalf("ByPairSince: %v", err)
	}
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Errorf("equal-ts order = %v, want id ascending", got)
	}
}

func TestMessageStorePairsAreIsolated(t *testing.T) {
	t.Parallel()
	s := NewMessageStore()
	ctx := context.Background()
	if err := s.Append(ctx, chat.Message{ID: "x", Ts: 1, PairKey: "alice|bob"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.ByPairSince(ctx, "alice|carol", 0, 10)
	if err != nil {
		t.Fatalf("ByPairSince: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d messages for an unrelated pair, want 0", len(got))
	}
}
