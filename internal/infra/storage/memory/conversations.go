package memory

import (
	"context"
	"sort"
	"sync"

	"dmbox/internal/domain/chat"
)

// ConversationIndex keeps one summary per pair in memory. The mutex gives
// the atomic read-modify-write the Upsert contract requires.
type ConversationIndex struct {
	mu     sync.RWMutex
	byPair map[string]chat.ConversationSummary
}

func NewConversationIndex() *ConversationIndex {
	return &ConversationIndex{byPair: make(map[string]chat.ConversationSummary)}
}

func (x *ConversationIndex) Upsert(ctx context.Context, up chat.SummaryUpsert) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	current, ok := x.byPair[up.PairKey]
	if ok && up.Ts <= current.LastTs {
		// stale or duplicate write, keep the newer summary
		return nil
	}
	x.byPair[up.PairKey] = chat.ConversationSummary{
		PairKey:      up.PairKey,
		Participants: up.Participants,
		LastBody:     up.Body,
		LastFrom:     up.From,
		LastTs:       up.Ts,
	}
	return nil
}

func (x *ConversationIndex) ListForUser(ctx context.Context, userID string, limit int) ([]chat.ConversationSummary, error) {
	if limit <= 0 || limit > chat.MaxConversationLimit {
		limit = chat.MaxConversationLimit
	}
	x.mu.RLock()
	out := make([]chat.ConversationSummary, 0)
	for _, summary := range x.byPair {
		if _, ok := summary.Other(userID); ok {
			out = append(out, summary)
		}
	}
	x.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastTs != out[j].LastTs {
			return out[i].LastTs > out[j].LastTs
		}
		return out[i].PairKey < out[j].PairKey
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ chat.ConversationIndex = (*ConversationIndex)(nil)
