package memory

import (
	"context"
	"sort"
	"sync"

	"dmbox/internal/domain/chat"
)

// MessageStore keeps the message log in memory. Suitable for dev and tests.
type MessageStore struct {
	mu     sync.RWMutex
	byPair map[string][]chat.Message // kept sorted by (ts, id)
}

func NewMessageStore() *MessageStore {
	return &MessageStore{byPair: make(map[string][]chat.Message)}
}

func (s *MessageStore) Append(ctx context.Context, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.byPair[msg.PairKey]
	at := sort.Search(len(log), func(i int) bool {
		if log[i].Ts != msg.Ts {
			return log[i].Ts > msg.Ts
		}
		return log[i].ID > msg.ID
	})
	log = append(log, chat.Message{})
	copy(log[at+1:], log[at:])
	log[at] = msg
	s.byPair[msg.PairKey] = log
	return nil
}

func (s *MessageStore) ByPairSince(ctx context.Context, pairKey string, after int64, limit int) ([]chat.Message, error) {
	limit = chat.ClampLimit(limit, chat.DefaultSinceLimit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.byPair[pairKey]
	start := sort.Search(len(log), func(i int) bool { return log[i].Ts > after })
	out := make([]chat.Message, 0, limit)
	for i := start; i < len(log) && len(out) < limit; i++ {
		out = append(out, log[i])
	}
	return out, nil
}

func (s *MessageStore) ByPairBeforeDesc(ctx context.Context, pairKey string, before int64, limit int) ([]chat.Message, error) {
	limit = chat.ClampLimit(limit, chat.DefaultPageLimit)
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.byPair[pairKey]
	end := sort.Search(len(log), func(i int) bool { return log[i].Ts >= before })
	out := make([]chat.Message, 0, limit)
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, log[i])
	}
	return out, nil
}

var _ chat.MessageStore = (*MessageStore)(nil)
