package scylla

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/gocql/gocql"

	"dmbox/internal/domain/chat"
)

var errNoSession = errors.New("scylla session not initialized")

// Store implements the message log and conversation index on Scylla.
// Messages cluster under their pair key ordered by (ts, id); summaries use
// lightweight transactions for the conditional last_ts write.
type Store struct {
	session *gocql.Session
	logger  *slog.Logger
}

func NewStore(session *gocql.Session, logger *slog.Logger) *Store {
	return &Store{session: session, logger: logger}
}

func (s *Store) Append(ctx context.Context, msg chat.Message) error {
	if s.session == nil {
		return errNoSession
	}
	return s.session.
		Query(`INSERT INTO messages (pair_key, ts, id, sender, recipient, body) VALUES (?, ?, ?, ?, ?, ?)`,
			msg.PairKey, msg.Ts, msg.ID, msg.From, msg.To, msg.Body).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		Exec()
}

func (s *Store) ByPairSince(ctx context.Context, pairKey string, after int64, limit int) ([]chat.Message, error) {
	if s.session == nil {
		return nil, errNoSession
	}
	limit = chat.ClampLimit(limit, chat.DefaultSinceLimit)
	iter := s.session.
		Query(`SELECT pair_key, ts, id, sender, recipient, body FROM messages WHERE pair_key = ? AND ts > ? ORDER BY ts ASC LIMIT ?`,
			pairKey, after, limit).
		WithContext(ctx).
		Consistency(gocql.One).
		Iter()
	return drainMessages(iter)
}

func (s *Store) ByPairBeforeDesc(ctx context.Context, pairKey string, before int64, limit int) ([]chat.Message, error) {
	if s.session == nil {
		return nil, errNoSession
	}
	limit = chat.ClampLimit(limit, chat.DefaultPageLimit)
	iter := s.session.
		Query(`SELECT pair_key, ts, id, sender, recipient, body FROM messages WHERE pair_key = ? AND ts < ? ORDER BY ts DESC LIMIT ?`,
			pairKey, before, limit).
		WithContext(ctx).
		Consistency(gocql.One).
		Iter()
	return drainMessages(iter)
}

func drainMessages(iter *gocql.Iter) ([]chat.Message, error) {
	var (
		pairKey   string
		ts        int64
		id        string
		sender    string
		recipient string
		body      string
	)
	messages := make([]chat.Message, 0)
	for iter.Scan(&pairKey, &ts, &id, &sender, &recipient, &body) {
		messages = append(messages, chat.Message{
			ID:      id,
			From:    sender,
			To:      recipient,
			Body:    body,
			Ts:      ts,
			PairKey: pairKey,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return messages, nil
}

// Upsert writes the summary with a two-step conditional: INSERT IF NOT
// EXISTS for the first message of a pair, then UPDATE ... IF last_ts < ts
// for subsequent ones. Either branch losing the race means a newer summary
// is already in place, which satisfies the contract.
func (s *Store) Upsert(ctx context.Context, up chat.SummaryUpsert) error {
	if s.session == nil {
		return errNoSession
	}
	participants := []string{up.Participants[0], up.Participants[1]}
	applied, err := s.session.
		Query(`INSERT INTO conversations (pair_key, participants, last_body, last_from, last_ts) VALUES (?, ?, ?, ?, ?) IF NOT EXISTS`,
			up.PairKey, participants, up.Body, up.From, up.Ts).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		ScanCAS()
	if err != nil || applied {
		return err
	}
	_, err = s.session.
		Query(`UPDATE conversations SET last_body = ?, last_from = ?, last_ts = ? WHERE pair_key = ? IF last_ts < ?`,
			up.Body, up.From, up.Ts, up.PairKey, up.Ts).
		WithContext(ctx).
		Consistency(gocql.Quorum).
		ScanCAS()
	return err
}

func (s *Store) ListForUser(ctx context.Context, userID string, limit int) ([]chat.ConversationSummary, error) {
	if s.session == nil {
		return nil, errNoSession
	}
	if limit <= 0 || limit > chat.MaxConversationLimit {
		limit = chat.MaxConversationLimit
	}
	iter := s.session.
		Query(`SELECT pair_key, participants, last_body, last_from, last_ts FROM conversations WHERE participants CONTAINS ? ALLOW FILTERING`, userID).
		WithContext(ctx).
		Consistency(gocql.One).
		Iter()

	var (
		pairKey      string
		participants []string
		lastBody     string
		lastFrom     string
		lastTs       int64
	)
	summaries := make([]chat.ConversationSummary, 0)
	for iter.Scan(&pairKey, &participants, &lastBody, &lastFrom, &lastTs) {
		summary := chat.ConversationSummary{
			PairKey:  pairKey,
			LastBody: lastBody,
			LastFrom: lastFrom,
			LastTs:   lastTs,
		}
		if len(participants) == 2 {
			sort.Strings(participants)
			summary.Participants = [2]string{participants[0], participants[1]}
		}
		summaries = append(summaries, summary)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastTs != summaries[j].LastTs {
			return summaries[i].LastTs > summaries[j].LastTs
		}
		return summaries[i].PairKey < summaries[j].PairKey
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

var _ chat.MessageStore = (*Store)(nil)
var _ chat.ConversationIndex = (*Store)(nil)
