package chat

import "context"

// MaxConversationLimit bounds a single conversation list read.
const MaxConversationLimit = 200

// ConversationSummary is the one mutable record per pair: a materialized
// view of the latest accepted message. It is always re-derivable by
// replaying the pair's messages and keeping the max-ts one.
type ConversationSummary struct {
	PairKey      string
	Participants [2]string // sorted
	LastBody     string
	LastFrom     string
	LastTs       int64
}

// Other returns the counterpart of userID within the pair.
func (s ConversationSummary) Other(userID string) (string, bool) {
	switch userID {
	case s.Participants[0]:
		return s.Participants[1], true
	case s.Participants[1]:
		return s.Participants[0], true
	default:
		return "", false
	}
}

// SummaryUpsert carries one conditional summary write.
type SummaryUpsert struct {
	PairKey      string
	Participants [2]string
	Body         string
	From         string
	Ts           int64
}

// ConversationIndex keeps one summary per pair in sync with the message
// log. Upsert must only take effect when the incoming ts is strictly
// greater than the stored LastTs (or no record exists); re-applying the
// same upsert is a no-op, and out-of-order arrivals never regress LastTs.
// Implementations need per-record atomic read-modify-write for this.
type ConversationIndex interface {
	Upsert(ctx context.Context, up SummaryUpsert) error
	// ListForUser returns summaries where userID is a participant,
	// ordered by LastTs descending, ties broken by PairKey ascending.
	// limit is clamped to MaxConversationLimit.
	ListForUser(ctx context.Context, userID string, limit int) ([]ConversationSummary, error)
}
