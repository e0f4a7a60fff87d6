package chat

import (
	"context"
	"errors"
)

var (
	ErrSelfMessage  = errors.New("chat: sender and recipient must differ")
	ErrBodyRequired = errors.New("chat: body is required")
	ErrInvalidTs    = errors.New("chat: timestamp must be a positive integer")
)

// PairKeySeparator joins the two user ids of a conversation. The user id
// alphabet (see user.ValidID) never contains it, so the key is unambiguous.
const PairKeySeparator = "|"

// PairKey returns the canonical identifier for the unordered pair {a, b}.
// It is a pure function of the pair: PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + PairKeySeparator + b
}

// Participants returns the pair in canonical (sorted) order.
func Participants(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Message is one entry in the append-only message log. Messages are
// immutable once accepted; there is no update or delete.
type Message struct {
	ID      string
	From    string
	To      string
	Body    string
	Ts      int64 // unix milliseconds
	PairKey string
}

// Pagination bounds shared by every MessageStore implementation.
const (
	DefaultSinceLimit = 30
	DefaultPageLimit  = 50
	MaxPageLimit      = 100
)

// ClampLimit applies the default for non-positive limits and the hard
// ceiling for oversized ones. Oversized limits are clamped, not rejected.
func ClampLimit(limit, def int) int {
	switch {
	case limit <= 0:
		return def
	case limit > MaxPageLimit:
		return MaxPageLimit
	default:
		return limit
	}
}

// MessageStore is the append-only log. Retrieval is addressed by pair key
// and timestamp; both methods break ties on equal ts by message id so that
// repeated reads over the same window are deterministic.
type MessageStore interface {
	// Append persists msg. The record must be visible to pair-key reads
	// as soon as Append returns.
	Append(ctx context.Context, msg Message) error
	// ByPairSince returns messages with ts strictly greater than after,
	// ascending, bounded by ClampLimit(limit, DefaultSinceLimit).
	ByPairSince(ctx context.Context, pairKey string, after int64, limit int) ([]Message, error)
	// ByPairBeforeDesc returns messages with ts strictly less than before,
	// descending, bounded by ClampLimit(limit, DefaultPageLimit). Callers
	// reverse for display order.
	ByPairBeforeDesc(ctx context.Context, pairKey string, before int64, limit int) ([]Message, error)
}
