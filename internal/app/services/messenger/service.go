package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"dmbox/internal/app/policies"
	"dmbox/internal/domain/chat"
	"dmbox/internal/domain/user"
)

// Operation-boundary error kinds. Store and driver errors never cross this
// package unwrapped; handlers classify with errors.Is.
var (
	ErrInvalidRequest   = errors.New("messenger: invalid request")
	ErrUserNotFound     = errors.New("messenger: user not found")
	ErrStoreUnavailable = errors.New("messenger: store unavailable")
)

// IdentityGate is the slice of the auth service the messaging core needs.
type IdentityGate interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

const defaultStoreTimeout = 5 * time.Second

// Service is the messaging core: append, summary upkeep, thread reads and
// notification fanout. It is stateless per request; the stores are the
// only shared mutable state.
type Service struct {
	Messages     chat.MessageStore
	Summaries    chat.ConversationIndex
	Gate         IdentityGate
	Notifier     policies.Notifier
	StoreTimeout time.Duration
	Logger       *slog.Logger

	// Clock returns the current time in unix milliseconds. Nil means
	// time.Now; tests pin it.
	Clock func() int64
}

type SendParams struct {
	From string
	To   string
	Body string
	// Ts overrides the send timestamp when positive. Zero means "now";
	// negative values are rejected.
	Ts int64
}

type SendResult struct {
	ID string
	Ts int64
}

// Send validates, authenticates both parties, appends exactly one message,
// synchronously upserts the conversation summary and fires best-effort
// fanout. Nothing is written when validation or the existence checks fail.
func (s *Service) Send(ctx context.Context, p SendParams) (*SendResult, error) {
	if !user.ValidID(p.From) || !user.ValidID(p.To) {
		return nil, fmt.Errorf("%w: malformed user id", ErrInvalidRequest)
	}
	if p.From == p.To {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, chat.ErrSelfMessage)
	}
	if p.Body == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, chat.ErrBodyRequired)
	}
	if p.Ts < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, chat.ErrInvalidTs)
	}
	if err := s.requireUsers(ctx, p.From, p.To); err != nil {
		return nil, err
	}

	ts := p.Ts
	if ts == 0 {
		ts = s.now()
	}
	msg := chat.Message{
		ID:      uuid.NewString(),
		From:    p.From,
		To:      p.To,
		Body:    p.Body,
		Ts:      ts,
		PairKey: chat.PairKey(p.From, p.To),
	}

	storeCtx, cancel := s.storeContext(ctx)
	err := s.Messages.Append(storeCtx, msg)
	cancel()
	if err != nil {
		return nil, s.mapStoreErr("append message", err, msg.PairKey, ts)
	}

	storeCtx, cancel = s.storeContext(ctx)
	err = s.Summaries.Upsert(storeCtx, chat.SummaryUpsert{
		PairKey:      msg.PairKey,
		Participants: chat.Participants(p.From, p.To),
		Body:         p.Body,
		From:         p.From,
		Ts:           ts,
	})
	cancel()
	if err != nil {
		// The message is durable; a stale summary self-heals on the next
		// accepted write for this pair (or via RebuildSummary).
		s.logWarn("summary upsert failed", "error", err, "pair_key", msg.PairKey, "ts", ts)
	}

	s.fanout(ctx, msg)
	return &SendResult{ID: msg.ID, Ts: ts}, nil
}

// ThreadPage returns the most recent messages with ts < before (default
// "now"), in ascending order for display.
func (s *Service) ThreadPage(ctx context.Context, me, peer string, before int64, limit int) ([]chat.Message, error) {
	if err := s.validatePair(ctx, me, peer); err != nil {
		return nil, err
	}
	if before < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, chat.ErrInvalidTs)
	}
	if before == 0 {
		before = s.now() + 1
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	pairKey := chat.PairKey(me, peer)
	page, err := s.Messages.ByPairBeforeDesc(storeCtx, pairKey, before, limit)
	if err != nil {
		return nil, s.mapStoreErr("read thread page", err, pairKey, before)
	}
	reverse(page)
	return page, nil
}

// ThreadSince returns messages with ts strictly greater than after,
// ascending. after = 0 reads from the beginning, bounded by limit.
func (s *Service) ThreadSince(ctx context.Context, me, peer string, after int64, limit int) ([]chat.Message, error) {
	if err := s.validatePair(ctx, me, peer); err != nil {
		return nil, err
	}
	if after < 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, chat.ErrInvalidTs)
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	pairKey := chat.PairKey(me, peer)
	tail, err := s.Messages.ByPairSince(storeCtx, pairKey, after, limit)
	if err != nil {
		return nil, s.mapStoreErr("read thread tail", err, pairKey, after)
	}
	return tail, nil
}

// Conversations lists the caller's conversation summaries, newest first.
func (s *Service) Conversations(ctx context.Context, userID string, limit int) ([]chat.ConversationSummary, error) {
	if !user.ValidID(userID) {
		return nil, fmt.Errorf("%w: malformed user id", ErrInvalidRequest)
	}
	if err := s.requireUsers(ctx, userID); err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	summaries, err := s.Summaries.ListForUser(storeCtx, userID, limit)
	if err != nil {
		return nil, s.mapStoreErr("list conversations", err, "", 0)
	}
	return summaries, nil
}

// RebuildSummary rescans a pair's message log and reinstates the max-ts
// summary. It is the repair path for a send that appended but never
// reached the index.
func (s *Service) RebuildSummary(ctx context.Context, me, peer string) error {
	if err := s.validatePair(ctx, me, peer); err != nil {
		return err
	}
	pairKey := chat.PairKey(me, peer)

	var latest *chat.Message
	after := int64(0)
	for {
		storeCtx, cancel := s.storeContext(ctx)
		batch, err := s.Messages.ByPairSince(storeCtx, pairKey, after, chat.MaxPageLimit)
		cancel()
		if err != nil {
			return s.mapStoreErr("rebuild scan", err, pairKey, after)
		}
		if len(batch) == 0 {
			break
		}
		last := batch[len(batch)-1]
		latest = &last
		if len(batch) < chat.MaxPageLimit {
			break
		}
		after = last.Ts
	}
	if latest == nil {
		return nil
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	err := s.Summaries.Upsert(storeCtx, chat.SummaryUpsert{
		PairKey:      pairKey,
		Participants: chat.Participants(me, peer),
		Body:         latest.Body,
		From:         latest.From,
		Ts:           latest.Ts,
	})
	if err != nil {
		return s.mapStoreErr("rebuild upsert", err, pairKey, latest.Ts)
	}
	return nil
}

// Broadcast publishes an operator notification through the fanout.
func (s *Service) Broadcast(ctx context.Context, title, body string) error {
	if s.Notifier == nil {
		return nil
	}
	return s.Notifier.NotifyAll(ctx, title, body)
}

func (s *Service) validatePair(ctx context.Context, me, peer string) error {
	if !user.ValidID(me) || !user.ValidID(peer) {
		return fmt.Errorf("%w: malformed user id", ErrInvalidRequest)
	}
	if me == peer {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, chat.ErrSelfMessage)
	}
	return s.requireUsers(ctx, me, peer)
}

func (s *Service) requireUsers(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		ok, err := s.Gate.Exists(ctx, id)
		if err != nil {
			return s.mapStoreErr("existence check", err, "", 0)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
	}
	return nil
}

func (s *Service) fanout(ctx context.Context, msg chat.Message) {
	if s.Notifier == nil {
		return
	}
	preview := chat.DecodeReply(msg.Body).MainText
	if runes := []rune(preview); len(runes) > 120 {
		preview = string(runes[:120])
	}
	err := s.Notifier.NotifyUser(ctx, policies.PushEvent{
		To:      msg.To,
		From:    msg.From,
		Preview: preview,
		Ts:      msg.Ts,
	})
	if err != nil {
		s.logWarn("notification fanout failed", "error", err, "to", msg.To, "ts", msg.Ts)
	}
}

func (s *Service) mapStoreErr(action string, err error, pairKey string, ts int64) error {
	if transientStoreErr(err) {
		return fmt.Errorf("%w: %s: %s", ErrStoreUnavailable, action, err)
	}
	s.logError("store operation failed", "action", action, "error", err, "pair_key", pairKey, "ts", ts)
	return fmt.Errorf("messenger: %s: %w", action, err)
}

// transientStoreErr reports whether err is worth a client retry: a store
// deadline, a cancelled request, or a driver network failure such as a
// refused connection.
func transientStoreErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Service) now() int64 {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UnixMilli()
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Warn(msg, args...)
	}
}

func (s *Service) logError(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Error(msg, args...)
	}
}

func reverse(msgs []chat.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
