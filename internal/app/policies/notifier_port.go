package policies

import "context"

// PushEvent is the payload handed to the notification fanout after a
// message append has been durably accepted. Preview is the decoded main
// text of the message, truncated; it never includes a reply header.
type PushEvent struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Preview string `json:"preview"`
	Ts      int64  `json:"ts"`
}

// Notifier is the fanout boundary. Both methods are best-effort: failures
// are logged by callers and never fail the enclosing operation.
type Notifier interface {
	NotifyUser(ctx context.Context, ev PushEvent) error
	NotifyAll(ctx context.Context, title, body string) error
}
