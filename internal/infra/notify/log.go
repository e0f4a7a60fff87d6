package notify

import (
	"context"
	"log/slog"

	"dmbox/internal/app/policies"
)

// LogNotifier stands in when no broker is configured. It records that a
// notification would have been delivered; previews and bodies stay out of
// the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyUser(ctx context.Context, ev policies.PushEvent) error {
	if n.Logger != nil {
		n.Logger.Debug("push skipped, no broker", "to", ev.To, "from", ev.From, "ts", ev.Ts)
	}
	return nil
}

func (n LogNotifier) NotifyAll(ctx context.Context, title, body string) error {
	if n.Logger != nil {
		n.Logger.Debug("broadcast skipped, no broker", "title", title)
	}
	return nil
}

var _ policies.Notifier = LogNotifier{}
