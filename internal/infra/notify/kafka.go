package notify

import (
	"context"
	"encoding/json"

	"dmbox/internal/app/policies"
	"dmbox/internal/infra/broker/kafka"
)

// BroadcastKey marks events addressed to every registered channel rather
// than a single recipient.
const BroadcastKey = "broadcast"

type broadcastEvent struct {
	Broadcast bool   `json:"broadcast"`
	Title     string `json:"title"`
	Body      string `json:"body"`
}

// KafkaNotifier publishes one event per accepted message to the
// notification topic, keyed by recipient so a consumer group preserves
// per-user ordering.
type KafkaNotifier struct {
	Producer *kafka.Producer
	Topic    string
}

func (n KafkaNotifier) NotifyUser(ctx context.Context, ev policies.PushEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.Producer.Publish(ctx, n.Topic, ev.To, payload, nil)
}

func (n KafkaNotifier) NotifyAll(ctx context.Context, title, body string) error {
	payload, err := json.Marshal(broadcastEvent{Broadcast: true, Title: title, Body: body})
	if err != nil {
		return err
	}
	return n.Producer.Publish(ctx, n.Topic, BroadcastKey, payload, nil)
}

var _ policies.Notifier = KafkaNotifier{}
