package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"

	"dmbox/internal/app/policies"
	"dmbox/internal/infra/broker/kafka"
	"dmbox/internal/infra/config"
	"dmbox/internal/infra/notify"
	"dmbox/internal/infra/obs"
)

// push-worker drains the notification topic and performs best-effort push
// delivery for each event. Delivery here is a structured log line; a real
// deployment would swap in an APNS/FCM client behind the same handler.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS is required for the push worker")
		os.Exit(1)
	}

	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, nil, pushHandler{logger: logger})
	if err != nil {
		logger.Error("kafka consumer failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	topic := cfg.NotificationTopic()
	logger.Info("push worker starting", "topic", topic, "group", cfg.KafkaGroupID)
	if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer loop failed", "error", err)
		os.Exit(1)
	}
	logger.Info("push worker stopped")
}

type pushHandler struct {
	logger *slog.Logger
}

func (h pushHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if string(msg.Key) == notify.BroadcastKey {
		h.logger.Info("broadcast delivered", "partition", msg.Partition, "offset", msg.Offset)
		return nil
	}
	var ev policies.PushEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		h.logger.Warn("undecodable notification event", "error", err, "offset", msg.Offset)
		return nil // drop, do not redeliver
	}
	h.logger.Info("push delivered", "to", ev.To, "from", ev.From, "ts", ev.Ts)
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
