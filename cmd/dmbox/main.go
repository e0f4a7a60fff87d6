package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dmbox/internal/app/policies"
	authsvc "dmbox/internal/app/services/auth"
	"dmbox/internal/app/services/messenger"
	"dmbox/internal/domain/auth"
	"dmbox/internal/domain/chat"
	"dmbox/internal/domain/user"
	"dmbox/internal/infra/broker/kafka"
	"dmbox/internal/infra/config"
	"dmbox/internal/infra/db/mongo"
	"dmbox/internal/infra/db/scylla"
	ginserver "dmbox/internal/infra/http/gin"
	"dmbox/internal/infra/notify"
	"dmbox/internal/infra/obs"
	"dmbox/internal/infra/security"
	"dmbox/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
		cfg.StoreBackend = config.StoreMemory
	}

	stores, ready, err := buildStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("store initialization failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	notifier, closeNotifier := buildNotifier(cfg, logger)
	defer closeNotifier()

	authService := &authsvc.Service{
		Users:      stores.users,
		Sessions:   stores.sessions,
		Passwords:  security.BcryptHasher{Cost: cfg.BcryptCost},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}
	messengerService := &messenger.Service{
		Messages:     stores.messages,
		Summaries:    stores.summaries,
		Gate:         authService,
		Notifier:     notifier,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       logger,
	}

	server := ginserver.NewServer(cfg,
		obs.Middleware{Logger: logger},
		obs.HealthHandlers{Ready: ready},
		ginserver.Handlers{
			Auth: ginserver.AuthHandler{Service: authService, Logger: logger},
			Chat: ginserver.ChatHandler{
				Service:      messengerService,
				NotifySecret: cfg.NotifySecret,
				Logger:       logger,
			},
			AuthMiddleware: ginserver.AuthMiddleware{Service: authService, Logger: logger}.Handle,
		})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "backend", cfg.StoreBackend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type stores struct {
	messages  chat.MessageStore
	summaries chat.ConversationIndex
	users     user.Repository
	sessions  auth.SessionStore
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, func() error, error) {
	// Sessions are in-process for every backend: tokens are cheap to
	// re-issue and the store is authoritative only for its TTL window.
	sessions := memory.NewSessionStore()

	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, err := mongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, nil, err
		}
		messages := mongo.NewMessageStore(client)
		summaries := mongo.NewConversationIndex(client)
		indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := messages.EnsureIndexes(indexCtx); err != nil {
			logger.Warn("message index creation failed", "error", err)
		}
		if err := summaries.EnsureIndexes(indexCtx); err != nil {
			logger.Warn("summary index creation failed", "error", err)
		}
		ready := func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		return stores{
			messages:  messages,
			summaries: summaries,
			users:     mongo.NewUserRepository(client),
			sessions:  sessions,
		}, ready, nil

	case config.StoreScylla:
		session, err := scylla.NewSession(cfg, logger)
		if err != nil {
			return stores{}, nil, err
		}
		store := scylla.NewStore(session, logger)
		// Accounts stay in memory under the scylla backend; the wide-row
		// schema covers the messaging collections only.
		return stores{
			messages:  store,
			summaries: store,
			users:     memory.NewUserRepository(),
			sessions:  sessions,
		}, func() error { return nil }, nil

	default:
		logger.Info("using in-memory stores")
		return stores{
			messages:  memory.NewMessageStore(),
			summaries: memory.NewConversationIndex(),
			users:     memory.NewUserRepository(),
			sessions:  sessions,
		}, func() error { return nil }, nil
	}
}

func buildNotifier(cfg config.Config, logger *slog.Logger) (policies.Notifier, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("no kafka brokers configured, push fanout disabled")
		return notify.LogNotifier{Logger: logger}, func() {}
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Warn("kafka producer unavailable, push fanout disabled", "error", err)
		return notify.LogNotifier{Logger: logger}, func() {}
	}
	logger.Info("kafka fanout enabled", "topic", cfg.NotificationTopic())
	closeFn := func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}
	return notify.KafkaNotifier{Producer: producer, Topic: cfg.NotificationTopic()}, closeFn
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
