package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"relaychat/internal/auth"
	"relaychat/internal/broker"
	"relaychat/internal/config"
	"relaychat/internal/domain"
	"relaychat/internal/handler"
	"relaychat/internal/presence"
	"relaychat/internal/registry"
	"relaychat/internal/repository"
	"relaychat/internal/server"
	"relaychat/internal/service"
	"relaychat/internal/transport/ws"
	"relaychat/pkg/database"
	pkgevents "relaychat/pkg/events"
	"relaychat/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l := logger.New(cfg.Server.Environment)
	defer l.Logger.Sync()

	var (
		messages      repository.MessageRepository
		conversations repository.ConversationRepository
	)
	switch cfg.Database.Driver {
	case "memory":
		store := repository.NewMemoryStore()
		messages, conversations = store, store
	default:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			l.Errorf("database: %v", err)
			os.Exit(1)
		}
		if err := db.AutoMigrate(
			&domain.Conversation{},
			&domain.Participant{},
			&domain.Message{},
			&domain.SeenRecord{},
		); err != nil {
			l.Errorf("migrate: %v", err)
			os.Exit(1)
		}
		messages = repository.NewMessageRepository(db)
		conversations = repository.NewConversationRepository(db)
	}

	reg := registry.New()

	brokerOpts := []broker.Option{broker.WithDeliverTimeout(cfg.Broker.DeliverTimeout)}
	var bus *pkgevents.RedisBroker
	if cfg.Redis.Enabled {
		bus = pkgevents.NewRedisBroker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, l)
		brokerOpts = append(brokerOpts, broker.WithBus(bus))
	}
	b := broker.New(reg, l, brokerOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if bus != nil {
		bridge := broker.NewBridge(b, bus, l)
		if err := bridge.Run(ctx); err != nil {
			l.Errorf("redis bridge: %v", err)
			os.Exit(1)
		}
	}

	chat := service.NewChatService(messages, conversations, reg, b, l)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Messages:      handler.NewMessageHandler(chat),
		Conversations: handler.NewConversationHandler(chat, presence.New(reg)),
		WS:            ws.NewHandler(verifier, chat, reg, l),
	}, verifier)

	go func() {
		if err := srv.Run(); err != nil {
			l.Errorf("server: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf("shutdown: %v", err)
	}
	if bus != nil {
		_ = bus.Close()
	}
}
