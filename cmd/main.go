package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-hub/auth"
	"chat-hub/internal"
	"chat-hub/moderation"
	"chat-hub/projection"
	"chat-hub/queue"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"chat-hub/runtime/workers"
	"chat-hub/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	redis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run keeps all wiring in one place and returns instead of exiting, so
// deferred cleanup (database close, queue drain) always executes.
func run() error {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	userRepository := repositories.NewUserRepository(db)
	roomRepository := repositories.NewRoomRepository(db)
	messageRepository := repositories.NewMessageRepository(db)

	// 3. Message queue: Redis when configured, in-process otherwise.
	var messageQueue queue.Queue
	if config.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
		})
		defer func() { _ = client.Close() }()
		if err := client.Ping(context.Background()).Err(); err != nil {
			return fmt.Errorf("redis unreachable at %s: %w", config.RedisAddr, err)
		}
		messageQueue = queue.NewRedisQueue(client, config.QueueKey)
		log.Info("Using Redis message queue", "addr", config.RedisAddr)
	} else {
		messageQueue = queue.NewMemoryQueue(0)
		log.Warn("REDIS_ADDR not set, queued messages will not survive a restart")
	}

	// 4. Moderation
	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(config.CensoredWords, replacement)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	log.Info("Moderation ready", "words", len(config.CensoredWords))

	// 5. Services & orchestration
	registry := runtime.NewConnectionRegistry()
	dispatcher := runtime.NewBroadcastDispatcher(log)
	supervisor := workers.NewSupervisor(log)
	issuer := auth.NewTokenIssuer([]byte(config.AuthTokenSecret), config.AuthTokenDuration)

	authService := services.NewAuthService(userRepository, issuer)
	roomService := services.NewRoomService(roomRepository)
	chatService := services.NewChatService(log, roomRepository, messageRepository,
		messageQueue, dispatcher, moderator)

	orchestrator := runtime.NewSessionOrchestrator(log, registry, dispatcher,
		supervisor, authService, roomService, chatService, messageQueue)

	timeline := projection.NewActivityTimeline(config.TimelineCapacity)
	orchestrator.AddObserver(timeline)

	persistence := workers.NewPersistenceWorker(log, messageQueue, messageRepository).
		WithRetryPolicy(config.PersistMaxAttempts, config.PersistRetryDelay)
	health := workers.NewHealthWorker(log, 0, func() map[string]any {
		return map[string]any{
			"online_users":  registry.OnlineUserCount(),
			"open_sessions": len(registry.AllSessions()),
		}
	})
	orchestrator.AddWorker(persistence, health)

	// 6. Debug surface
	if config.DebugPort > 0 {
		internal.StartDebugServer(log, config.DebugPort, func() map[string]any {
			return map[string]any{
				"online_users":    registry.OnlineUserCount(),
				"open_sessions":   len(registry.AllSessions()),
				"recent_messages": timeline.Len(),
				"time":            time.Now().UTC().Format(time.RFC3339),
			}
		})
	}

	// 7. Signals & lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting orchestrator", "host", config.Host, "port", config.Port)
		errChan <- orchestrator.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("orchestrator failed: %w", err)
		}
	}

	orchestrator.Stop()
	log.Info("Program stopped cleanly")
	return nil
}
