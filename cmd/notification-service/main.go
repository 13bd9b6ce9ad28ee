// cmd/notification-service/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agrimarket-notifications/internal/common/aws"
	"agrimarket-notifications/internal/common/config"
	"agrimarket-notifications/internal/common/database"
	"agrimarket-notifications/internal/common/logger"
	"agrimarket-notifications/internal/common/observability"
	"agrimarket-notifications/internal/coop"
	"agrimarket-notifications/internal/notify"
	"agrimarket-notifications/internal/server"
	"agrimarket-notifications/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notification service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Notification storage & listeners ---
	kv := store.NewRedisKV(redis)
	registry := notify.NewRegistry()
	notifications := notify.NewStore(kv, registry, cfg.Notifications, log)
	preferences := notify.NewPreferenceStore(kv, log)
	dispatcher := notify.NewDispatcher(notifications, obs)

	// --- Outbound delivery (optional, per integration config) ---
	if cfg.Integrations.AWS.SES.Enabled || cfg.Integrations.AWS.SNS.Enabled {
		var sesClient notify.SESService
		var snsClient notify.SNSService

		if cfg.Integrations.AWS.SES.Enabled {
			client, err := aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client init failed", zap.Error(err))
			}
			sesClient = client
		}
		if cfg.Integrations.AWS.SNS.Enabled {
			client, err := aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client init failed", zap.Error(err))
			}
			snsClient = client
		}

		notifications.SetDeliverer(notify.NewDelivery(cfg.Integrations, pg.DB, preferences, sesClient, snsClient, log))
		zapLog.Info("Outbound delivery enabled",
			zap.Bool("ses", cfg.Integrations.AWS.SES.Enabled),
			zap.Bool("sns", cfg.Integrations.AWS.SNS.Enabled),
		)
	}

	// --- Cooperative registries ---
	messages := coop.NewMessageRegistry(pg.DB, log)
	announcements := coop.NewAnnouncementRegistry(pg.DB, log)
	stats := coop.NewStatsService(messages, announcements)

	// --- HTTP Server ---
	srv, err := server.New(cfg.Server, server.Deps{
		Notifications: notifications,
		Preferences:   preferences,
		Dispatcher:    dispatcher,
		Messages:      messages,
		Announcements: announcements,
		Stats:         stats,
	}, log)
	if err != nil {
		zapLog.Fatal("server init failed", zap.Error(err))
	}

	go func() {
		if err := srv.Run(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()
	zapLog.Info("Notification service started", zap.Int("port", cfg.Server.Port))

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	zapLog.Info("Notification service stopped gracefully")
}
