package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Jair0305/battleship/internal/archive"
	appcfg "github.com/Jair0305/battleship/internal/config"
	"github.com/Jair0305/battleship/internal/events"
	"github.com/Jair0305/battleship/internal/httpapi"
	"github.com/Jair0305/battleship/internal/msgcat"
	"github.com/Jair0305/battleship/internal/obslog"
	"github.com/Jair0305/battleship/internal/relay"
	"github.com/Jair0305/battleship/internal/service/battleship"
	"github.com/Jair0305/battleship/internal/store"
	"github.com/Jair0305/battleship/internal/sweeper"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_load_failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		kv  store.KV
		rdb *store.Redis
	)
	switch cfg.Store {
	case "redis":
		octx, cancel := context.WithTimeout(ctx, 10*time.Second)
		rdb, err = store.OpenRedis(octx, cfg.RedisURL, cfg.RedisKeyPrefix)
		cancel()
		if err != nil {
			logger.Fatal("redis_open_failed", zap.Error(err))
		}
		kv = rdb
	default:
		kv = store.NewMemory()
	}
	st := store.New(kv)
	defer func() { _ = st.Close() }()

	pubs := events.Multi{events.Log{}}
	if cfg.EventsRedis && rdb != nil {
		pubs = append(pubs, events.NewRedisPublisher(rdb.Client(), cfg.RedisKeyPrefix))
	}
	var ws *relay.WebSocket
	if cfg.EventsWebhookURL != "" || cfg.EventsWSURL != "" {
		var hook *relay.Webhook
		if cfg.EventsWebhookURL != "" {
			hook = relay.NewWebhook(cfg.EventsWebhookURL)
		}
		if cfg.EventsWSURL != "" {
			ws = relay.NewWebSocket(cfg.EventsWSURL, 5)
			ws.OnStateChange(func(state relay.State) {
				logger.Info("relay_ws_state", zap.String("state", string(state)))
			})
			cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := ws.Connect(cctx); err != nil {
				logger.Warn("relay_ws_connect_failed", zap.Error(err))
			}
			cancel()
		}
		pubs = append(pubs, relay.NewEgress(cfg.EventsEgress, false, hook, ws, logger))
	}
	sink := events.NewAsync(pubs, events.WithQueueSize(cfg.EventQueueSize))

	opts := []battleship.Option{
		battleship.WithConfig(battleship.Config{
			ReadyWindow:     cfg.ReadyWindow,
			RematchWindow:   cfg.RematchWindow,
			LeaderboardSize: cfg.LeaderboardSize,
		}),
		battleship.WithSink(sink),
	}
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive_open_failed", zap.Error(err))
		}
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = repo.EnsureSchema(sctx)
		cancel()
		if err != nil {
			logger.Fatal("archive_schema_failed", zap.Error(err))
		}
		opts = append(opts, battleship.WithArchiver(repo))
	}
	svc := battleship.New(st, opts...)

	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = svc.EnsureRooms(sctx, cfg.SeedRooms)
	cancel()
	if err != nil {
		logger.Fatal("seed_rooms_failed", zap.Error(err))
	}

	var sw *sweeper.Sweeper
	if cfg.SweepInterval > 0 {
		sw = sweeper.New(svc, cfg.SweepInterval)
		if err := sw.Start(); err != nil {
			logger.Fatal("sweeper_start_failed", zap.Error(err))
		}
	}

	srv := httpapi.New(svc, httpapi.WithCatalog(msgs))
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.Store))
		errCh <- srv.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("http_server_error", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if sw != nil {
		_ = sw.Stop()
	}
	if err := sink.Close(shutdownCtx); err != nil {
		logger.Warn("event_drain_error", zap.Error(err))
	}
	if ws != nil {
		_ = ws.Close(shutdownCtx)
	}
	if repo != nil {
		_ = repo.Close()
	}
	logger.Info("shutdown_complete")
}
