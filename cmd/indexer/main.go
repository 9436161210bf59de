package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/bounty-indexer/internal/config"
	"github.com/ignatzorin/bounty-indexer/internal/db"
	"github.com/ignatzorin/bounty-indexer/internal/domain/repository"
	"github.com/ignatzorin/bounty-indexer/internal/goroutine"
	httpHandlers "github.com/ignatzorin/bounty-indexer/internal/http/handlers"
	httpRouter "github.com/ignatzorin/bounty-indexer/internal/http/router"
	"github.com/ignatzorin/bounty-indexer/internal/indexer"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/memory"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/persistence"
	"github.com/ignatzorin/bounty-indexer/internal/infrastructure/queue"
	newHandler "github.com/ignatzorin/bounty-indexer/internal/interface/http/handler"
	"github.com/ignatzorin/bounty-indexer/internal/logger"
	"github.com/ignatzorin/bounty-indexer/internal/service"
	"github.com/ignatzorin/bounty-indexer/internal/storage"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/claim"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/dispute"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/ledger"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/lifecycle"
	"github.com/ignatzorin/bounty-indexer/internal/usecase/query"
	"github.com/ignatzorin/bounty-indexer/internal/worker"
	"github.com/ignatzorin/bounty-indexer/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	// Хранилище проекций и очередь событий.
	var (
		dbConn *sqlx.DB
		store  repository.Store
		events queue.Queue
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store = memory.NewStore()
		events = queue.NewMemoryQueue()
		log.Printf("main: используется хранилище в памяти, данные не переживут перезапуск")
	default:
		dbConn, err = db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolConfig(cfg.Workers))
		if err != nil {
			log.Fatalf("main: ошибка подключения к базе: %v", err)
		}
		defer safeClose(dbConn)

		if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
			log.Fatalf("main: ошибка миграций: %v", err)
		}
		store = persistence.NewStore(dbConn)
		events = persistence.NewEventQueue(dbConn)
	}

	blobs, err := storage.NewFSStore(cfg.BlobStoragePath, cfg.MaxBlobMB)
	if err != nil {
		log.Fatalf("main: ошибка инициализации хранилища документов: %v", err)
	}

	// Шина инвалидации: кэш read-side и подписчики WebSocket.
	cache := service.NewCacheService(ctx, cfg.CacheTTL)
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, hub.Run)

	bus := service.NewInvalidationBus()
	bus.Subscribe("cache", cache)
	bus.Subscribe("ws", hub)

	// Проекция событий.
	locks := indexer.NewKeyLock()
	completion := lifecycle.NewCompletion(store, bus)

	registry := indexer.NewRegistry()
	ledger.NewProjector(store, completion, bus).Register(registry)
	dispatcher, err := indexer.NewDispatcher(registry, locks)
	if err != nil {
		log.Fatalf("main: %v", err)
	}

	resolver := dispute.NewResolver(store, locks, completion, bus, dispute.ResolverConfig{
		ThresholdPercent: cfg.ThresholdPercent,
		Grace:            cfg.ResolveGrace,
	})

	consumer := worker.NewConsumer(events, dispatcher, worker.ConsumerConfig{
		Workers:      cfg.Workers,
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
		Lease:        cfg.LeaseDuration,
		Retry: worker.RetryPolicy{
			Initial:     cfg.BackoffInitial,
			Max:         cfg.BackoffMax,
			MaxAttempts: cfg.MaxAttempts,
		},
	})
	scheduler := worker.NewScheduler(resolver, events, cfg.ResolveInterval)

	var background sync.WaitGroup
	background.Add(2)
	goroutine.SafeGo(func() {
		defer background.Done()
		consumer.Run(ctx)
	})
	goroutine.SafeGo(func() {
		defer background.Done()
		scheduler.Run(ctx)
	})

	// HTTP.
	tokens := service.NewOperatorTokens(cfg.OperatorJWTSecret, cfg.OperatorTokenTTL)

	healthHandler := httpHandlers.NewHealthHandler(dbConn, events)
	eventHandler := httpHandlers.NewEventHandler(events)
	disputeHandler := httpHandlers.NewDisputeHandler(resolver)
	blobHandler := httpHandlers.NewBlobHandler(blobs)
	wsHandler := httpHandlers.NewWSHandler(hub, cfg.AllowedOrigins)

	claimHandler := newHandler.NewClaimHandler(
		claim.NewPrepareClaimUseCase(store, locks, bus),
		claim.NewSubmitWorkUseCase(store, blobs, locks, bus),
		claim.NewSubmitVerdictUseCase(store, blobs, bus),
	)
	viewHandler := newHandler.NewViewHandler(query.NewViewService(store, cache))

	engine := httpRouter.SetupRouter(cfg, healthHandler, eventHandler, disputeHandler, blobHandler, wsHandler, tokens, claimHandler, viewHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s (store=%s, workers=%d)", cfg.HTTPPort, cfg.StoreDriver, cfg.Workers)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	// Дожидаемся, пока воркеры доработают текущие события.
	background.Wait()
	log.Printf("main: остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
