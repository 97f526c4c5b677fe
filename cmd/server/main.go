package main

import (
	"context"
	"log"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/auction/api/handler"
	"github.com/fastygo/auction/internal/config"
	"github.com/fastygo/auction/internal/infrastructure/journal"
	"github.com/fastygo/auction/internal/infrastructure/monitor"
	natsInfra "github.com/fastygo/auction/internal/infrastructure/nats"
	pgInfra "github.com/fastygo/auction/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/auction/internal/infrastructure/redis"
	"github.com/fastygo/auction/internal/middleware"
	"github.com/fastygo/auction/internal/router"
	"github.com/fastygo/auction/internal/services"
	"github.com/fastygo/auction/internal/services/lifecycle"
	"github.com/fastygo/auction/pkg/httpcontext"
	"github.com/fastygo/auction/pkg/logger"
	"github.com/fastygo/auction/repository"
	"github.com/fastygo/auction/repository/memory"
	"github.com/fastygo/auction/repository/postgres"
	redisRepo "github.com/fastygo/auction/repository/redis"
	"github.com/fastygo/auction/usecase"
	accountUC "github.com/fastygo/auction/usecase/account"
	auctionUC "github.com/fastygo/auction/usecase/auction"
	catalogUC "github.com/fastygo/auction/usecase/catalog"
	settlementUC "github.com/fastygo/auction/usecase/settlement"
)

type stores struct {
	items    repository.ItemRepository
	sellers  repository.SellerRepository
	users    repository.UserRepository
	payments repository.PaymentRepository
	health   monitor.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Service:     cfg.AppName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	store := openStore(appCtx, cfg, manager, zapLogger)

	var (
		cacheStore  repository.CacheStore
		redisClient *goRedis.Client
	)
	if cfg.Cache.Enabled {
		client, err := redisInfra.NewClient(appCtx, cfg.Redis)
		if err != nil {
			// The cache is never the system of record; run without it.
			zapLogger.Warn("redis unavailable, serving without cache", zap.Error(err))
		} else {
			redisClient = client
			cacheStore = redisRepo.NewCacheRepository(client, cfg.Cache.KeyPrefix, cfg.Cache.TTL)
			manager.Register("redis", func(ctx context.Context) error {
				return client.Close()
			})
		}
	} else {
		zapLogger.Info("cache disabled")
	}

	var events usecase.EventPublisher = usecase.NopPublisher()
	var publisher *natsInfra.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = natsInfra.Connect(cfg.NATS, cfg.AppName, zapLogger)
		if err != nil {
			zapLogger.Warn("nats unavailable, lifecycle events disabled", zap.Error(err))
		} else {
			events = publisher
			manager.Register("nats", publisher.Close)
		}
	}

	journalStore, err := journal.Open(cfg.Journal.Path, "repairs")
	if err != nil {
		zapLogger.Fatal("failed to open repair journal", zap.Error(err))
	}
	manager.Register("journal", func(ctx context.Context) error {
		return journalStore.Close()
	})

	monOpts := monitor.Options{
		Store:       store.health,
		StoreDriver: cfg.Store.Driver,
		Redis:       redisClient,
		Journal:     journalStore,
		Interval:    10 * time.Second,
	}
	if publisher != nil {
		monOpts.Events = publisher
	}
	mon := monitor.New(monOpts, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	repairBridge := services.NewRepairBridge(journalStore)
	cache := usecase.NewCache(cacheStore, cfg.Cache.TTL, repairBridge, zapLogger)

	auctionUseCase := auctionUC.New(store.items, store.sellers, store.users, cache, zapLogger,
		auctionUC.WithEvents(events))
	settlementUseCase := settlementUC.New(store.items, store.payments, cache, zapLogger,
		settlementUC.WithEvents(events),
		settlementUC.WithRepairQueue(repairBridge))
	catalogUseCase := catalogUC.New(store.items, store.sellers, store.users, cache, zapLogger)
	accountUseCase := accountUC.New(store.sellers, store.users, cache, zapLogger)

	dispatcher := usecase.NewDispatcher()
	dispatcher.Register(usecase.OperationInvalidate, cache.RepairHandler())
	dispatcher.Register(usecase.OperationSettle, settlementUseCase.RepairHandler())

	repairProcessor := services.NewRepairProcessor(
		journalStore,
		mon,
		dispatcher,
		func(ctx context.Context) error {
			_, err := settlementUseCase.ReconcilePayments(ctx)
			return err
		},
		zapLogger,
		services.ProcessorConfig{
			Interval:          cfg.Journal.DrainInterval,
			ReconcileInterval: cfg.Journal.ReconcileInterval,
			Retention:         cfg.Journal.Retention,
			BatchSize:         cfg.Journal.BatchSize,
			MaxRetries:        cfg.Journal.MaxRetry,
		},
	)
	repairProcessor.Start()
	manager.Register("repair_processor", func(ctx context.Context) error {
		repairProcessor.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Account: apiHandler.NewAccountHandler(accountUseCase, ctxAdapter, zapLogger),
		Catalog: apiHandler.NewCatalogHandler(catalogUseCase, ctxAdapter, zapLogger),
		Item:    apiHandler.NewItemHandler(auctionUseCase, ctxAdapter, zapLogger),
		Payment: apiHandler.NewPaymentHandler(settlementUseCase, ctxAdapter, zapLogger),
		Admin:   apiHandler.NewAdminHandler(auctionUseCase, settlementUseCase, accountUseCase, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	if cfg.JWT.Secret == "" {
		zapLogger.Warn("JWT_SECRET is empty; every token will fail verification")
	}
	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("env", cfg.Environment),
			zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) stores {
	if cfg.UsesMemoryStore() {
		zapLogger.Warn("using in-memory store; state is lost on restart")
		mem := memory.New()
		return stores{
			items:    mem.Items(),
			sellers:  mem.Sellers(),
			users:    mem.Users(),
			payments: mem.Payments(),
			health:   mem,
		}
	}

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(ctx, cfg.Database, cfg.AppName, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	return stores{
		items:    postgres.NewItemRepository(pool),
		sellers:  postgres.NewSellerRepository(pool),
		users:    postgres.NewUserRepository(pool),
		payments: postgres.NewPaymentRepository(pool),
		health:   pool,
	}
}
