package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"predictmarket/internal/cache"
	"predictmarket/internal/config"
	"predictmarket/internal/db"
	"predictmarket/internal/domain"
	"predictmarket/internal/handlers"
	"predictmarket/internal/logger"
	"predictmarket/internal/metrics"
	"predictmarket/internal/services"
	"predictmarket/internal/store"
	"predictmarket/internal/websocket"
)

func main() {
	cfg := config.Load()
	zlog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	var questionCache *cache.QuestionCache
	if cfg.RedisAddr != "" {
		redisClient, err := cache.Connect(cfg.RedisAddr)
		if err != nil {
			zlog.Fatal("failed to connect redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		questionCache = cache.NewQuestionCache(redisClient, 5*time.Minute)
	}

	users := store.NewUserStore(database)
	balances := store.NewBalanceStore(database)
	journal := store.NewJournalStore(database)
	admin := store.NewAdminStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	serviceStores := make(services.StoreSet, 2)
	questionStores := make(map[domain.Domain]handlers.QuestionStore, 2)
	tradeStores := make(map[domain.Domain]handlers.TradeStore, 2)
	for _, d := range []domain.Domain{domain.News, domain.Sports} {
		questions := store.NewQuestionStore(database, d)
		trades := store.NewTradeStore(database, d)
		serviceStores[d] = services.DomainStores{Questions: questions, Trades: trades}
		questionStores[d] = questions
		tradeStores[d] = trades
	}

	placement := services.NewPlacementService(txRunner, serviceStores, balances, journal, hub, zlog)
	resolution := services.NewResolutionService(txRunner, serviceStores, balances, journal, audit, hub, questionCache, zlog)

	handler := handlers.New(txRunner, cfg, users, questionStores, tradeStores, balances, journal, admin, audit, placement, resolution, hub, questionCache, zlog)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsServer := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return database.PingContext(ctx)
	})

	go func() {
		zlog.Info("api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
	_ = metricsServer.Shutdown(ctx)
}
