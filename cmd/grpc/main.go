package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/migrations"
	"github.com/fekuna/omnipos-stock-service/pkg/broker"
	"github.com/fekuna/omnipos-stock-service/pkg/cache"
	"github.com/fekuna/omnipos-stock-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-stock-service/pkg/i18n"
	"github.com/fekuna/omnipos-stock-service/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/pkg/middleware"
	"github.com/fekuna/omnipos-stock-service/pkg/observability"
	"github.com/fekuna/omnipos-stock-service/pkg/search"

	"github.com/fekuna/omnipos-stock-service/internal/catalog"
	"github.com/fekuna/omnipos-stock-service/internal/events"
	"github.com/fekuna/omnipos-stock-service/internal/stock"
	stockRepoPkg "github.com/fekuna/omnipos-stock-service/internal/stock/repository"

	adjH "github.com/fekuna/omnipos-stock-service/internal/adjustment/handler"
	adjUCPkg "github.com/fekuna/omnipos-stock-service/internal/adjustment/usecase"
	catH "github.com/fekuna/omnipos-stock-service/internal/catalog/handler"
	catUCPkg "github.com/fekuna/omnipos-stock-service/internal/catalog/usecase"
	dedH "github.com/fekuna/omnipos-stock-service/internal/deduction/handler"
	dedListenerPkg "github.com/fekuna/omnipos-stock-service/internal/deduction/listener"
	dedUCPkg "github.com/fekuna/omnipos-stock-service/internal/deduction/usecase"
	recH "github.com/fekuna/omnipos-stock-service/internal/recipe/handler"
	recUCPkg "github.com/fekuna/omnipos-stock-service/internal/recipe/usecase"
	stockH "github.com/fekuna/omnipos-stock-service/internal/stock/handler"
	stockUCPkg "github.com/fekuna/omnipos-stock-service/internal/stock/usecase"
	trfH "github.com/fekuna/omnipos-stock-service/internal/transfer/handler"
	trfUCPkg "github.com/fekuna/omnipos-stock-service/internal/transfer/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 1.5 Initialize i18n
	i18n.Init()
	i18n.SetDefaultLanguage(cfg.I18n.DefaultLanguage)
	for _, path := range cfg.I18n.ExtraLocales {
		if err := i18n.Load(path); err != nil {
			log.Printf("Failed to load locales from %s: %v", path, err)
		}
	}

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2.5 Tracing
	if cfg.Tracing.Enabled {
		shutdown, err := observability.SetupTracingSDK(ctx, &observability.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			ServiceName: cfg.Tracing.ServiceName,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			appLogger.Fatal("Could not set up tracing", zap.Error(err))
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := shutdown(shutdownCtx); err != nil {
				appLogger.Error("Failed to flush traces", zap.Error(err))
			}
		}()
		appLogger.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.Endpoint))
	}

	// 3. Initialize Store
	var store stock.Store
	switch cfg.Store.Driver {
	case "memory":
		store = stockRepoPkg.NewMemoryStore()
		appLogger.Warn("Using in-memory stock store, data is lost on restart")
	default:
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

		if err := migrations.Up(ctx, db); err != nil {
			appLogger.Fatal("Could not apply migrations", zap.Error(err))
		}
		store = stockRepoPkg.NewPGStore(db, cfg.Store.MaxTxRetries, appLogger)
	}

	// 4. Initialize Redis
	locker := stock.NewNopLocker()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		locker = stock.NewRedisLocker(redisClient, time.Duration(cfg.Redis.LockTTL)*time.Second, appLogger)
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Initialize Kafka
	publisher := events.NewNopPublisher()
	var kafkaConsumer *broker.KafkaConsumer
	if cfg.Kafka.Enabled {
		kafkaProducer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventsTopic,
		})
		defer kafkaProducer.Close()
		publisher = events.NewKafkaPublisher(kafkaProducer, appLogger)

		kafkaConsumer = broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrdersTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		appLogger.Info("Connected to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("orders_topic", cfg.Kafka.OrdersTopic),
			zap.String("events_topic", cfg.Kafka.EventsTopic),
		)
	}

	// 5.5 Initialize Elasticsearch
	var searchIndex catalog.SearchIndex
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch, search index will not be updated", zap.Error(err))
		} else {
			productIndex := cfg.Elastic.ProductIndex
			if productIndex == "" {
				productIndex = catUCPkg.DefaultProductIndex
			}
			if err := esClient.CreateIndex(ctx, productIndex, catalog.ProductIndexMapping); err != nil {
				appLogger.Warn("Could not create product index", zap.String("index", productIndex), zap.Error(err))
			}
			searchIndex = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 6. Initialize UseCases
	recipeUC := recUCPkg.NewRecipeUseCase(store, appLogger)
	deductionUC := dedUCPkg.NewDeductionUseCase(store, appLogger)
	transferUC := trfUCPkg.NewTransferUseCase(store, locker, publisher, appLogger)
	adjustmentUC := adjUCPkg.NewAdjustmentUseCase(store, locker, publisher, appLogger)
	catalogUC := catUCPkg.NewCatalogUseCase(store, searchIndex, cfg.Elastic.ProductIndex, publisher, appLogger)
	stockUC := stockUCPkg.NewStockUseCase(store, appLogger)

	// 6.5 Initialize Listeners
	if kafkaConsumer != nil {
		orderListener := dedListenerPkg.NewOrderListener(kafkaConsumer, deductionUC, publisher, appLogger)
		go orderListener.Start(ctx)
	}

	// 7. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.LoggingInterceptor(appLogger),
			middleware.ContextInterceptor(),
		),
	)

	// Register Services
	recH.NewRecipeHandler(recipeUC, appLogger).Register(grpcServer)
	dedH.NewDeductionHandler(deductionUC, appLogger).Register(grpcServer)
	trfH.NewTransferHandler(transferUC, appLogger).Register(grpcServer)
	adjH.NewAdjustmentHandler(adjustmentUC, appLogger).Register(grpcServer)
	catH.NewCatalogHandler(catalogUC, appLogger).Register(grpcServer)
	stockH.NewStockHandler(stockUC, appLogger).Register(grpcServer)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port), zap.String("store", cfg.Store.Driver))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
