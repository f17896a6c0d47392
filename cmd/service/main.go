package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/omnistore/ledger-service/config"
	"github.com/omnistore/ledger-service/pkg/broker"
	"github.com/omnistore/ledger-service/pkg/cache"
	"github.com/omnistore/ledger-service/pkg/logger"
	"github.com/omnistore/ledger-service/pkg/postgres"
	"github.com/omnistore/ledger-service/pkg/search"

	catalogRepoPkg "github.com/omnistore/ledger-service/internal/catalog/repository"
	"github.com/omnistore/ledger-service/internal/movement"
	movH "github.com/omnistore/ledger-service/internal/movement/handler"
	movRepoPkg "github.com/omnistore/ledger-service/internal/movement/repository"
	movUCPkg "github.com/omnistore/ledger-service/internal/movement/usecase"
	orderH "github.com/omnistore/ledger-service/internal/order/handler"
	orderListenerPkg "github.com/omnistore/ledger-service/internal/order/listener"
	orderRepoPkg "github.com/omnistore/ledger-service/internal/order/repository"
	orderUCPkg "github.com/omnistore/ledger-service/internal/order/usecase"
	"github.com/omnistore/ledger-service/internal/rest"
	returnsH "github.com/omnistore/ledger-service/internal/returns/handler"
	returnsRepoPkg "github.com/omnistore/ledger-service/internal/returns/repository"
	returnsUCPkg "github.com/omnistore/ledger-service/internal/returns/usecase"
	stockH "github.com/omnistore/ledger-service/internal/stock/handler"
	stockRepoPkg "github.com/omnistore/ledger-service/internal/stock/repository"
	stockUCPkg "github.com/omnistore/ledger-service/internal/stock/usecase"
	warehouseRepoPkg "github.com/omnistore/ledger-service/internal/warehouse/repository"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "dev" || cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
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

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.ShipmentsTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.ShipmentsTopic))

	// 6. Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, movement search falls back to SQL", zap.Error(err))
		esClient = nil
	} else {
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 7. Initialize Repositories
	warehouseRepo := warehouseRepoPkg.NewPGRepository(db)
	catalogRepo := catalogRepoPkg.NewPGRepository(db)
	stockRepo := stockRepoPkg.NewPGRepository(db)
	movementRepo := movRepoPkg.NewPGRepository(db)
	orderRepo := orderRepoPkg.NewPGRepository(db)
	returnsRepo := returnsRepoPkg.NewPGRepository(db)

	// 8. Initialize UseCases
	indexer := movement.NewIndexer(esClient, appLogger)
	stockUC := stockUCPkg.NewStockUseCase(stockRepo, warehouseRepo, redisClient, indexer, appLogger)
	movementUC := movUCPkg.NewMovementUseCase(movementRepo, esClient, appLogger)
	orderUC := orderUCPkg.NewOrderUseCase(orderRepo, stockUC, catalogRepo, redisClient, appLogger, cfg.Ledger.DefaultWarehouseID)
	returnsUC := returnsUCPkg.NewReturnUseCase(returnsRepo, orderRepo, stockUC, redisClient, appLogger, cfg.Ledger.DefaultWarehouseID, cfg.Ledger.ReturnWindowDays)

	// 9. Initialize Listeners
	shipmentListener := orderListenerPkg.NewShipmentListener(kafkaConsumer, orderUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go shipmentListener.Start(ctx)

	// 10. HTTP API
	router := gin.New()
	router.Use(gin.Recovery(), rest.ActorMiddleware())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api/v1")
	stockH.NewStockHandler(stockUC, appLogger).Register(api)
	movH.NewMovementHandler(movementUC, appLogger).Register(api)
	orderH.NewOrderHandler(orderUC, appLogger).Register(api)
	returnsH.NewReturnHandler(returnsUC, appLogger).Register(api)

	httpPort := cfg.Server.HTTPPort
	if !strings.HasPrefix(httpPort, ":") {
		httpPort = ":" + httpPort
	}
	httpServer := &http.Server{Addr: httpPort, Handler: router}

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", httpPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve HTTP", zap.Error(err))
		}
	}()

	// 11. gRPC health endpoint for mesh probes
	grpcPort := cfg.Server.GRPCPort
	if !strings.HasPrefix(grpcPort, ":") {
		grpcPort = ":" + grpcPort
	}

	lis, err := net.Listen("tcp", grpcPort)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", grpcPort))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve gRPC", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
