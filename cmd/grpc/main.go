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

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/internal/idempotency"
	idemRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/idempotency/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/idempotency/sweeper"
	idemUCPkg "github.com/fekuna/omnipos-inventory-service/internal/idempotency/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invCachePkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/cache"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	invH "github.com/fekuna/omnipos-inventory-service/internal/inventory/handler"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/notify"
	"github.com/fekuna/omnipos-inventory-service/internal/threshold"
	"github.com/fekuna/omnipos-inventory-service/pkg/broker"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/fekuna/omnipos-inventory-service/pkg/telemetry"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize Telemetry
	var shutdownTelemetry func(context.Context) error
	otelScope := ""
	if cfg.Telemetry.Enabled {
		telCfg := &telemetry.Config{
			ServiceName:    config.ServiceName,
			ServiceVersion: config.ServiceVersion,
			Endpoint:       cfg.Telemetry.Endpoint,
			AuthHeader:     cfg.Telemetry.AuthHeader,
			Insecure:       cfg.Telemetry.Insecure,
		}
		_, shutdownTracing, err := telemetry.SetupTracing(ctx, telCfg)
		if err != nil {
			log.Fatalf("failed to set up tracing: %v", err)
		}
		shutdownLogging, err := telemetry.SetupLogging(ctx, telCfg)
		if err != nil {
			log.Fatalf("failed to set up log export: %v", err)
		}
		shutdownTelemetry = telemetry.JoinShutdown(shutdownTracing, shutdownLogging)
		otelScope = config.ServiceName
	}

	// 3. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
		OTelScope:         otelScope,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 4. Metrics Registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 5. Storage
	var (
		invRepo  inventory.Repository
		txm      inventory.TxManager
		idemRepo idempotency.Repository
	)
	switch cfg.Server.StorageDriver {
	case "memory":
		store := invRepoPkg.NewMemoryStore()
		invRepo, txm = store.Repository(), store
		idemRepo = idemRepoPkg.NewMemoryRepository()
		appLogger.Warn("Using in-memory storage, state is lost on restart")
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

		pgRepo := invRepoPkg.NewPGRepository(db)
		invRepo, txm = pgRepo, pgRepo
		idemRepo = idemRepoPkg.NewPGRepository(db)
	}

	// 6. Redis stock cache (optional)
	var stockCache *invCachePkg.RedisStockCache
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis (stock cache disabled)", zap.Error(err))
	} else {
		defer redisClient.Close()
		stockCache = invCachePkg.NewRedisStockCache(redisClient, cfg.Redis.StockTTL)
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 7. Kafka change-event producer (optional)
	var publisher notify.Publisher
	producer, err := broker.NewProducer(&broker.Config{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		ClientID:     config.ServiceName,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	}, otel.GetTracerProvider())
	if err != nil {
		appLogger.Warn("Could not create Kafka producer (change events disabled)", zap.Error(err))
	} else {
		defer producer.Close()
		publisher = notify.NewKafkaPublisher(producer)
		appLogger.Info("Kafka producer ready", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	var invalidator notify.Invalidator
	if stockCache != nil {
		invalidator = stockCache
	}
	notifier := notify.NewNotifier(invalidator, publisher, cfg.Inventory.NotifyTimeout, appLogger, registry)

	// 8. Thresholds
	byProduct, err := threshold.Parse(cfg.Inventory.LowStockThresholds)
	if err != nil {
		appLogger.Fatal("Invalid LOW_STOCK_THRESHOLDS", zap.Error(err))
	}
	thresholds := threshold.NewStatic(byProduct, cfg.Inventory.LowStockDefault)

	// 9. Initialize UseCases
	idemMetrics := idempotency.NewMetrics(registry)
	coordinator := idemUCPkg.NewCoordinator(idemRepo, cfg.Inventory.IdempotencyTTL, appLogger, idemMetrics)

	ucOpts := []invUCPkg.Option{
		invUCPkg.WithNotifier(notifier),
		invUCPkg.WithThresholds(thresholds),
		invUCPkg.WithMetrics(inventory.NewMetrics(registry)),
		invUCPkg.WithPickOrder(dto.PickOrder(cfg.Inventory.OutboundPickOrder)),
	}
	if stockCache != nil {
		ucOpts = append(ucOpts, invUCPkg.WithStockCache(stockCache))
	}
	invUC := invUCPkg.NewInventoryUseCase(invRepo, txm, coordinator, appLogger, ucOpts...)

	idemSweeper := sweeper.NewSweeper(idemRepo, cfg.Inventory.SweepInterval, cfg.Inventory.SweepBatchSize, idemMetrics, appLogger)

	var orderListener *listener.OrderListener
	if cfg.Kafka.ConsumeOrders {
		reader, err := broker.NewConsumer(&broker.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrderTopic,
			GroupID: cfg.Kafka.GroupID,
		}, otel.GetTracerProvider())
		if err != nil {
			appLogger.Fatal("Could not create Kafka consumer", zap.Error(err))
		}
		defer reader.Close()
		orderListener = listener.NewOrderListener(reader, invUC, appLogger)
	}

	// 10. Initialize Handlers
	invHandler := invH.NewInventoryHandler(invUC, appLogger)

	// 11. gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(invH.UnaryLoggingInterceptor(appLogger)),
	)
	invH.RegisterInventoryMutationServiceServer(grpcServer, invHandler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(invH.ServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	metricsServer := &http.Server{
		Addr:              cfg.Server.MetricsPort,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 12. Run until signalled
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLogger.Info("Starting gRPC server", zap.String("port", port))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		appLogger.Info("Starting metrics server", zap.String("addr", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		idemSweeper.Start(gctx)
		return nil
	})
	if orderListener != nil {
		g.Go(func() error {
			orderListener.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		healthServer.Shutdown()
		grpcServer.GracefulStop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Metrics server shutdown", zap.Error(err))
		}
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				appLogger.Warn("Telemetry shutdown", zap.Error(err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server exited with error", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
