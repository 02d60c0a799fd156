package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/procurement/internal/adapter/discovery"
	"github.com/rl1809/procurement/internal/adapter/handler"
	"github.com/rl1809/procurement/internal/adapter/notify"
	"github.com/rl1809/procurement/internal/adapter/storage"
	"github.com/rl1809/procurement/internal/config"
	"github.com/rl1809/procurement/internal/core/domain"
	"github.com/rl1809/procurement/internal/core/service"
	"github.com/rl1809/procurement/internal/port"
)

const recentNotifications = 50

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping mysql: %v", err)
	}
	log.Println("connected to mysql")

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 20,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Seed supplies the market the simulated searcher draws from, and the
	// catalog itself when CATALOG_SOURCE=yaml.
	seed, err := storage.LoadSeedFile(cfg.CatalogSeedPath)
	if err != nil {
		log.Fatalf("failed to load seed: %v", err)
	}
	log.Printf("loaded seed: %d items", len(seed.Items))

	// Initialize adapters
	redisAdapter := storage.NewRedisAdapter(rdb)
	mysqlAdapter := storage.NewMySQLAdapter(db)

	var catalog port.CatalogRepository = storage.NewMemoryCatalog(seed.Items)
	if cfg.CatalogSource == config.CatalogMySQL {
		catalog = mysqlAdapter
	}

	var sink port.RFQSink = mysqlAdapter
	if cfg.RFQSink == config.SinkDynamoDB {
		ddb, err := storage.NewDynamoDBClient(ctx, storage.DynamoConfig{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Fatalf("failed to init dynamodb: %v", err)
		}
		sink = storage.NewDynamoRFQAdapter(ddb, cfg.RFQTable)
	}
	log.Printf("catalog=%s rfq sink=%s", cfg.CatalogSource, cfg.RFQSink)

	searcher := discovery.NewCachedSearcher(
		discovery.NewSimulatedSearcher(seed.Items, seed.Market, cfg.DiscoveryLatency),
		redisAdapter,
		cfg.OfferCacheTTL,
	)

	// Start notification workers
	hub := notify.NewHub()
	recent := notify.NewRecentSink(recentNotifications)
	dispatcher := notify.NewDispatcher(cfg.NotifyQueueSize, notify.LogSink{}, recent, hub)
	dispatcher.Start(cfg.NotifyWorkers)

	// Initialize services
	budget := seed.Budget
	if cfg.OrderBudget != nil {
		budget = *cfg.OrderBudget
	}
	orderService := service.NewOrderService(domain.NewOrder(budget), catalog, dispatcher)
	discoveryService := service.NewDiscoveryService(orderService, searcher, dispatcher, cfg.DiscoveryTimeout)
	rfqService := service.NewRFQService(orderService, sink, redisAdapter, dispatcher, cfg.DispatchTimeout)
	log.Printf("order session ready, budget %s", budget.StringFixed(2))

	// Initialize gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterOrderServiceServer(grpcServer, handler.NewGRPCHandler(orderService, discoveryService))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(handler.OrderServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	httpHandler := handler.NewHTTPHandler(orderService, discoveryService, rfqService, recent)
	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           handler.NewRouter(httpHandler, hub, cfg.CORSOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	healthServer.SetServingStatus(handler.OrderServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	// Stop HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Println("HTTP server stopped")

	// Stop gRPC server
	grpcServer.GracefulStop()
	log.Println("gRPC server stopped")

	// Cancel in-flight searches, then drain notifications they raised
	discoveryService.Close()
	log.Println("discovery stopped")
	dispatcher.Close()
	log.Printf("notification workers stopped (%d dropped)", dispatcher.Dropped())

	// Close connections
	rdb.Close()
	db.Close()
	log.Println("connections closed")
}
