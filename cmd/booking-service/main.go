package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/analytics"
	analytics_api "ms-booking/internal/analytics/api"
	"ms-booking/internal/auth"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/discount"
	discountdb "ms-booking/internal/discount/db"
	"ms-booking/internal/discount/discount_api"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/monitoring"
	"ms-booking/internal/tickets/credential"
	ticketdb "ms-booking/internal/tickets/db"
	tredis "ms-booking/internal/tickets/redis"
	tickets "ms-booking/internal/tickets/service"
	"ms-booking/internal/tickets/ticket_api"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func main() {
	log := logger.NewLogger("booking-service")
	defer log.Close()

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	if cfg.Migrations.AutoMigrate {
		runner := migrations.NewRunner(bunDB.DB, cfg.Migrations, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATION", err.Error())
		}
		if err := runner.Close(); err != nil {
			log.Warn("MIGRATION", err.Error())
		}
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	var publisher tickets.EventPublisher = kafka.NoopProducer{Logger: log}
	if cfg.Kafka.Enabled {
		if err := kafka.EnsureTopicsExist(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topics.All(), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		publisher = producer
		log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for %v", cfg.Kafka.Brokers))
	} else {
		log.Warn("KAFKA", "Kafka disabled, ticket events are not published")
	}

	if !cfg.Booking.EnforceCatalog {
		log.Warn("BOOKING", "Ticket catalog not enforced: ticket type and price are taken from the request")
	}

	generator := credential.NewGenerator(cfg.Credentials, log)
	ticketStore := &ticketdb.DB{Bun: bunDB}

	ticketService := tickets.NewTicketService(ticketStore, generator, publisher, log, tickets.Options{
		EnforceCatalog:      cfg.Booking.EnforceCatalog,
		ReferralPoints:      cfg.Booking.ReferralPoints,
		CredentialTimeout:   cfg.Credentials.Timeout,
		CollaboratorTimeout: cfg.Booking.CollaboratorTimeout,
	})
	ticketService.Idempotency = tredis.NewIdempotency(redisClient, cfg.Booking.IdempotencyTTL, cfg.IdempotencyPendingTTL(), log)
	ticketService.QR = generator

	countService := tickets.NewTicketCountService(ticketStore)
	discountService := discount.NewService(&discountdb.DB{Bun: bunDB}, log)

	ticketHandler := ticket_api.NewHandler(ticketService, countService, log)
	discountHandler := discount_api.NewHandler(discountService, log)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(analytics.NewDB(bunDB)), log)

	protect, err := auth.Middleware(ctx, cfg.Auth, log)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware)
	r.Use(monitoring.Middleware)

	r.Handle("/metrics", monitoring.Handler())
	for _, dir := range []string{"qrcodes", "badges", "badges-pdf"} {
		prefix := "/" + dir
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(filepath.Join(cfg.Credentials.PublicDir, dir))))
		r.Handle(prefix+"/*", fs)
	}
	log.Info("ROUTER", fmt.Sprintf("Serving credentials from %s", cfg.Credentials.PublicDir))

	r.Route("/api", func(r chi.Router) {
		ticketHandler.RegisterRoutes(r, protect)
		log.Info("ROUTER", "Ticket routes registered under /api/tickets")

		r.Group(func(r chi.Router) {
			r.Use(protect)
			discountHandler.RegisterRoutes(r)
			analyticsHandler.RegisterRoutes(r)
		})
		log.Info("ROUTER", "Discount and analytics routes registered under /api")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Booking Service shutdown complete")
	}
}
