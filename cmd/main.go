package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sartoro/checkout-service/internal/cache"
	"github.com/sartoro/checkout-service/internal/consumer"
	checkouthttp "github.com/sartoro/checkout-service/internal/http"
	"github.com/sartoro/checkout-service/internal/logger"
	"github.com/sartoro/checkout-service/internal/payment"
	"github.com/sartoro/checkout-service/internal/poller"
	"github.com/sartoro/checkout-service/internal/publisher"
	"github.com/sartoro/checkout-service/internal/repository"
	"github.com/sartoro/checkout-service/internal/service"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	log, err := logger.New(getEnv("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Infow("checkout-service starting")

	// Configuration
	httpPort := getEnv("HTTP_PORT", "8080")
	requestTimeout := 30 * time.Second
	shutdownTimeout := 10 * time.Second

	kafkaBrokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	creds := &repository.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "checkout"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
	}

	store, err := repository.NewStore(creds)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}
	defer store.Close()

	if err := store.RunMigrations(creds); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

	// Cart storage
	mongoCtx, mongoCancel := context.WithTimeout(context.Background(), 15*time.Second)
	mongoDB, err := repository.ConnectMongoDB(mongoCtx,
		getEnv("MONGO_URI", "mongodb://localhost:27017"),
		getEnv("MONGO_DB", "checkout"))
	mongoCancel()
	if err != nil {
		log.Fatalw("failed to connect to mongodb", "error", err)
	}
	cartRepo := repository.NewMongoCartRepository(mongoDB)

	redisClient := redis.NewClient(&redis.Options{
		Addr: getEnv("REDIS_ADDR", "localhost:6379"),
	})
	cartCache := cache.NewRedisCache(redisClient)

	// Payment integration. The same processor answers to several provider id
	// aliases depending on deployment vintage; the negotiator sorts that out.
	stripeProvider := payment.NewBreakerProvider(
		payment.NewStripeProvider(getEnv("STRIPE_API_KEY", "")),
		"stripe")
	registry := payment.Registry{
		"pp_stripe_stripe": stripeProvider,
		"stripe":           stripeProvider,
	}
	candidates := strings.Split(getEnv("PAYMENT_PROVIDER_CANDIDATES",
		strings.Join(payment.DefaultCandidates, ",")), ",")
	negotiator := payment.NewNegotiator(registry, candidates)

	// Services
	cartService := service.NewCartService(cartRepo, cartCache, log)
	checkoutService := service.NewCheckoutService(cartRepo, store, store, negotiator, cartCache, log)
	reconciler := poller.New(store,
		time.Duration(getEnvAsInt("POLL_INTERVAL_MS", 2000))*time.Millisecond,
		getEnvAsInt("POLL_MAX_ATTEMPTS", poller.DefaultMaxAttempts),
		log)

	// Background workers
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	outboxPoller := publisher.NewOutboxPoller(store, checkoutService, log, kafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outboxPoller.Run(workerCtx)
	}()

	paymentConsumer := consumer.NewConsumer(checkoutService, log, kafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		paymentConsumer.Run(workerCtx)
	}()

	// HTTP server
	router := checkouthttp.NewRouter(checkouthttp.RouterConfig{
		Cart:     checkouthttp.NewCartHandler(cartService, requestTimeout),
		Checkout: checkouthttp.NewCheckoutHandler(checkoutService, requestTimeout),
		Order:    checkouthttp.NewOrderHandler(store, reconciler, requestTimeout),
		Webhook: checkouthttp.NewWebhookHandler(checkoutService,
			getEnv("STRIPE_WEBHOOK_SECRET", ""), requestTimeout, log),
		RequestTimeout: requestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("http server listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	workerCancel()
	paymentConsumer.Close()
	outboxPoller.Close()
	wg.Wait()

	log.Infow("checkout-service exited")
}
