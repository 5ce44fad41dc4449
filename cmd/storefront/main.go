package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/joshua0006/testraveremedy/internal/cart"
	"github.com/joshua0006/testraveremedy/internal/catalog"
	"github.com/joshua0006/testraveremedy/internal/checkout"
	"github.com/joshua0006/testraveremedy/internal/gateway"
	h "github.com/joshua0006/testraveremedy/internal/http"
	"github.com/joshua0006/testraveremedy/internal/pricing"
	"github.com/joshua0006/testraveremedy/internal/publisher"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	CatalogDBPath         string
	CatalogMigrationsPath string
	RedisAddr             string

	MongoURI    string
	MongoDBName string

	PostgresHost           string
	PostgresPort           int
	PostgresUser           string
	PostgresPassword       string
	PostgresDBName         string
	CheckoutMigrationsPath string

	KafkaBrokers []string

	GatewayBaseURL string
	GatewayAPIKey  string

	VoucherCode       string
	VoucherPercentage int

	FreeShippingThreshold int64
	ShippingFee           int64

	SuccessURL            string
	CancelURL             string
	Currency              string
	ConnectedAccountID    string
	ApplicationFeePercent int
}

func loadConfig() *Config {
	pgPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,

		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/catalog/migrations"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "storefront"),

		PostgresHost:           getEnv("DB_HOST", "localhost"),
		PostgresPort:           pgPort,
		PostgresUser:           getEnv("DB_USER", "postgres"),
		PostgresPassword:       getEnv("DB_PASSWORD", "postgres"),
		PostgresDBName:         getEnv("DB_NAME", "storefront"),
		CheckoutMigrationsPath: getEnv("CHECKOUT_MIGRATIONS_PATH", "./internal/checkout/migrations"),

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		GatewayBaseURL: getEnv("PAYMENT_GATEWAY_URL", "http://localhost:4242"),
		GatewayAPIKey:  getEnv("PAYMENT_GATEWAY_API_KEY", ""),

		VoucherCode:       getEnv("VOUCHER_CODE", "neverstopraving"),
		VoucherPercentage: getEnvInt("VOUCHER_PERCENTAGE", 10),

		FreeShippingThreshold: int64(getEnvInt("FREE_SHIPPING_THRESHOLD", int(pricing.DefaultFreeShippingThreshold))),
		ShippingFee:           int64(getEnvInt("SHIPPING_FEE", int(pricing.DefaultShippingFee))),

		SuccessURL:            getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/success"),
		CancelURL:             getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/cart"),
		Currency:              getEnv("CURRENCY", "aud"),
		ConnectedAccountID:    getEnv("CONNECTED_ACCOUNT_ID", ""),
		ApplicationFeePercent: getEnvInt("APPLICATION_FEE_PERCENT", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Invalid %s: %v", key, err)
	}
	return n
}

func main() {
	log.Println("storefront starting...")

	cfg := loadConfig()

	// Catalog: sqlite behind a Redis cache
	catalogRepo, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		log.Fatalf("Failed to open catalog database: %v", err)
	}
	defer catalogRepo.Close()

	if err := catalogRepo.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		log.Fatalf("Failed to run catalog migrations: %v", err)
	}
	log.Println("Catalog migrations completed")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	catalogService := catalog.NewService(catalogRepo, catalog.NewRedisCache(redisClient))

	// Carts: in-memory store mirrored to Mongo
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoDB.Client().Disconnect(ctx); err != nil {
			log.Printf("Failed to disconnect MongoDB: %v", err)
		}
	}()

	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(context.Background()); err != nil {
		log.Printf("Failed to create cart indexes: %v", err)
	}

	cartStore := cart.NewStore(cartRepo, cart.VoucherRule{
		Code:       cfg.VoucherCode,
		Percentage: cfg.VoucherPercentage,
	})

	engine := pricing.NewEngine(cfg.FreeShippingThreshold, cfg.ShippingFee)

	// Checkout: Postgres records plus outbox, gateway over HTTP
	creds := &checkout.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPassword,
		DBName:            cfg.PostgresDBName,
		MigrationsDirPath: cfg.CheckoutMigrationsPath,
	}

	checkoutRepo, err := checkout.NewRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to checkout database: %v", err)
	}
	defer checkoutRepo.Close()

	if err := checkoutRepo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run checkout migrations: %v", err)
	}
	log.Println("Checkout migrations completed")

	gatewayClient := gateway.NewClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, gateway.DefaultRequestTimeout)

	checkoutService := checkout.NewService(cartStore, engine, gatewayClient, checkoutRepo, checkout.Config{
		SuccessURL:            cfg.SuccessURL,
		CancelURL:             cfg.CancelURL,
		Currency:              cfg.Currency,
		ConnectedAccountID:    cfg.ConnectedAccountID,
		ApplicationFeePercent: cfg.ApplicationFeePercent,
	})

	// Outbox poller drains order events to Kafka
	pollerCtx, stopPoller := context.WithCancel(context.Background())
	poller := publisher.NewOutboxPoller(checkoutRepo, cfg.KafkaBrokers...)
	go poller.Run(pollerCtx)

	// Handlers
	catalogHandler := h.NewCatalogHandler(catalogService, cfg.RequestTimeout)
	cartHandler := h.NewCartHandler(cartStore, catalogService, engine, cfg.RequestTimeout)
	checkoutHandler := h.NewCheckoutHandler(checkoutService, cfg.RequestTimeout)
	connectHandler := h.NewConnectHandler(gatewayClient, cfg.RequestTimeout)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(h.SessionMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			log.Printf("failed to write health response: %v", err)
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/{product_id}", catalogHandler.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Post("/voucher", cartHandler.ApplyVoucher)
		})

		r.Post("/checkout", checkoutHandler.InitiateCheckout)

		r.Route("/connect", func(r chi.Router) {
			r.Post("/accounts", connectHandler.CreateAccount)
			r.Get("/accounts/status", connectHandler.GetAccountStatus)
			r.Post("/accounts/login-link", connectHandler.CreateLoginLink)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	stopPoller()
	if err := poller.Close(); err != nil {
		log.Printf("failed to close outbox poller: %v", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}
