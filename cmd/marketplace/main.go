package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	cfg "github.com/agentmart/agent-marketplace/backend/config"
	"github.com/agentmart/agent-marketplace/backend/internal/handlers"
	"github.com/agentmart/agent-marketplace/backend/internal/usecases"
	"github.com/agentmart/agent-marketplace/backend/internal/usecases/repository"
	"github.com/agentmart/agent-marketplace/backend/internal/workers"
	"github.com/agentmart/agent-marketplace/backend/pkg/database"
)

// Server timeout constants.
const (
	readTimeoutSeconds     = 15
	writeTimeoutSeconds    = 15
	idleTimeoutSeconds     = 60
	shutdownTimeoutSeconds = 5
)

func main() {
	time.Local = time.UTC

	config, err := cfg.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if config.App.Debug {
		opts.Level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	logger.Info("Starting marketplace backend",
		"environment", config.App.Environment,
		"debug", config.App.Debug,
		"server_port", config.HTTP.Port,
		"fee_percent", config.Platform.FeePercent,
		"solana_network", config.Solana.Network)

	ctx := context.Background()

	migrationsPath := "./migrations"
	if workDir, err := os.Getwd(); err == nil {
		if _, err := os.Stat(filepath.Join(workDir, "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "migrations")
		} else if _, err := os.Stat(filepath.Join(workDir, "..", "migrations")); !os.IsNotExist(err) {
			migrationsPath = filepath.Join(workDir, "..", "migrations")
		}
	}

	pg, err := database.New(config,
		database.MaxPoolSize(config.DB.PoolMax),
		database.ConnTimeout(config.DB.ConnectTimeout),
		database.HealthCheckPeriod(config.DB.HealthCheckPeriod),
		database.Isolation(pgx.ReadCommitted),
	)
	if err != nil {
		logger.Error("postgres connection failed", "error", err)
		return
	}
	defer pg.Close()

	logger.Info("Running database migrations", "path", migrationsPath)
	if err = database.RunMigrations(logger, config.DB.DatabaseURL, migrationsPath); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		log.Fatal(err)
	}

	// Repositories
	agentsRepository := repository.NewAgentsRepository(logger, pg)
	listingsRepository := repository.NewListingsRepository(logger, pg)
	ordersRepository := repository.NewOrdersRepository(logger, pg)
	transactionsRepository := repository.NewTransactionsRepository(logger, pg)

	// Order events go out over websockets.
	websocketManager := handlers.NewWebSocketManager(logger)

	// Services
	feePercent := decimal.NewFromFloat(config.Platform.FeePercent)

	agentService := usecases.NewAgentService(logger, agentsRepository)
	listingService := usecases.NewListingService(logger, listingsRepository)
	orderService := usecases.NewOrderService(logger, ordersRepository, listingsRepository, feePercent, websocketManager)
	paymentService := usecases.NewPaymentService(logger, ordersRepository, transactionsRepository, agentsRepository,
		usecases.PaymentConfig{
			FeePercent:    feePercent,
			WalletAddress: config.Platform.WalletAddress,
			Network:       config.Solana.Network,
			USDCMint:      config.Solana.USDCMint,
		}, websocketManager)
	transactionService := usecases.NewTransactionService(logger, transactionsRepository)

	// Workers
	listingExpirer := workers.NewListingExpirer(logger, listingService,
		time.Duration(config.Workers.ListingExpiryInterval)*time.Minute)
	go listingExpirer.Start(ctx)

	// Handlers
	httpHandler := handlers.NewHTTPHandler(logger, agentService, listingService, orderService, paymentService, transactionService)
	wsHandler := handlers.NewWebSocketHandler(logger, agentService, websocketManager)

	router := mux.NewRouter()

	// Register WebSocket routes before HTTP routes
	wsHandler.RegisterRoutes(router)
	httpHandler.RegisterRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         ":" + config.HTTP.Port,
		Handler:      c.Handler(router),
		ReadTimeout:  readTimeoutSeconds * time.Second,
		WriteTimeout: writeTimeoutSeconds * time.Second,
		IdleTimeout:  idleTimeoutSeconds * time.Second,
	}

	go func() {
		logger.Info("Starting server", "address", server.Addr)
		if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return
	}

	logger.Info("Server exited properly")
}
