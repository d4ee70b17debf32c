package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"snipvault/internal/auth"
	"snipvault/internal/config"
	"snipvault/internal/handler"
	"snipvault/internal/metrics"
	"snipvault/internal/middleware"
	"snipvault/internal/repository/postgres"
	postgresVault "snipvault/internal/repository/postgres/vault"
	serviceVault "snipvault/internal/service/vault"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logger, closeLog, err := config.NewLogger(cfg, "server", os.Stdout)
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// JWT bearer auth is optional; API keys always work
	var jwtVerifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		v, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer v.Close()
		jwtVerifier = v
		logger.Info("jwt auth enabled", "jwks_url", cfg.JWKSURL)
	}

	// Create pgx connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	repos := postgresVault.NewRepositories(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	})

	// Create services
	services := serviceVault.SetupServices(
		repos,
		auth.NewBcryptHasher(bcrypt.DefaultCost),
		cfg.RebuildConcurrency,
		logger,
	)

	logger.Info("services initialized")

	// Create handlers
	handlers := &handler.Handlers{
		Health:      handler.NewHealthHandler(pool, logger),
		Auth:        handler.NewAuthHandler(services.Users, logger),
		Public:      handler.NewPublicHandler(services.Snippets, logger),
		Search:      handler.NewSearchHandler(services.Search, logger),
		Collections: handler.NewCollectionHandler(services.Collections, services.Snippets, logger),
		Members:     handler.NewMemberHandler(services.Members, logger),
		Snippets:    handler.NewSnippetHandler(services.Snippets, logger),
		Tags:        handler.NewTagHandler(services.Tags, logger),
		Admin:       handler.NewAdminHandler(services.Index, logger),
	}

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	handler.RegisterRoutes(mux, handlers, middleware.Auth(jwtVerifier, services.Users, logger))

	// Build middleware chain
	// Order: CORS → Recovery → Metrics → Routes (auth is applied per route)
	var h http.Handler = mux
	h = middleware.Metrics(h)
	h = middleware.Recovery(logger)(h)

	// CORS - outermost so OPTIONS pre-flight requests never reach auth
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
