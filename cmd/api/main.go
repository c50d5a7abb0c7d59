package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediaudit/backend/internal/adapters/cache"
	"github.com/mediaudit/backend/internal/api/handlers"
	"github.com/mediaudit/backend/internal/api/routes"
	"github.com/mediaudit/backend/internal/application/services"
	"github.com/mediaudit/backend/internal/domain/providers"
	"github.com/mediaudit/backend/internal/infrastructure/clients/groq"
	"github.com/mediaudit/backend/internal/infrastructure/clients/redis"
	"github.com/mediaudit/backend/internal/infrastructure/observability"
	"github.com/mediaudit/backend/pkg/config"
	"github.com/mediaudit/backend/pkg/secrets"
)

func main() {
	// Pull secrets (GROQ_API_KEY and friends) from Vault into the environment
	// before loading configuration, when Vault is configured.
	vaultCfg := secrets.LoadVaultConfigFromEnv("")
	if vaultCfg.Enabled {
		vaultCtx, vaultCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := secrets.ApplyVaultSecrets(vaultCtx, vaultCfg); err != nil {
			log.Printf("Warning: Failed to load Vault secrets: %v", err)
		}
		vaultCancel()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize Redis client
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		// Continue without Redis - extraction caching and shared rate limits
		// are disabled, local fallbacks apply.
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Println("Redis client initialized successfully")
	}

	// Initialize Groq vision client
	groqClient, err := groq.NewClient(&cfg.Groq)
	if err != nil {
		log.Fatalf("Failed to initialize Groq client: %v", err)
	}

	// Initialize services
	policyService := services.NewPolicyService(groqClient)
	auditService := services.NewAuditService(groqClient, cacheProvider, policyService, metrics)

	// Initialize handlers
	auditHandler := handlers.NewAuditHandler(auditService, cacheProvider)
	policyHandler := handlers.NewPolicyHandler(policyService)
	reportHandler := handlers.NewReportHandler()

	// Set up router
	router := routes.NewRouter(auditHandler, policyHandler, reportHandler, metrics)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Server stopped")
}
