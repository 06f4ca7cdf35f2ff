package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/rxledger/dlt-rx/internal/credential"
	"github.com/rxledger/dlt-rx/internal/registry"
	"github.com/rxledger/dlt-rx/pkg/config"
	"github.com/rxledger/dlt-rx/pkg/database"
	"github.com/rxledger/dlt-rx/pkg/fabric"
	"github.com/rxledger/dlt-rx/pkg/logger"
	"github.com/rxledger/dlt-rx/pkg/metadata"
	"github.com/rxledger/dlt-rx/pkg/monitoring"
	"github.com/rxledger/dlt-rx/pkg/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting prescription registry service")

	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.WithFields(map[string]interface{}{"error": err.Error()}).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateSchema(ctx); err != nil {
		cancel()
		log.WithFields(map[string]interface{}{"error": err.Error()}).Fatal("Failed to create database schema")
	}
	cancel()

	// Repositories over the off-chain index.
	credentialRepo := repository.NewCredentialIndexRepository(db.DB, log)
	prescriptionRepo := repository.NewPrescriptionIndexRepository(db.DB, log)
	alertRepo := repository.NewTamperAlertRepository(db.DB, log)

	// Ledger and metadata backends.
	invoker := fabric.NewGatewayClient(&cfg.Fabric, log)
	metadataStore := metadata.NewIPFSStore(&cfg.Metadata, log)

	// Services and handlers.
	credentialService := credential.NewService(invoker, credentialRepo, &cfg.Fabric, log)
	credentialHandlers := credential.NewHandlers(credentialService, log)

	registryService := registry.NewService(invoker, metadataStore, prescriptionRepo, alertRepo, &cfg.Fabric, log)
	registryHandlers := registry.NewHandlers(registryService, log)

	// Health checks.
	health := monitoring.NewHealthManager("registry-service")
	health.Register("database", monitoring.HealthCheckerFunc(func(ctx context.Context) error {
		return db.PingContext(ctx)
	}))

	router := mux.NewRouter()
	router.Use(monitoring.MetricsMiddleware)

	router.Handle("/health", health.Handler()).Methods("GET")
	router.Handle("/metrics", monitoring.MetricsHandler()).Methods("GET")

	// Walletless patient proof read: no bearer token, the patient secret in
	// the request body is the access credential. Evaluated under the
	// service's own enrollment.
	router.HandleFunc("/public/prescriptions/{prescriptionID}/proof", func(w http.ResponseWriter, r *http.Request) {
		ctx := fabric.WithCaller(r.Context(), "registry-service")
		registryHandlers.GetWithProof(w, r.WithContext(ctx))
	}).Methods("POST")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(registry.AuthMiddleware(&cfg.JWT, log))
	registryHandlers.RegisterRoutes(apiRouter)

	adminRouter := apiRouter.PathPrefix("/admin").Subrouter()
	adminRouter.Use(registry.RequireRoleMiddleware("admin"))
	credentialHandlers.RegisterRoutes(adminRouter)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.WithFields(map[string]interface{}{"addr": server.Addr}).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithFields(map[string]interface{}{"error": err.Error()}).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down prescription registry service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithFields(map[string]interface{}{"error": err.Error()}).Error("Server shutdown failed")
	}

	log.Info("Service stopped")
}
