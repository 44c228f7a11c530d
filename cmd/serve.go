package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm-contacts/config"
	"crm-contacts/docs"
	"crm-contacts/internal/cache"
	"crm-contacts/internal/handlers"
	"crm-contacts/internal/migrations"
	"crm-contacts/internal/repositories"
	"crm-contacts/internal/services"
	"crm-contacts/internal/viewstate"
	"crm-contacts/internal/wsnotify"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := config.ConnectDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migrateUp(&cfg.Database, logger); err != nil {
		return err
	}

	urlStore := cache.NewStore(cfg, logger)
	defer urlStore.Close()

	var files handlers.FileStore
	if cfg.S3Config.BucketName != "" {
		s3Service, err := services.NewS3Service(cfg.S3Config, urlStore, cfg.Cache.FileURLTTL)
		if err != nil {
			logger.Error("Object storage disabled", zap.Error(err))
		} else {
			files = s3Service
		}
	} else {
		logger.Warn("s3.bucket_name is empty; uploads and signed URLs are disabled")
	}

	ws := wsnotify.Manager
	metrics := services.NewMetrics(func() float64 { return float64(ws.ClientCount()) })
	caches := services.NewTenantCaches(viewstate.CacheTTLs{
		Contacts: cfg.Cache.ContactsTTL,
		Groups:   cfg.Cache.GroupsTTL,
		FileURL:  cfg.Cache.FileURLTTL,
	}, logger)
	defer caches.Close()

	httpHandler := handlers.NewHTTPHandler(cfg,
		repositories.NewSQLContactRepository(db),
		repositories.NewSQLGroupRepository(db),
		files,
		caches,
		services.Notifiers{caches, ws},
		metrics,
	)

	router := mux.NewRouter().PathPrefix("/api/v1").Subrouter()
	httpHandler.RegisterRoutes(router)
	router.HandleFunc("/ws", handlers.WebSocketHandler(ws, cfg.App.DefaultTenant))

	if cfg.HTTP.SwaggerEnabled || !cfg.IsProduction() {
		docs.SwaggerInfo.Host = "localhost:" + cfg.App.Port
		router.PathPrefix("/swagger-ui/").Handler(httpSwagger.Handler(
			httpSwagger.URL("/api/v1/swagger-ui/doc.json"),
			httpSwagger.DeepLinking(true),
		))
	}

	mainRouter := mux.NewRouter()
	mainRouter.Handle("/metrics", metrics.Handler())
	mainRouter.PathPrefix("/api/v1").Handler(router)

	origins := cfg.HTTP.CORSAllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Tenant-ID"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      c.Handler(mainRouter),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server is running",
			zap.String("addr", "http://localhost:"+cfg.App.Port),
			zap.String("swagger", "http://localhost:"+cfg.App.Port+"/api/v1/swagger-ui/"),
			zap.String("metrics", "http://localhost:"+cfg.App.Port+"/metrics"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-stop:
	}
	logger.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Error shutting down server", zap.Error(err))
	}

	logger.Info("Server stopped successfully")
	return nil
}

func migrateUp(cfg *config.DatabaseConfig, logger *zap.Logger) error {
	m, err := migrations.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
