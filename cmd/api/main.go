package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/bizdir_api/internal/cache"
	"github.com/GTDGit/bizdir_api/internal/config"
	"github.com/GTDGit/bizdir_api/internal/database"
	"github.com/GTDGit/bizdir_api/internal/handler"
	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/metrics"
	"github.com/GTDGit/bizdir_api/internal/middleware"
	"github.com/GTDGit/bizdir_api/internal/repository"
	"github.com/GTDGit/bizdir_api/internal/service"
	"github.com/GTDGit/bizdir_api/internal/sse"
	"github.com/GTDGit/bizdir_api/internal/utils"
	"github.com/GTDGit/bizdir_api/internal/worker"
	"github.com/GTDGit/bizdir_api/pkg/bigdatacloud"
	"github.com/GTDGit/bizdir_api/pkg/ipapi"
)

// main is the application entrypoint for the business directory API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting bizdir api")
	utils.InitJWT(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 4. Repositories
	territoryRepo := repository.NewTerritoryRepository(db)
	businessRepo := repository.NewBusinessRepository(db)

	// 5. Location hierarchy cache (Redis snapshot shared between instances)
	hierarchy := location.NewHierarchyCache(territoryRepo,
		location.WithSnapshotStore(cache.NewHierarchySnapshot(redisClient, cfg.Location.HierarchyMaxAge)),
		location.WithMaxAge(cfg.Location.HierarchyMaxAge),
	)
	territorySvc := service.NewTerritoryService(territoryRepo)

	// 6. Reverse geocoding chain: coordinates first, then IP based fallbacks
	geocoders := service.NewGeocoderChain(
		service.NewBigDataCloudGeocoder(bigdatacloud.NewClient(bigdatacloud.Config{
			BaseURL:  cfg.Geocode.PrimaryURL,
			Language: cfg.Geocode.Language,
			Timeout:  cfg.Geocode.Timeout,
		})),
		service.NewIPAPIGeocoder(ipapi.NewClient(ipapi.Config{
			BaseURL: cfg.Geocode.SecondaryURL,
			APIKey:  cfg.Geocode.SecondaryKey,
			Timeout: cfg.Geocode.Timeout,
		})),
	)
	if cfg.Geocode.GeoIPDBPath != "" {
		mm, err := service.OpenMaxMindGeocoder(cfg.Geocode.GeoIPDBPath)
		if err != nil {
			log.Warn().Err(err).Msg("MaxMind database unavailable - provider will be disabled")
		} else {
			defer mm.Close()
			geocoders.Register(mm)
		}
	}
	log.Info().Strs("providers", geocoders.Names()).Msg("reverse geocoders registered")

	// 7. Sessions publish selections to Redis and to SSE subscribers
	hub := sse.NewHub()
	selectionStore := cache.NewSelectionStore(redisClient, cfg.Location.SelectionTTL)
	registry := location.NewRegistry(
		location.Publishers{selectionStore, sse.NewHubNotifier(hub)},
		cfg.Location.SessionIdleTTL,
	)

	position := location.DefaultPositionOptions()
	position.Timeout = cfg.Location.GeolocationTimeout
	orchestrator := location.NewOrchestrator(
		hierarchy,
		location.NewMatcher(hierarchy, territorySvc),
		geocoders,
		location.OrchestratorConfig{HomeCity: cfg.Location.HomeCity, Position: position},
	)
	widener := location.NewWidener(businessRepo, hierarchy)

	// 8. Context for graceful shutdown; detection runs are bound to it
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. Handlers and middleware
	handlers := &Handlers{
		Health:         handler.NewHealthHandler(territoryRepo, redisClient, hierarchy, registry),
		Territory:      handler.NewTerritoryHandler(hierarchy, territorySvc),
		Location:       handler.NewLocationHandler(ctx, registry, orchestrator, hierarchy, selectionStore),
		SSE:            handler.NewSSEHandler(hub, registry),
		Business:       handler.NewBusinessHandler(widener),
		AdminHierarchy: handler.NewAdminHierarchyHandler(hierarchy),
	}
	jwtMw := middleware.NewJWTMiddleware()

	// 10. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw)

	// 11. Start workers
	go worker.NewHierarchyRefreshWorker(hierarchy, cfg.Worker.HierarchyRefreshInterval).Start(ctx)
	go worker.NewSessionSweepWorker(registry, cfg.Worker.SessionSweepInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers and in-flight detection
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health         *handler.HealthHandler
	Territory      *handler.TerritoryHandler
	Location       *handler.LocationHandler
	SSE            *handler.SSEHandler
	Business       *handler.BusinessHandler
	AdminHierarchy *handler.AdminHierarchyHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Location hierarchy (public)
	locations := router.Group("/v1/locations")
	{
		locations.GET("/countries", handlers.Territory.GetCountries)
		locations.GET("/regions", handlers.Territory.GetRegions)
		locations.GET("/cities", handlers.Territory.GetCities)
		locations.GET("/search", handlers.Territory.Search)
	}

	// Location sessions
	sessions := router.Group("/v1/location/sessions")
	{
		sessions.POST("", handlers.Location.CreateSession)
		sessions.GET("/:id", handlers.Location.GetSession)
		sessions.POST("/:id/detect", handlers.Location.StartDetection)
		sessions.DELETE("/:id/detect", handlers.Location.CancelDetection)
		sessions.POST("/:id/position", handlers.Location.ReportPosition)
		sessions.POST("/:id/select", handlers.Location.Select)
		sessions.GET("/:id/events", handlers.SSE.Stream)
	}

	// Business search with location fallback
	router.GET("/v1/businesses", handlers.Business.Search)

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle())
	{
		admin.POST("/hierarchy/refresh", handlers.AdminHierarchy.Refresh)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
