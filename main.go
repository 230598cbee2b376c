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

	"github.com/isdelr/ender-accounts/internal/api"
	"github.com/isdelr/ender-accounts/internal/api/handlers"
	"github.com/isdelr/ender-accounts/internal/apperrors"
	"github.com/isdelr/ender-accounts/internal/auth"
	"github.com/isdelr/ender-accounts/internal/cache"
	"github.com/isdelr/ender-accounts/internal/config"
	"github.com/isdelr/ender-accounts/internal/database"
	"github.com/isdelr/ender-accounts/internal/logger"
	"github.com/isdelr/ender-accounts/internal/models"
	"github.com/isdelr/ender-accounts/internal/monitoring"
	"github.com/isdelr/ender-accounts/internal/services"
	"github.com/isdelr/ender-accounts/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, !cfg.IsProduction())

	ctx := context.Background()

	// Set up database
	dialect, err := database.ParseDialect(cfg.Database.Driver)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database driver")
	}
	db, err := database.New(dialect, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, dialect); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up cache
	healthChecks := map[string]handlers.HealthCheck{"database": db.PingContext}
	var userCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer client.Close()
		redisCache := cache.NewRedisCache(client, "accounts:")
		healthChecks["cache"] = redisCache.Health
		userCache = redisCache
		log.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Using Redis user cache")
	} else {
		userCache = cache.NewLRUCache(cfg.Cache.Size, cfg.Cache.TTL)
		log.Info().Int("size", cfg.Cache.Size).Msg("Using in-process user cache")
	}

	users := store.NewCachingUserStore(store.NewSQLStore(db, dialect), userCache, cfg.Cache.TTL)

	// Set up auth
	key, err := cfg.SigningKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid signing key")
	}
	tokens, err := auth.NewTokenService(auth.TokenConfig{Key: key, Validity: cfg.JWT.Expiration})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token service")
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	authenticator := auth.NewAuthenticator(tokens, auth.NewPrincipalResolver(users))

	// Set up services
	eventService := services.NewEventService(db, dialect)
	userService := services.NewUserService(users, hasher, tokens, services.WithEventLog(eventService))
	for _, username := range cfg.AdminUsernames {
		if err := userService.GrantRole(ctx, username, models.RoleAdmin); err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeNotFound {
				log.Warn().Str("username", username).Msg("Configured admin does not exist yet")
				continue
			}
			log.Fatal().Err(err).Str("username", username).Msg("Failed to grant admin role")
		}
	}

	// Start background scheduler
	scheduler, err := monitoring.NewScheduler(eventService, cfg.Events.PruneSchedule, cfg.Events.Retention)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	scheduler.Start()

	// Set up router
	router := api.NewRouter(api.RouterOptions{
		Users:          handlers.NewUserHandler(userService, tokens.Validity(), cfg.IsProduction()),
		Events:         handlers.NewEventHandler(eventService),
		Health:         handlers.NewHealthHandler(healthChecks),
		Authenticator:  authenticator,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	// Set up server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	scheduler.Stop(shutdownCtx)

	log.Info().Msg("Server exiting")
}
