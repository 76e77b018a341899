// Package server provides the HTTP server of the authgate service.
// It wires configuration, storage, the token lifecycle and the validation
// gates together, owns the router, and manages startup, periodic
// maintenance and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/config"
	"github.com/yasinhessnawi1/authgate/internal/constants"
	"github.com/yasinhessnawi1/authgate/internal/database"
	"github.com/yasinhessnawi1/authgate/internal/handlers"
	"github.com/yasinhessnawi1/authgate/internal/middleware"
	"github.com/yasinhessnawi1/authgate/internal/repository"
	"github.com/yasinhessnawi1/authgate/internal/service"
	"github.com/yasinhessnawi1/authgate/internal/utils"
	"github.com/yasinhessnawi1/authgate/internal/utils/ratelimit"
	"github.com/yasinhessnawi1/authgate/migrations"
	"github.com/yasinhessnawi1/authgate/scripts"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	// AuthHandler manages registration, login and the session endpoints
	AuthHandler *handlers.AuthHandler

	// UserHandler manages the account endpoints under /api/users
	UserHandler *handlers.UserHandler

	// OAuthHandler manages the OAuth provider callback
	OAuthHandler *handlers.OAuthHandler
}

// AuthProviders contains the token codec, the validation gates built on it
// and the password hashing parameters.
type AuthProviders struct {
	// Codec signs and verifies the four token kinds
	Codec *auth.TokenCodec

	// Pipeline provides the request validation gates
	Pipeline *auth.Pipeline

	// PasswordCfg contains password hashing configuration
	PasswordCfg *auth.PasswordConfig
}

// namedCheck is one dependency reported by the health endpoint.
type namedCheck struct {
	name    string
	checker HealthChecker
}

// Server represents the API server.
type Server struct {
	// Config contains application configuration
	Config *config.AppConfig

	// Db provides database access
	Db *database.Pool

	// Redis is set when refresh records or rate limits live in Redis
	Redis redis.UniversalClient

	// router handles HTTP routing
	router chi.Router

	// Handlers contains all HTTP request handlers
	Handlers *Handlers

	// authProviders contains the token codec and gates
	authProviders *AuthProviders

	// httpServer is the underlying HTTP server
	httpServer *http.Server

	lifecycle    *service.TokenLifecycleManager
	events       service.EventPublisher
	limiter      ratelimit.Checker
	limiterStore *ratelimit.Store
	cleaner      SessionCleaner
	healthChecks []namedCheck

	stopMaintenance chan struct{}
	stopOnce        sync.Once
}

// NewServer creates a new server instance with all required components.
//
// Parameters:
//   - cfg: Application configuration
//
// Returns:
//   - A fully initialized Server instance ready to start
//   - An error if initialization of any component fails
//
// Components are built in dependency order: database → redis → auth providers
// → repositories and services → handlers → rate limiter → routes.
func NewServer(cfg *config.AppConfig) (*Server, error) {
	s := &Server{
		Config:          cfg,
		stopMaintenance: make(chan struct{}),
	}

	if err := s.setupDatabase(); err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	if err := s.setupRedis(); err != nil {
		return nil, fmt.Errorf("failed to set up redis: %w", err)
	}

	s.setupAuthProviders()

	if err := s.setupServices(); err != nil {
		return nil, fmt.Errorf("failed to set up services: %w", err)
	}

	s.setupRateLimiter()

	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	return s, nil
}

// setupDatabase connects to PostgreSQL, runs migrations and seeds
// development data when configured.
func (s *Server) setupDatabase() error {
	db, err := database.Connect(s.Config)
	if err != nil {
		return err
	}

	s.Db = db
	s.healthChecks = append(s.healthChecks, namedCheck{name: "database", checker: db})

	migrator := migrations.NewMigrator(db)
	if err := migrator.RunMigrations(context.Background()); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	seeder := scripts.NewSeeder(db, &s.Config.Seed, auth.ConfigFromAppConfig(s.Config))
	if err := seeder.SeedDatabase(context.Background()); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	return nil
}

// setupRedis connects to Redis when the session store or the rate limiter uses it.
func (s *Server) setupRedis() error {
	if !s.usesRedis() {
		return nil
	}

	settings := s.Config.SessionStore
	client := redis.NewClient(&redis.Options{
		Addr:     settings.RedisAddress,
		Password: settings.RedisPassword,
		DB:       settings.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.DBConnectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to ping redis at %s: %w", settings.RedisAddress, err)
	}

	log.Info().Str("address", settings.RedisAddress).Msg("Successfully connected to redis")

	s.Redis = client
	s.healthChecks = append(s.healthChecks, namedCheck{name: "redis", checker: redisHealth{client: client}})
	return nil
}

func (s *Server) usesRedis() bool {
	return s.Config.SessionStore.UsesRedis() || s.Config.RateLimit.Backend == constants.RateLimitBackendRedis
}

// setupAuthProviders builds the token codec and password parameters.
// The validation gates are built in setupServices once the session store exists.
func (s *Server) setupAuthProviders() {
	s.authProviders = &AuthProviders{
		Codec:       auth.NewTokenCodec(&s.Config.Tokens),
		PasswordCfg: auth.ConfigFromAppConfig(s.Config),
	}
}

// refreshRepository returns the refresh record store selected by configuration.
func (s *Server) refreshRepository() repository.RefreshTokenRepository {
	if s.Config.SessionStore.UsesRedis() {
		log.Info().Msg("Refresh tokens are stored in redis")
		return repository.NewRedisRefreshTokenRepository(s.Redis, s.Config.SessionStore.KeyPrefix)
	}
	log.Info().Msg("Refresh tokens are stored in postgres")
	return repository.NewRefreshTokenRepository(s.Db)
}

// setupServices creates repositories, the lifecycle manager, the services
// and the handlers on top of them.
func (s *Server) setupServices() error {
	if s.authProviders == nil || s.authProviders.Codec == nil {
		return fmt.Errorf("token codec not initialized")
	}

	userRepo := repository.NewUserRepository(s.Db)
	sessions := repository.NewSessionStore(s.refreshRepository(), userRepo)

	s.authProviders.Pipeline = auth.NewPipeline(s.authProviders.Codec, sessions)

	s.events = service.NewEventPublisher(&s.Config.Events)
	s.lifecycle = service.NewTokenLifecycleManager(
		s.authProviders.Codec,
		sessions,
		userRepo,
		service.NewEmailSender(&s.Config.Email),
		s.events,
		s.authProviders.PasswordCfg,
	)

	var oauth service.OAuthProvider
	if s.Config.OAuth.Configured() {
		oauth = service.NewGoogleOAuthProvider(&s.Config.OAuth)
	} else {
		log.Warn().Msg("Google OAuth is not configured, OAuth login is disabled")
	}

	authService := service.NewAuthService(userRepo, s.lifecycle, oauth, s.authProviders.PasswordCfg)
	userService := service.NewUserService(userRepo, s.lifecycle, s.authProviders.PasswordCfg)
	s.cleaner = authService

	s.Handlers = &Handlers{
		AuthHandler:  handlers.NewAuthHandler(authService),
		UserHandler:  handlers.NewUserHandler(userService),
		OAuthHandler: handlers.NewOAuthHandler(authService, s.Config.OAuth.ClientRedirectCallback),
	}

	return nil
}

// setupRateLimiter builds the limiter protecting the credential endpoints.
func (s *Server) setupRateLimiter() {
	rl := s.Config.RateLimit
	if rl.Backend == constants.RateLimitBackendRedis && s.Redis != nil {
		s.limiter = ratelimit.NewRedisLimiter(s.Redis, s.Config.SessionStore.KeyPrefix, rl.RequestsPerMinute, constants.RateLimitWindow)
		return
	}

	store := ratelimit.NewStore(ratelimit.PerMinute(rl.RequestsPerMinute, rl.Burst), constants.RateLimitCleanup)
	// Every forgot-password request sends an email
	store.SetRate(constants.RateLimitCategoryForgotPassword,
		ratelimit.PerMinute(constants.ForgotPasswordRequestsPerMinute, constants.ForgotPasswordBurst))
	s.limiterStore = store
	s.limiter = store
}

// Start starts the HTTP server and blocks until it fails or a shutdown
// signal (SIGINT, SIGTERM) arrives, then shuts down gracefully.
func (s *Server) Start() error {
	serverErrors := make(chan error, 1)

	go func() {
		log.Info().
			Str("address", s.Config.Server.ServerAddress()).
			Msg("Starting server")

		serverErrors <- s.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	s.SetupMaintenanceTasks()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info().
			Str("signal", sig.String()).
			Msg("Shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(ctx); err != nil {
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// Shutdown stops accepting requests, waits for in-flight requests and
// background emails, then releases every connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopMaintenanceTasks()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Info().Msg("Server stopped gracefully")
	}

	if s.lifecycle != nil {
		s.lifecycle.Wait()
	}

	if s.events != nil {
		middleware.LogAndContinueOnError(s.events.Close(), "Failed to close event publisher")
	}

	if s.limiterStore != nil {
		s.limiterStore.Close()
	}

	if s.Redis != nil {
		middleware.LogAndContinueOnError(s.Redis.Close(), "Failed to close redis client")
	}

	if s.Db != nil {
		s.Db.Close()
		log.Info().Msg("Database connection closed")
	}

	return nil
}

// SetupMaintenanceTasks starts the periodic cleanup of expired refresh
// records. Expiry is always checked at verification time, so the cleanup
// only reclaims storage.
func (s *Server) SetupMaintenanceTasks() {
	if s.stopMaintenance == nil {
		s.stopMaintenance = make(chan struct{})
	}
	stop := s.stopMaintenance

	ticker := time.NewTicker(constants.DBMaintenanceInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), constants.DBMaintenanceTimeout)
				s.runMaintenance(ctx)
				cancel()
			}
		}
	}()
}

// runMaintenance performs one maintenance pass.
func (s *Server) runMaintenance(ctx context.Context) {
	if s.cleaner == nil {
		return
	}

	count, err := s.cleaner.CleanupExpiredSessions(ctx)
	if err != nil {
		utils.LogError(err, map[string]interface{}{
			"task":      "session_cleanup",
			"retryable": utils.IsStorageUnavailable(err),
		})
		return
	}
	if count > 0 {
		log.Info().Int64("count", count).Msg("Cleaned up expired sessions")
	}
}

func (s *Server) stopMaintenanceTasks() {
	s.stopOnce.Do(func() {
		if s.stopMaintenance != nil {
			close(s.stopMaintenance)
		}
	})
}
