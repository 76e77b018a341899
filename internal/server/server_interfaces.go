package server

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/yasinhessnawi1/authgate/internal/database"
)

// ServerTestInterface defines the lifecycle methods of the server.
// It lets tests and the entry point depend on behaviour rather than on
// the concrete Server.
type ServerTestInterface interface {
	// SetupRoutes configures the HTTP routes for the server
	SetupRoutes()

	// GetRouter returns the configured router for request handling
	GetRouter() chi.Router

	// Start begins listening for HTTP requests
	Start() error

	// Shutdown gracefully stops the server
	Shutdown(ctx context.Context) error

	// SetupMaintenanceTasks initializes background maintenance operations
	SetupMaintenanceTasks()
}

// HealthChecker is a dependency the health endpoint reports on.
type HealthChecker interface {
	// HealthCheck returns an error if the dependency is unreachable or unhealthy
	HealthCheck(ctx context.Context) error
}

// SessionCleaner removes expired refresh token records.
type SessionCleaner interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// redisHealth adapts a Redis client to HealthChecker.
type redisHealth struct {
	client redis.UniversalClient
}

// HealthCheck pings Redis.
func (h redisHealth) HealthCheck(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}

var (
	_ ServerTestInterface = (*Server)(nil)
	_ HealthChecker       = (*database.Pool)(nil)
	_ HealthChecker       = redisHealth{}
)
