package constants

import "time"

// Server Timeouts
const (
	DefaultReadTimeout     = 5 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
)

// Database Timeouts
const (
	DBConnectionTimeout   = 30 * time.Second
	DBQueryTimeout        = 15 * time.Second
	DBHealthCheckTimeout  = 5 * time.Second
	DBConnMaxLifetime     = 1 * time.Hour
	DBConnMaxIdleTime     = 30 * time.Minute
	DBMaintenanceInterval = 1 * time.Hour
	DBMaintenanceTimeout  = 5 * time.Minute
)

// Token lifetimes
const (
	DefaultAccessTokenExpiry         = 15 * time.Minute
	DefaultRefreshTokenExpiry        = 7 * 24 * time.Hour // 7 days
	DefaultForgotPasswordTokenExpiry = 15 * time.Minute
	DefaultEmailVerifyTokenExpiry    = 7 * 24 * time.Hour
)

// Outbound calls
const (
	EmailSendTimeout     = 10 * time.Second
	EventPublishTimeout  = 5 * time.Second
	OAuthExchangeTimeout = 10 * time.Second
	RateLimitWindow      = time.Minute
	RateLimitCleanup     = 10 * time.Minute
)
