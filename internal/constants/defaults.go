// Package constants provides shared constant values used throughout the application.
//
// The defaults.go file defines default values and limits used throughout the application.
// These constants provide fallback configuration settings, bound resource usage and
// define the password hashing parameters.
package constants

// Default Configuration Values define fallback settings when not specified in configuration.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultDBMaxConnections is the default maximum number of database connections.
	DefaultDBMaxConnections = 20

	// DefaultDBMinConnections is the default minimum number of idle database connections.
	DefaultDBMinConnections = 5

	// DefaultDBPort is the default PostgreSQL port.
	DefaultDBPort = 5432

	// DefaultDBSSLMode is the default sslmode passed to the PostgreSQL driver.
	DefaultDBSSLMode = "disable"

	// DefaultLogLevel is the default logging verbosity level.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default logging output format.
	DefaultLogFormat = "json"

	// DevelopmentLogFormat is the default output format in development.
	DevelopmentLogFormat = "console"

	// TestingLogLevel keeps test runs quiet.
	TestingLogLevel = "warn"
)

// Environment Types define the recognized application running environments.
const (
	// EnvDevelopment identifies a development environment with debugging features enabled.
	EnvDevelopment = "development"

	// EnvTesting identifies a testing environment for automated tests.
	EnvTesting = "testing"

	// EnvProduction identifies a production environment with optimized settings.
	EnvProduction = "production"
)

// Session store backends.
const (
	SessionBackendPostgres = "postgres"
	SessionBackendRedis    = "redis"

	// DefaultRedisAddress is used when the redis backend is selected without an address.
	DefaultRedisAddress = "localhost:6379"

	// DefaultRedisKeyPrefix namespaces every key written by this service.
	DefaultRedisKeyPrefix = "authgate:"
)

// Rate limiter backends and defaults.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"

	// DefaultRateLimitPerMinute is the default number of requests per client per minute
	// for the rate limited authentication endpoints.
	DefaultRateLimitPerMinute = 30

	// DefaultRateLimitBurst is the default burst capacity of the in-memory limiter.
	DefaultRateLimitBurst = 10

	// ForgotPasswordRequestsPerMinute and ForgotPasswordBurst bound the
	// in-memory limiter of the forgot-password route.
	ForgotPasswordRequestsPerMinute = 5
	ForgotPasswordBurst             = 2
)

// Default Kafka settings for lifecycle events.
const (
	DefaultEventsTopic = "auth.session-events"
)

// DefaultSeedUserName is the display name of the seeded development account.
const DefaultSeedUserName = "Development User"

// Email defaults.
const (
	DefaultEmailFromName = "Authgate Support"
)

// File Size Limits define the maximum allowed sizes for request payloads.
const (
	// MaxRequestBodySize is the maximum size in bytes for HTTP request bodies.
	MaxRequestBodySize = 1048576 // 1MB in bytes

	// MaxLoggedUserAgentLength caps the user agent written to request logs.
	MaxLoggedUserAgentLength = 256
)

// Default Password Hash Settings define the parameters for password hashing.
const (
	// DefaultPasswordHashMemory is the memory cost parameter for Argon2id hashing.
	DefaultPasswordHashMemory = 64 * 1024

	// DefaultPasswordHashIterations is the number of iterations for Argon2id hashing.
	DefaultPasswordHashIterations = 3

	// DefaultPasswordHashParallelism is the parallelism parameter for Argon2id hashing.
	DefaultPasswordHashParallelism = 2

	// DefaultPasswordHashSaltLength is the length in bytes of the random salt.
	DefaultPasswordHashSaltLength = 16

	// DefaultPasswordHashKeyLength is the length in bytes of the generated hash.
	DefaultPasswordHashKeyLength = 32

	// DevPasswordHashMemory is a reduced memory setting for development environments.
	DevPasswordHashMemory = 16 * 1024

	// DevPasswordHashIterations is a reduced iteration count for development environments.
	DevPasswordHashIterations = 1
)

// Auth Constants define values related to token handling.
const (
	// DefaultJWTIssuer is the issuer claim value for every signed token.
	DefaultJWTIssuer = "authgate"

	// BearerTokenPrefix is the prefix for Authorization header bearer tokens.
	BearerTokenPrefix = "Bearer "

	// OAuthRandomPasswordLength is the length of the random password given to
	// accounts created through an OAuth login.
	OAuthRandomPasswordLength = 24
)
