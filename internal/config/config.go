package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/yasinhessnawi1/authgate/internal/constants"
)

// AppConfig represents the entire application configuration
type AppConfig struct {
	App          AppSettings          `yaml:"app"`
	Database     DatabaseSettings     `yaml:"database"`
	Server       ServerSettings       `yaml:"server"`
	Tokens       TokenSettings        `yaml:"tokens"`
	SessionStore SessionStoreSettings `yaml:"session_store"`
	Email        EmailSettings        `yaml:"email"`
	OAuth        OAuthSettings        `yaml:"oauth"`
	Events       EventSettings        `yaml:"events"`
	RateLimit    RateLimitSettings    `yaml:"rate_limit"`
	Logging      LoggingSettings      `yaml:"logging"`
	CORS         CORSSettings         `yaml:"cors"`
	PasswordHash HashSettings         `yaml:"password_hash"`
	Seed         SeedSettings         `yaml:"seed"`
}

// AppSettings contains general application settings
type AppSettings struct {
	Environment string `yaml:"environment" env:"APP_ENV"`
	Name        string `yaml:"name" env:"APP_NAME"`
	Version     string `yaml:"version" env:"APP_VERSION"`
}

// DatabaseSettings contains database connection settings
type DatabaseSettings struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	Name     string `yaml:"name" env:"DB_NAME"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE"`
	MaxConns int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
}

// ServerSettings contains HTTP server settings
type ServerSettings struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// TokenSettings holds one signing secret and lifetime per token kind.
type TokenSettings struct {
	AccessSecret         string        `yaml:"access_secret" env:"JWT_SECRET_ACCESS_TOKEN"`
	AccessExpiry         time.Duration `yaml:"access_expiry" env:"ACCESS_TOKEN_EXPIRES_IN"`
	RefreshSecret        string        `yaml:"refresh_secret" env:"JWT_SECRET_REFRESH_TOKEN"`
	RefreshExpiry        time.Duration `yaml:"refresh_expiry" env:"REFRESH_TOKEN_EXPIRES_IN"`
	ForgotPasswordSecret string        `yaml:"forgot_password_secret" env:"JWT_SECRET_FORGOT_PASSWORD_TOKEN"`
	ForgotPasswordExpiry time.Duration `yaml:"forgot_password_expiry" env:"FORGOT_PASSWORD_TOKEN_EXPIRES_IN"`
	EmailVerifySecret    string        `yaml:"email_verify_secret" env:"JWT_SECRET_EMAIL_VERIFY_TOKEN"`
	EmailVerifyExpiry    time.Duration `yaml:"email_verify_expiry" env:"EMAIL_VERIFY_TOKEN_EXPIRES_IN"`
	Issuer               string        `yaml:"issuer" env:"JWT_ISSUER"`
}

// SessionStoreSettings selects where refresh records live
type SessionStoreSettings struct {
	Backend       string `yaml:"backend" env:"SESSION_BACKEND"`
	RedisAddress  string `yaml:"redis_address" env:"REDIS_ADDRESS"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
	KeyPrefix     string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX"`
}

// EmailSettings contains outbound email settings
type EmailSettings struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key" env:"SENDGRID_API_KEY"`
	FromAddress    string `yaml:"from_address" env:"EMAIL_FROM_ADDRESS"`
	FromName       string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
	ClientURL      string `yaml:"client_url" env:"CLIENT_URL"`
}

// OAuthSettings contains Google OAuth settings
type OAuthSettings struct {
	GoogleClientID         string `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret     string `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL      string `yaml:"google_redirect_url" env:"GOOGLE_REDIRECT_URI"`
	ClientRedirectCallback string `yaml:"client_redirect_callback" env:"CLIENT_REDIRECT_CALLBACK"`
}

// EventSettings contains session lifecycle event publishing settings
type EventSettings struct {
	Enabled bool     `yaml:"enabled" env:"EVENTS_ENABLED"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

// RateLimitSettings contains request throttling settings
type RateLimitSettings struct {
	Backend           string `yaml:"backend" env:"RATE_LIMIT_BACKEND"`
	RequestsPerMinute int    `yaml:"requests_per_minute" env:"RATE_LIMIT_PER_MINUTE"`
	Burst             int    `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// LoggingSettings contains logging configuration
type LoggingSettings struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	RequestLog bool   `yaml:"request_log" env:"LOG_REQUESTS"`
}

// CORSSettings contains CORS configuration
type CORSSettings struct {
	AllowedOrigins   []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	AllowCredentials bool     `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS"`
}

// HashSettings contains password hashing settings
type HashSettings struct {
	Memory      uint32 `yaml:"memory" env:"HASH_MEMORY"`
	Iterations  uint32 `yaml:"iterations" env:"HASH_ITERATIONS"`
	Parallelism uint8  `yaml:"parallelism" env:"HASH_PARALLELISM"`
	SaltLength  uint32 `yaml:"salt_length" env:"HASH_SALT_LENGTH"`
	KeyLength   uint32 `yaml:"key_length" env:"HASH_KEY_LENGTH"`
}

// SeedSettings describes the verified account created for local development.
// Nothing is seeded unless both fields are set.
type SeedSettings struct {
	Email    string `yaml:"email" env:"SEED_USER_EMAIL"`
	Password string `yaml:"password" env:"SEED_USER_PASSWORD"`
	Name     string `yaml:"name" env:"SEED_USER_NAME"`
}

// Enabled reports whether a development account should be seeded
func (ss *SeedSettings) Enabled() bool {
	return ss.Email != "" && ss.Password != ""
}

// ConnectionString returns the lib/pq key/value connection string
func (dbs *DatabaseSettings) ConnectionString() string {
	sslMode := dbs.SSLMode
	if sslMode == "" {
		sslMode = constants.DefaultDBSSLMode
	}

	conn := fmt.Sprintf("host=%s port=%d user=%s", dbs.Host, dbs.Port, dbs.User)
	if dbs.Password != "" {
		conn += fmt.Sprintf(" password=%s", dbs.Password)
	}

	return fmt.Sprintf("%s dbname=%s sslmode=%s %s", conn, dbs.Name, sslMode, constants.PostgresConnectTimeout)
}

// ServerAddress returns the complete server address
func (ss *ServerSettings) ServerAddress() string {
	return fmt.Sprintf("%s:%d", ss.Host, ss.Port)
}

// IsDevelopment checks if the application is running in development mode
func (as *AppSettings) IsDevelopment() bool {
	return strings.ToLower(as.Environment) == constants.EnvDevelopment
}

// IsProduction checks if the application is running in production mode
func (as *AppSettings) IsProduction() bool {
	return strings.ToLower(as.Environment) == constants.EnvProduction
}

// IsTesting checks if the application is running in testing mode
func (as *AppSettings) IsTesting() bool {
	return strings.ToLower(as.Environment) == constants.EnvTesting
}

// UsesRedis reports whether refresh records are kept in Redis
func (ss *SessionStoreSettings) UsesRedis() bool {
	return strings.ToLower(ss.Backend) == constants.SessionBackendRedis
}

// Configured reports whether Google OAuth credentials are present
func (oas *OAuthSettings) Configured() bool {
	return oas.GoogleClientID != "" && oas.GoogleClientSecret != ""
}

// Load loads the configuration from a config file and environment variables
func Load(configPath string) (*AppConfig, error) {
	config := &AppConfig{}

	// Load configuration from file if it exists
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		err = yaml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Override with environment variables
	if err := LoadEnv(config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	// Set defaults for missing values
	setDefaults(config)

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Log the configuration (but hide sensitive values)
	logConfig(config)

	return config, nil
}

// setDefaults sets default values for any missing configuration
func setDefaults(config *AppConfig) {
	// App defaults
	if config.App.Environment == "" {
		config.App.Environment = constants.EnvDevelopment
	}

	if config.App.Version == "" {
		config.App.Version = "1.0.0"
	}

	if config.Server.Port == 0 {
		config.Server.Port = constants.DefaultServerPort
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = constants.DefaultReadTimeout
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = constants.DefaultWriteTimeout
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	if config.Database.Port == 0 {
		config.Database.Port = constants.DefaultDBPort
	}
	if config.Database.SSLMode == "" {
		config.Database.SSLMode = constants.DefaultDBSSLMode
	}
	if config.Database.MaxConns == 0 {
		config.Database.MaxConns = constants.DefaultDBMaxConnections
	}
	if config.Database.MinConns == 0 {
		config.Database.MinConns = constants.DefaultDBMinConnections
	}

	// Token lifetimes
	if config.Tokens.AccessExpiry == 0 {
		config.Tokens.AccessExpiry = constants.DefaultAccessTokenExpiry
	}
	if config.Tokens.RefreshExpiry == 0 {
		config.Tokens.RefreshExpiry = constants.DefaultRefreshTokenExpiry
	}
	if config.Tokens.ForgotPasswordExpiry == 0 {
		config.Tokens.ForgotPasswordExpiry = constants.DefaultForgotPasswordTokenExpiry
	}
	if config.Tokens.EmailVerifyExpiry == 0 {
		config.Tokens.EmailVerifyExpiry = constants.DefaultEmailVerifyTokenExpiry
	}
	if config.Tokens.Issuer == "" {
		config.Tokens.Issuer = constants.DefaultJWTIssuer
	}

	// Session store defaults
	if config.SessionStore.Backend == "" {
		config.SessionStore.Backend = constants.SessionBackendPostgres
	}
	if config.SessionStore.RedisAddress == "" {
		config.SessionStore.RedisAddress = constants.DefaultRedisAddress
	}
	if config.SessionStore.KeyPrefix == "" {
		config.SessionStore.KeyPrefix = constants.DefaultRedisKeyPrefix
	}

	// Email defaults
	if config.Email.FromName == "" {
		config.Email.FromName = constants.DefaultEmailFromName
	}

	// Event defaults
	if config.Events.Topic == "" {
		config.Events.Topic = constants.DefaultEventsTopic
	}

	// Rate limit defaults
	if config.RateLimit.Backend == "" {
		config.RateLimit.Backend = constants.RateLimitBackendMemory
	}
	if config.RateLimit.RequestsPerMinute == 0 {
		config.RateLimit.RequestsPerMinute = constants.DefaultRateLimitPerMinute
	}
	if config.RateLimit.Burst == 0 {
		config.RateLimit.Burst = constants.DefaultRateLimitBurst
	}

	// Logging defaults
	if config.Logging.Level == "" {
		config.Logging.Level = constants.DefaultLogLevel
		if config.App.IsTesting() {
			config.Logging.Level = constants.TestingLogLevel
		}
	}
	if config.Logging.Format == "" {
		config.Logging.Format = constants.DefaultLogFormat
		if config.App.IsDevelopment() {
			config.Logging.Format = constants.DevelopmentLogFormat
		}
	}

	// CORS defaults
	if len(config.CORS.AllowedOrigins) == 0 {
		config.CORS.AllowedOrigins = []string{"*"}
	}

	// Password hash defaults
	if config.PasswordHash.Memory == 0 {
		// Lower for development, higher for production
		if config.App.IsProduction() {
			config.PasswordHash.Memory = constants.DefaultPasswordHashMemory
		} else {
			config.PasswordHash.Memory = constants.DevPasswordHashMemory
		}
	}
	if config.PasswordHash.Iterations == 0 {
		if config.App.IsProduction() {
			config.PasswordHash.Iterations = constants.DefaultPasswordHashIterations
		} else {
			config.PasswordHash.Iterations = constants.DevPasswordHashIterations
		}
	}
	if config.PasswordHash.Parallelism == 0 {
		config.PasswordHash.Parallelism = constants.DefaultPasswordHashParallelism
	}
	if config.PasswordHash.SaltLength == 0 {
		config.PasswordHash.SaltLength = constants.DefaultPasswordHashSaltLength
	}
	if config.PasswordHash.KeyLength == 0 {
		config.PasswordHash.KeyLength = constants.DefaultPasswordHashKeyLength
	}

	if config.Seed.Name == "" {
		config.Seed.Name = constants.DefaultSeedUserName
	}
}

// validateConfig validates that the configuration has all required values
func validateConfig(config *AppConfig) error {
	// Validate environment
	env := strings.ToLower(config.App.Environment)
	if env != constants.EnvDevelopment && env != constants.EnvTesting && env != constants.EnvProduction {
		// Instead of failing, use a default and warn
		log.Warn().Str("environment", config.App.Environment).Msg("Invalid environment, defaulting to development")
		config.App.Environment = constants.EnvDevelopment
	}

	if err := validateTokenSettings(&config.Tokens); err != nil {
		return err
	}

	// Database validation - connection details required
	if config.Database.User == "" {
		return fmt.Errorf("database user must be set")
	}

	backend := strings.ToLower(config.SessionStore.Backend)
	if backend != constants.SessionBackendPostgres && backend != constants.SessionBackendRedis {
		return fmt.Errorf("invalid session store backend: %s", config.SessionStore.Backend)
	}

	limiter := strings.ToLower(config.RateLimit.Backend)
	if limiter != constants.RateLimitBackendMemory && limiter != constants.RateLimitBackendRedis {
		return fmt.Errorf("invalid rate limit backend: %s", config.RateLimit.Backend)
	}
	if limiter == constants.RateLimitBackendRedis && config.SessionStore.RedisAddress == "" {
		return fmt.Errorf("redis address must be set for the redis rate limit backend")
	}
	if config.RateLimit.RequestsPerMinute < 0 || config.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}

	if config.Seed.Enabled() && config.App.IsProduction() {
		return fmt.Errorf("seed account must not be configured in production")
	}

	if config.Events.Enabled && len(config.Events.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker must be set when events are enabled")
	}

	// Validate log level
	logLevel := strings.ToLower(config.Logging.Level)
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLevels {
		if logLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// validateTokenSettings requires a distinct secret and a positive lifetime for every token kind.
// A shared secret would let a token of one kind verify as another.
func validateTokenSettings(ts *TokenSettings) error {
	kinds := []struct {
		name   string
		secret string
		expiry time.Duration
	}{
		{constants.TokenTypeAccess, ts.AccessSecret, ts.AccessExpiry},
		{constants.TokenTypeRefresh, ts.RefreshSecret, ts.RefreshExpiry},
		{constants.TokenTypeForgotPassword, ts.ForgotPasswordSecret, ts.ForgotPasswordExpiry},
		{constants.TokenTypeEmailVerify, ts.EmailVerifySecret, ts.EmailVerifyExpiry},
	}

	seen := make(map[string]string, len(kinds))
	for _, k := range kinds {
		if k.secret == "" {
			return fmt.Errorf("%s token secret must be set", k.name)
		}
		if k.expiry <= 0 {
			return fmt.Errorf("%s token expiry must be positive", k.name)
		}
		if other, ok := seen[k.secret]; ok {
			return fmt.Errorf("%s and %s token secrets must differ", other, k.name)
		}
		seen[k.secret] = k.name
	}

	return nil
}

// logConfig logs the current configuration, masking sensitive values
func logConfig(config *AppConfig) {
	log.Info().
		Str("environment", config.App.Environment).
		Str("version", config.App.Version).
		Str("server", config.Server.ServerAddress()).
		Str("db_host", config.Database.Host).
		Int("db_port", config.Database.Port).
		Str("db_name", config.Database.Name).
		Str("db_password", redact(config.Database.Password)).
		Str("session_backend", config.SessionStore.Backend).
		Str("rate_limit_backend", config.RateLimit.Backend).
		Bool("events_enabled", config.Events.Enabled).
		Bool("oauth_configured", config.OAuth.Configured()).
		Bool("sendgrid_configured", config.Email.SendGridAPIKey != "").
		Dur("access_expiry", config.Tokens.AccessExpiry).
		Dur("refresh_expiry", config.Tokens.RefreshExpiry).
		Str("log_level", config.Logging.Level).
		Msg("Configuration loaded")
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return constants.LogRedactedValue
}
