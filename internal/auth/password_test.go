package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasinhessnawi1/authgate/internal/auth"
	"github.com/yasinhessnawi1/authgate/internal/config"
)

func fastPasswordConfig() *auth.PasswordConfig {
	return &auth.PasswordConfig{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	cfg := fastPasswordConfig()

	hash, salt, err := auth.HashPassword("secret123", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEmpty(t, salt)

	ok, err := auth.VerifyPassword("secret123", hash, salt, cfg)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.VerifyPassword("wrong-password1", hash, salt, cfg)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_UsesFreshSalt(t *testing.T) {
	cfg := fastPasswordConfig()

	hash1, salt1, err := auth.HashPassword("secret123", cfg)
	require.NoError(t, err)
	hash2, salt2, err := auth.HashPassword("secret123", cfg)
	require.NoError(t, err)

	assert.NotEqual(t, salt1, salt2)
	assert.NotEqual(t, hash1, hash2)
}

func TestVerifyPassword_BadEncoding(t *testing.T) {
	cfg := fastPasswordConfig()

	_, err := auth.VerifyPassword("secret123", "%%%", "c2FsdA==", cfg)
	assert.Error(t, err)

	_, err = auth.VerifyPassword("secret123", "aGFzaA==", "%%%", cfg)
	assert.Error(t, err)
}

func TestConfigFromAppConfig(t *testing.T) {
	appCfg := &config.AppConfig{
		PasswordHash: config.HashSettings{Memory: 1024, Iterations: 2, Parallelism: 1, SaltLength: 8, KeyLength: 16},
	}

	cfg := auth.ConfigFromAppConfig(appCfg)
	assert.Equal(t, uint32(1024), cfg.Memory)
	assert.Equal(t, uint32(2), cfg.Iterations)
	assert.Equal(t, uint8(1), cfg.Parallelism)
	assert.Equal(t, uint32(8), cfg.SaltLength)
	assert.Equal(t, uint32(16), cfg.KeyLength)
}

func TestConfigFromAppConfig_ZeroFallsBackToDefaults(t *testing.T) {
	cfg := auth.ConfigFromAppConfig(&config.AppConfig{})

	assert.Equal(t, auth.DefaultPasswordConfig(), cfg)
}

func TestGenerateRandomString(t *testing.T) {
	s1, err := auth.GenerateRandomString(24)
	require.NoError(t, err)
	assert.Len(t, s1, 24)

	s2, err := auth.GenerateRandomString(24)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}
