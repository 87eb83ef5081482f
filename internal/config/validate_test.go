package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "adforge", Password: "secret",
			Name: "adforge", SSLMode: "disable", MaxConns: 25, MigrationsPath: "migrations",
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		NATS:  NATSConfig{URL: "nats://localhost:4222"},
		JWT: JWTConfig{
			AccessSecret:  "access-secret-0123456789-0123456789",
			RefreshSecret: "refresh-secret-0123456789-012345678",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
		},
		Billing: BillingConfig{WebhookSecret: "webhook-secret"},
		Credits: CreditsConfig{SignupBonus: "5"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_ShortJWTSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.AccessSecret = "short"
	cfg.JWT.RefreshSecret = "also-short"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET")
	assert.Contains(t, err.Error(), "JWT_REFRESH_SECRET")
}

func TestValidate_IdenticalJWTSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.RefreshSecret = cfg.JWT.AccessSecret

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestValidate_MissingWebhookSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Billing.WebhookSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BILLING_WEBHOOK_SECRET")
}

func TestValidate_SignupBonus(t *testing.T) {
	cfg := validConfig()
	cfg.Credits.SignupBonus = "five"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREDITS_SIGNUP_BONUS")

	cfg.Credits.SignupBonus = "-1"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not be negative")

	cfg.Credits.SignupBonus = "2.5"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
	assert.Contains(t, err.Error(), "SERVER_PORT")
}
