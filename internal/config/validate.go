package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// Encryption key: must be exactly 64 hex chars (32 bytes)
	if c.Encryption.Key == "" {
		errs = append(errs, "ENCRYPTION_KEY is required")
	} else if len(c.Encryption.Key) != 64 {
		errs = append(errs, "ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes)")
	} else if _, err := hex.DecodeString(c.Encryption.Key); err != nil {
		errs = append(errs, "ENCRYPTION_KEY must be valid hex")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Resurfacing trigger secret
	if len(c.Resurfacing.Secret) < 16 {
		errs = append(errs, "RESURFACING_SECRET must be at least 16 characters")
	}

	// Quota
	if c.Quota.DefaultTokenLimit < 0 {
		errs = append(errs, fmt.Sprintf("QUOTA_DEFAULT_TOKEN_LIMIT must be >= 0, got %d", c.Quota.DefaultTokenLimit))
	}
	if c.Quota.MaxRequestsPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_MAX_REQUESTS_PER_MINUTE must be >= 1, got %d", c.Quota.MaxRequestsPerMinute))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Optional collaborators: warn only
	if c.AI.APIKey == "" {
		slog.Warn("AI_API_KEY is empty, AI generation will fail and reminders fall back to templates")
	}
	if c.Push.VAPIDPublicKey == "" || c.Push.VAPIDPrivateKey == "" {
		slog.Warn("PUSH_VAPID_PUBLIC_KEY or PUSH_VAPID_PRIVATE_KEY is empty, push notifications will not work")
	}
	if c.NATS.URL == "" {
		slog.Warn("NATS_URL is empty, audit events are not recorded")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
