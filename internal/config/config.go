package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Redis       RedisConfig
	NATS        NATSConfig
	JWT         JWTConfig
	Encryption  EncryptionConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	AI          AIConfig
	Quota       QuotaConfig
	Push        PushConfig
	Resurfacing ResurfacingConfig
	Admin       AdminConfig
	Log         LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables audit event publishing.
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type EncryptionConfig struct {
	Key string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	AuthMaxRequests int
	AuthWindowSec   int
}

type AIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type QuotaConfig struct {
	DefaultTokenLimit    int64
	MaxRequestsPerMinute int
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
	TTL             int
}

type ResurfacingConfig struct {
	Secret  string
	LockTTL time.Duration
}

type AdminConfig struct {
	InitialEmail string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		Encryption: EncryptionConfig{
			Key: k.String("encryption.key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		RateLimit: RateLimitConfig{
			AuthMaxRequests: k.Int("ratelimit.auth.max.requests"),
			AuthWindowSec:   k.Int("ratelimit.auth.window.sec"),
		},
		AI: AIConfig{
			APIKey: cleanSecret(k.String("ai.api.key")),
			Model:  k.String("ai.model"),
		},
		Quota: QuotaConfig{
			DefaultTokenLimit:    k.Int64("quota.default.token.limit"),
			MaxRequestsPerMinute: k.Int("quota.max.requests.per.minute"),
		},
		Push: PushConfig{
			VAPIDPublicKey:  k.String("push.vapid.public.key"),
			VAPIDPrivateKey: k.String("push.vapid.private.key"),
			VAPIDSubject:    k.String("push.vapid.subject"),
			TTL:             k.Int("push.ttl"),
		},
		Resurfacing: ResurfacingConfig{
			Secret: k.String("resurfacing.secret"),
		},
		Admin: AdminConfig{
			InitialEmail: k.String("admin.initial.email"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "hubideas"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "hubideas"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.RateLimit.AuthMaxRequests == 0 {
		cfg.RateLimit.AuthMaxRequests = 10
	}
	if cfg.RateLimit.AuthWindowSec == 0 {
		cfg.RateLimit.AuthWindowSec = 60
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gemini-2.0-flash-lite"
	}
	// An explicit 0 is a valid limit that blocks all AI usage for new users.
	if k.String("quota.default.token.limit") == "" {
		cfg.Quota.DefaultTokenLimit = 50000
	}
	if cfg.Quota.MaxRequestsPerMinute == 0 {
		cfg.Quota.MaxRequestsPerMinute = 20
	}
	if cfg.Push.VAPIDSubject == "" {
		cfg.Push.VAPIDSubject = "mailto:admin@example.com"
	}
	if cfg.Push.TTL == 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	cfg.JWT.AccessExpiry, err = parseDuration(k, "jwt.access.expiry", "15m")
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}
	cfg.JWT.RefreshExpiry, err = parseDuration(k, "jwt.refresh.expiry", "168h")
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}
	cfg.AI.Timeout, err = parseDuration(k, "ai.timeout", "20s")
	if err != nil {
		return nil, fmt.Errorf("parsing ai timeout: %w", err)
	}
	cfg.Resurfacing.LockTTL, err = parseDuration(k, "resurfacing.lock.ttl", "2m")
	if err != nil {
		return nil, fmt.Errorf("parsing resurfacing lock ttl: %w", err)
	}

	return cfg, nil
}

func parseDuration(k *koanf.Koanf, key, fallback string) (time.Duration, error) {
	s := k.String(key)
	if s == "" {
		s = fallback
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cleanSecret strips surrounding quotes that deployment tooling tends to
// leave on pasted API keys.
func cleanSecret(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")
	return strings.TrimSpace(s)
}
