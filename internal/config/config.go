package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	ShutdownTimeout      time.Duration
	AllowedOrigins       []string
	DatabaseDriver       string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	EventSubjectPrefix   string
	JWTSecret            string
	ChatRoomCacheTTL     time.Duration
	ChatSendRateLimit    int
	ChatSendRateWindow   time.Duration
	RealtimeSendBuffer   int
	RealtimePingInterval time.Duration
	VerifyChatMembership bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CASEDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Casedesk API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.shutdown_timeout", "10s")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("events.subject_prefix", "casedesk")
	v.SetDefault("chat.room_cache_ttl", "10m")
	v.SetDefault("chat.send_rate_limit", 30)
	v.SetDefault("chat.send_rate_window", "1m")
	v.SetDefault("realtime.send_buffer", 64)
	v.SetDefault("realtime.ping_interval", "30s")
	v.SetDefault("realtime.verify_chat_membership", false)

	cacheTTL, err := parseDuration(v, "chat.room_cache_ttl", 10*time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid chat room cache ttl: %w", err)
	}

	rateWindow, err := parseDuration(v, "chat.send_rate_window", time.Minute)
	if err != nil {
		return Config{}, fmt.Errorf("invalid chat send rate window: %w", err)
	}

	shutdownTimeout, err := parseDuration(v, "app.shutdown_timeout", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	pingInterval, err := parseDuration(v, "realtime.ping_interval", 30*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid realtime ping interval: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		ShutdownTimeout:      shutdownTimeout,
		AllowedOrigins:       splitList(v.GetString("http.allowed_origins")),
		DatabaseDriver:       strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		EventSubjectPrefix:   v.GetString("events.subject_prefix"),
		JWTSecret:            v.GetString("jwt.secret"),
		ChatRoomCacheTTL:     cacheTTL,
		ChatSendRateLimit:    v.GetInt("chat.send_rate_limit"),
		ChatSendRateWindow:   rateWindow,
		RealtimeSendBuffer:   v.GetInt("realtime.send_buffer"),
		RealtimePingInterval: pingInterval,
		VerifyChatMembership: v.GetBool("realtime.verify_chat_membership"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.RealtimeSendBuffer <= 0 {
		cfg.RealtimeSendBuffer = 64
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
