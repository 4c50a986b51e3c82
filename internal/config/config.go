package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values for the bot
type Config struct {
	// Discord
	DiscordToken   string
	OwnerDiscordID string
	// Support-server channel for join/leave notices and command errors; empty disables it
	LogChannelID string

	// Riot API
	RiotAPIKey          string
	RiotRegionalURL     string
	RateLimitMaxRetries int

	// Storage
	StorageDriver string
	MongoURI      string
	MongoDatabase string
	DatabasePath  string
	RedisURL      string

	// Ingestion
	IngestInterval     time.Duration
	IngestWindowDays   int
	MatchRetentionDays int

	// Weekly report slot, UTC
	ReportWeekday time.Weekday
	ReportHourUTC int

	// HTTP query surface; empty disables it
	APIAddr string

	// Logging
	LogLevel string
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return load(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("RIOT_REGIONAL_URL", "https://americas.api.riotgames.com")
	v.SetDefault("RATE_LIMIT_MAX_RETRIES", 5)
	v.SetDefault("STORAGE_DRIVER", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "league_discord_bot")
	v.SetDefault("DATABASE_PATH", "./data/bot.db")
	v.SetDefault("INGEST_INTERVAL", "1h")
	v.SetDefault("INGEST_WINDOW_DAYS", 30)
	v.SetDefault("MATCH_RETENTION_DAYS", 90)
	v.SetDefault("REPORT_WEEKDAY", "sunday")
	v.SetDefault("REPORT_HOUR_UTC", 20)
	v.SetDefault("LOG_LEVEL", "info")
	return v
}

func load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DiscordToken:        v.GetString("DISCORD_BOT_TOKEN"),
		OwnerDiscordID:      v.GetString("OWNER_DISCORD_ID"),
		LogChannelID:        v.GetString("LOG_CHANNEL_ID"),
		RiotAPIKey:          v.GetString("RIOT_API_KEY"),
		RiotRegionalURL:     strings.TrimRight(v.GetString("RIOT_REGIONAL_URL"), "/"),
		RateLimitMaxRetries: v.GetInt("RATE_LIMIT_MAX_RETRIES"),
		StorageDriver:       strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MongoURI:            v.GetString("MONGO_URI"),
		MongoDatabase:       v.GetString("MONGO_DATABASE"),
		DatabasePath:        v.GetString("DATABASE_PATH"),
		RedisURL:            v.GetString("REDIS_URL"),
		IngestWindowDays:    v.GetInt("INGEST_WINDOW_DAYS"),
		MatchRetentionDays:  v.GetInt("MATCH_RETENTION_DAYS"),
		ReportHourUTC:       v.GetInt("REPORT_HOUR_UTC"),
		APIAddr:             v.GetString("API_ADDR"),
		LogLevel:            strings.ToLower(v.GetString("LOG_LEVEL")),
	}

	// Validate required fields
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if cfg.RiotAPIKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}

	interval, err := time.ParseDuration(v.GetString("INGEST_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("INGEST_INTERVAL must be positive")
	}
	cfg.IngestInterval = interval

	switch cfg.StorageDriver {
	case "mongo", "sqlite":
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q: must be mongo or sqlite", cfg.StorageDriver)
	}

	weekday, ok := weekdays[strings.ToLower(v.GetString("REPORT_WEEKDAY"))]
	if !ok {
		return nil, fmt.Errorf("invalid REPORT_WEEKDAY %q", v.GetString("REPORT_WEEKDAY"))
	}
	cfg.ReportWeekday = weekday

	if cfg.ReportHourUTC < 0 || cfg.ReportHourUTC > 23 {
		return nil, fmt.Errorf("REPORT_HOUR_UTC must be between 0 and 23")
	}
	if cfg.RateLimitMaxRetries < 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_RETRIES must not be negative")
	}
	if cfg.IngestWindowDays < 1 {
		return nil, fmt.Errorf("INGEST_WINDOW_DAYS must be at least 1")
	}
	if cfg.MatchRetentionDays < 0 {
		return nil, fmt.Errorf("MATCH_RETENTION_DAYS must not be negative")
	}
	// Otherwise every pass re-fetches what the previous prune deleted
	if cfg.MatchRetentionDays > 0 && cfg.MatchRetentionDays < cfg.IngestWindowDays {
		return nil, fmt.Errorf("MATCH_RETENTION_DAYS (%d) must not be shorter than INGEST_WINDOW_DAYS (%d)",
			cfg.MatchRetentionDays, cfg.IngestWindowDays)
	}

	return cfg, nil
}
