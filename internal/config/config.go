// Package config loads process settings: .env first, then the YAML file, then
// environment overrides, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config path is given.
const DefaultPath = "configs/config.yaml"

// Seen-state backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// SeenConfig selects where seen state lives.
type SeenConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
	RedisKey string `yaml:"redis_key"`
}

// HTTPConfig tunes the shared scraper HTTP client.
type HTTPConfig struct {
	ProxyURL   string        `yaml:"proxy_url"`
	MinDelay   time.Duration `yaml:"min_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	MaxRetries int           `yaml:"max_retries"`
}

type Config struct {
	// Delivery
	TelegramToken   string        `yaml:"telegram_token"`
	TelegramChatID  int64         `yaml:"telegram_chat_id"`
	DiscordWebhook  string        `yaml:"discord_webhook"`
	SendGridAPIKey  string        `yaml:"sendgrid_api_key"`
	RecipientEmail  string        `yaml:"recipient_email"`
	SenderEmail     string        `yaml:"sender_email"`
	EmailRetryDelay time.Duration `yaml:"email_retry_delay"`

	// State
	Seen        SeenConfig `yaml:"seen"`
	RulesPath   string     `yaml:"rules_path"`
	ArchiveDir  string     `yaml:"archive_dir"`
	DatabaseURL string     `yaml:"database_url"`

	// Sources
	Sources              map[string]bool `yaml:"sources"`
	RedditSubreddits     []string        `yaml:"reddit_subreddits"`
	FacebookGroups       []string        `yaml:"facebook_groups"`
	CookiesPath          string          `yaml:"cookies_path"`
	ActorsAccessEmail    string          `yaml:"actors_access_email"`
	ActorsAccessPassword string          `yaml:"actors_access_password"`
	HTTP                 HTTPConfig      `yaml:"http"`
	ScrapeTimeout        time.Duration   `yaml:"scrape_timeout"`

	// Daemon
	Schedule string `yaml:"schedule"`
	Port     string `yaml:"port"`

	LogLevel    string `yaml:"log_level"`
	Development bool   `yaml:"development"`
}

// DefaultSources mirrors which scrapers work without credentials or live
// selector maintenance.
func DefaultSources() map[string]bool {
	return map[string]bool{
		"craigslist":       true,
		"reddit":           false,
		"backstage":        false,
		"casting_networks": false,
		"actors_access":    false,
		"facebook":         false,
	}
}

// Load builds the configuration. An empty path falls back to $CASTING_CONFIG
// and then DefaultPath; only an explicitly requested file must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = os.Getenv("CASTING_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalid, path, err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.TelegramToken, "TELEGRAM_BOT_TOKEN")
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TELEGRAM_CHAT_ID: %v", ErrInvalid, err)
		}
		c.TelegramChatID = id
	}
	setString(&c.DiscordWebhook, "DISCORD_WEBHOOK_URL")
	setString(&c.SendGridAPIKey, "SENDGRID_API_KEY")
	setString(&c.RecipientEmail, "RECIPIENT_EMAIL")
	setString(&c.SenderEmail, "SENDER_EMAIL")
	setString(&c.Seen.Backend, "SEEN_BACKEND")
	setString(&c.Seen.Path, "SEEN_LISTINGS_PATH")
	setString(&c.Seen.RedisURL, "REDIS_URL")
	setString(&c.RulesPath, "RULES_PATH")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.CookiesPath, "COOKIES_PATH")
	setString(&c.ActorsAccessEmail, "ACTORS_ACCESS_EMAIL")
	setString(&c.ActorsAccessPassword, "ACTORS_ACCESS_PASSWORD")
	setString(&c.HTTP.ProxyURL, "HTTP_PROXY_URL")
	setString(&c.Schedule, "SCHEDULE")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")

	if list := os.Getenv("SOURCES"); list != "" {
		enabled := make(map[string]bool)
		for name := range DefaultSources() {
			enabled[name] = false
		}
		for _, name := range strings.Split(list, ",") {
			if name = strings.TrimSpace(name); name != "" {
				enabled[name] = true
			}
		}
		c.Sources = enabled
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.SenderEmail == "" {
		c.SenderEmail = "castingscout@noreply.com"
	}
	if c.EmailRetryDelay == 0 {
		c.EmailRetryDelay = 5 * time.Minute
	}
	if c.Seen.Backend == "" {
		c.Seen.Backend = BackendFile
	}
	if c.Seen.Path == "" {
		switch c.Seen.Backend {
		case BackendSQLite:
			c.Seen.Path = "data/seen_listings.db"
		default:
			c.Seen.Path = "data/seen_listings.json"
		}
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = "logs"
	}
	sources := DefaultSources()
	for name, on := range c.Sources {
		sources[name] = on
	}
	c.Sources = sources
	if len(c.RedditSubreddits) == 0 {
		c.RedditSubreddits = []string{"actingjobs", "filmmakers"}
	}
	if len(c.FacebookGroups) == 0 {
		c.FacebookGroups = []string{
			"https://www.facebook.com/groups/lacastingcalls",
			"https://www.facebook.com/groups/actorsinla",
		}
	}
	if c.CookiesPath == "" {
		c.CookiesPath = ".cookies"
	}
	if c.ScrapeTimeout == 0 {
		c.ScrapeTimeout = 10 * time.Minute
	}
	if c.Schedule == "" {
		c.Schedule = "0 8 * * *"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Seen.Backend {
	case BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Seen.RedisURL == "" {
			return fmt.Errorf("%w: seen.redis_url is required for the redis backend", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown seen backend %q", ErrInvalid, c.Seen.Backend)
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("%w: telegram needs both a token and a chat id", ErrInvalid)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("%w: http.max_retries must not be negative", ErrInvalid)
	}
	if c.HTTP.MaxDelay != 0 && c.HTTP.MaxDelay < c.HTTP.MinDelay {
		return fmt.Errorf("%w: http.max_delay must be >= http.min_delay", ErrInvalid)
	}
	return nil
}

// Enabled reports whether the named source is switched on.
func (c *Config) Enabled(source string) bool {
	return c.Sources[source]
}

// EmailConfigured reports whether SendGrid delivery is possible.
func (c *Config) EmailConfigured() bool {
	return c.SendGridAPIKey != "" && c.RecipientEmail != ""
}
