package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the aggregation core
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Sources   []SourceConfig  `mapstructure:"sources"`
	Video     VideoConfig     `mapstructure:"video"`
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Search    SearchConfig    `mapstructure:"search"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address     string `mapstructure:"address"`
	RefreshCron string `mapstructure:"refresh_cron"`
}

// SourceConfig describes one upstream content source. Immutable after load.
type SourceConfig struct {
	ID             string        `mapstructure:"id"`
	DisplayName    string        `mapstructure:"display_name"`
	Type           string        `mapstructure:"type"` // rss, video, web_search
	Endpoint       string        `mapstructure:"endpoint"`
	Category       string        `mapstructure:"category"`
	APIKey         string        `mapstructure:"api_key"`
	FilterKeywords []string      `mapstructure:"filter_keywords"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	Enabled        bool          `mapstructure:"enabled"`
	Priority       int           `mapstructure:"priority"` // lower = tried first
	Metered        bool          `mapstructure:"metered"`  // guarded by the rate limiter
}

func (s SourceConfig) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("sources[].id is required")
	}
	switch s.Type {
	case "rss", "video", "web_search":
	default:
		return fmt.Errorf("source %s: unknown type %q", s.ID, s.Type)
	}
	if s.Type == "rss" && strings.TrimSpace(s.Endpoint) == "" {
		return fmt.Errorf("source %s: endpoint is required for rss sources", s.ID)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("source %s: timeout cannot be negative", s.ID)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("source %s: max_retries cannot be negative", s.ID)
	}
	return nil
}

// VideoConfig contains the video platform API settings
type VideoConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	SearchEndpoint  string        `mapstructure:"search_endpoint"`
	DetailsEndpoint string        `mapstructure:"details_endpoint"`
	MaxResults      int           `mapstructure:"max_results"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// WebSearchConfig contains the external web-search API settings
type WebSearchConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	MaxResults int           `mapstructure:"max_results"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// CacheConfig controls the TTL cache
type CacheConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

func (c CacheConfig) Validate() error {
	switch c.Backend {
	case "", "memory":
	case "redis":
		if c.Redis.Host == "" || c.Redis.Port == "" {
			return fmt.Errorf("cache.redis.host and cache.redis.port are required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Backend)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}
	return nil
}

// RedisConfig contains redis connection settings for the redis cache backend
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SearchConfig controls the pagination/merge service
type SearchConfig struct {
	MaxResults      int `mapstructure:"max_results"` // deep-pagination cap
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPerSource    int `mapstructure:"max_per_source"`
}

func (s SearchConfig) Validate() error {
	if s.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	if s.DefaultPageSize <= 0 {
		return fmt.Errorf("search.default_page_size must be > 0")
	}
	return nil
}

// RateLimitConfig controls the sliding-window limiter for metered upstreams
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

func (r RateLimitConfig) Validate() error {
	if r.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be > 0")
	}
	if r.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be > 0")
	}
	return nil
}

// RankingConfig holds tuning constants for the ranker. The trending boost and
// the local-source boost are tuning knobs rather than business rules, so they
// stay configurable.
type RankingConfig struct {
	TrendingBoost   float64  `mapstructure:"trending_boost"`
	LocalBoost      float64  `mapstructure:"local_boost"`
	LocalCategories []string `mapstructure:"local_categories"`
}

// Normalize applies defaults for unset ranking values.
func (r RankingConfig) Normalize() RankingConfig {
	if r.TrendingBoost <= 0 {
		r.TrendingBoost = 1.2
	}
	if r.LocalBoost <= 0 {
		r.LocalBoost = 10
	}
	if len(r.LocalCategories) == 0 {
		r.LocalCategories = []string{"Local"}
	}
	return r
}

// EnabledSources returns the enabled sources sorted by ascending priority.
// The returned order is the fan-out order and the dedup tie-break order.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Priority < out[j-1].Priority; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "10s")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.refresh_cron", "@hourly")
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("search.max_results", 200)
	viper.SetDefault("search.default_page_size", 10)
	viper.SetDefault("search.max_per_source", 25)
	viper.SetDefault("rate_limit.max_requests", 30)
	viper.SetDefault("rate_limit.window", "1m")
	viper.SetDefault("ranking.trending_boost", 1.2)
	viper.SetDefault("ranking.local_boost", 10)

	if path == "" {
		viper.AddConfigPath("./app/config") // path to look for the config file in
		viper.AddConfigPath("./config")     // path to look for the config file in
		viper.AddConfigPath(".")            // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PULSO")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (PULSO_*)

	err := viper.ReadInConfig() // Find and read the config file
	if err != nil {             // Handle errors reading the config file
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err = viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Ranking = config.Ranking.Normalize()

	for _, s := range config.Sources {
		if err := s.Validate(); err != nil {
			panic(err)
		}
	}
	if err := config.Cache.Validate(); err != nil {
		panic(err)
	}
	if err := config.Search.Validate(); err != nil {
		panic(err)
	}
	if err := config.RateLimit.Validate(); err != nil {
		panic(err)
	}
	return &config
}
