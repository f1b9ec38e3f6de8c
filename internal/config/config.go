// Package config loads this service's configuration via viper, modeled
// on the teacher's internal/config: a nested Config struct populated
// from config/app.yaml plus environment overrides, "." -> "_" key
// replacer, AutomaticEnv. Extended with the session/reward/guard/
// rate-limit/cache/diversity/history/store/API sections spec §6's
// environment-variable list and §4 components require.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Security  SecurityConfig  `mapstructure:"security"`
	Session   SessionConfig   `mapstructure:"session"`
	Reward    RewardConfig    `mapstructure:"reward"`
	Guard     GuardConfig     `mapstructure:"guard"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Diversity DiversityConfig `mapstructure:"diversity"`
	History   HistoryConfig   `mapstructure:"history"`
	API       APIConfig       `mapstructure:"api"`
	Debug     DebugConfig     `mapstructure:"debug"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // NODE_ENV: development|production
}

// StoreConfig backs the document-store collaborator spec §1 places out
// of scope. DocumentStoreURI keeps the MONGODB_URI name for continuity
// with spec §6's environment variable list even though the concrete
// driver (internal/store) is pgx/Postgres-backed.
type StoreConfig struct {
	DocumentStoreURI string        `mapstructure:"document_store_uri"`
	MaxConnections   int32         `mapstructure:"max_connections"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// SessionConfig holds C2's per-session settings (spec §3/§4.2).
// AlphaDefault and DimFeatures seed each new session; AlphaMin, AlphaMax
// and AlphaDecay are not read, since the model's alpha floor, ceiling and
// decay are the constants in internal/bandit.
type SessionConfig struct {
	AlphaDefault float64 `mapstructure:"alpha_default"`
	AlphaMin     float64 `mapstructure:"alpha_min"`
	AlphaMax     float64 `mapstructure:"alpha_max"`
	AlphaDecay   float64 `mapstructure:"alpha_decay"`
	DimFeatures  int     `mapstructure:"dim_features"` // FEATURE_DIMENSIONS, D=26
}

// RewardConfig is the fixed+configurable reward map from spec §4.2/§9.
// Love/Like/Dislike are pinned by spec; Skip/Neutral are this
// deployment's Open Question resolution (see DESIGN.md), exposed here
// so an operator can override without a code change.
type RewardConfig struct {
	Love    float64 `mapstructure:"love"`
	Like    float64 `mapstructure:"like"`
	Neutral float64 `mapstructure:"neutral"`
	Skip    float64 `mapstructure:"skip"`
	Dislike float64 `mapstructure:"dislike"`
}

// GuardConfig holds C7's three TTL windows plus its cleanup cadence.
type GuardConfig struct {
	WindowGeneral     time.Duration `mapstructure:"window_general"`
	WindowSame        time.Duration `mapstructure:"window_same"`
	WindowRapid       time.Duration `mapstructure:"window_rapid"`
	WindowIdempotency time.Duration `mapstructure:"window_idempotency"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds C8's per-class windows/ceilings plus the static
// IP whitelist that bypasses every class.
type RateLimitConfig struct {
	Classes     map[string]RateLimitClass `mapstructure:"classes"`
	IPWhitelist []string                  `mapstructure:"ip_whitelist"`
}

type RateLimitClass struct {
	Window time.Duration `mapstructure:"window"`
	Max    int           `mapstructure:"max"`
}

// CacheConfig holds C9's tuning (spec §4.9).
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// DiversityConfig holds C4's tuning values (spec §4.4). Only PoolSize is
// read; the exclusion window, top-K and facet limits in effect are the
// constants in internal/diversity.
type DiversityConfig struct {
	ExclusionWindow int `mapstructure:"exclusion_window"`
	TopK            int `mapstructure:"top_k"`
	CategoryLimit   int `mapstructure:"category_limit"`
	ColorLimit      int `mapstructure:"color_limit"`
	BrandLimit      int `mapstructure:"brand_limit"`
	PoolSize        int `mapstructure:"pool_size"`
}

// HistoryConfig holds C3's retention cap (spec §3, H_max=100).
type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// APIConfig drives the versioning middleware (SPEC_FULL §12).
type APIConfig struct {
	CurrentVersion    int   `mapstructure:"current_version"`
	SupportedVersions []int `mapstructure:"supported_versions"`
}

// DebugConfig gates the debug score endpoint (SPEC_FULL §12) behind
// ENABLE_DEBUG_ROUTES, named in spec §6's configuration list.
type DebugConfig struct {
	EnableDebugRoutes bool `mapstructure:"enable_debug_routes"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()
	bindEnv()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// bindEnv binds the literal environment variable names spec §6 lists,
// which don't follow the "." -> "_" replacer convention on their own
// (MONGODB_URI, CORS_ORIGINS, etc.) to their config keys.
func bindEnv() {
	_ = viper.BindEnv("store.document_store_uri", "MONGODB_URI")
	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("server.host", "HOST")
	_ = viper.BindEnv("server.mode", "NODE_ENV")
	_ = viper.BindEnv("security.cors.allowed_origins", "CORS_ORIGINS")
	_ = viper.BindEnv("cache.max_entries", "CACHE_MAX_SIZE")
	_ = viper.BindEnv("cache.default_ttl", "CACHE_TTL_MS")
	_ = viper.BindEnv("guard.enable_auto_cleanup", "ENABLE_AUTO_CLEANUP")
	_ = viper.BindEnv("guard.cleanup_skip_in_production", "CLEANUP_SKIP_IN_PRODUCTION")
	_ = viper.BindEnv("session.dim_features", "FEATURE_DIMENSIONS")
	_ = viper.BindEnv("debug.enable_debug_routes", "ENABLE_DEBUG_ROUTES")
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	viper.SetDefault("store.max_connections", 25)
	viper.SetDefault("store.connect_timeout", "10s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})

	viper.SetDefault("session.alpha_default", 1.0)
	viper.SetDefault("session.alpha_min", 0.05)
	viper.SetDefault("session.alpha_max", 2.0)
	viper.SetDefault("session.alpha_decay", 0.95)
	viper.SetDefault("session.dim_features", 26)

	viper.SetDefault("reward.love", 2.0)
	viper.SetDefault("reward.like", 1.0)
	viper.SetDefault("reward.neutral", 0.0)
	viper.SetDefault("reward.skip", 0.0)
	viper.SetDefault("reward.dislike", -1.0)

	viper.SetDefault("guard.window_general", "30s")
	viper.SetDefault("guard.window_same", "60s")
	viper.SetDefault("guard.window_rapid", "5s")
	viper.SetDefault("guard.window_idempotency", "24h")
	viper.SetDefault("guard.cleanup_interval", "60s")

	viper.SetDefault("rate_limit.classes.session.window", "60s")
	viper.SetDefault("rate_limit.classes.session.max", 5)
	viper.SetDefault("rate_limit.classes.recommend.window", "60s")
	viper.SetDefault("rate_limit.classes.recommend.max", 30)
	viper.SetDefault("rate_limit.classes.feedback.window", "60s")
	viper.SetDefault("rate_limit.classes.feedback.max", 50)
	viper.SetDefault("rate_limit.classes.batch.window", "60s")
	viper.SetDefault("rate_limit.classes.batch.max", 10)
	viper.SetDefault("rate_limit.classes.general.window", "60s")
	viper.SetDefault("rate_limit.classes.general.max", 100)
	viper.SetDefault("rate_limit.ip_whitelist", []string{})

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.default_ttl", "300s")
	viper.SetDefault("cache.max_entries", 1000)

	viper.SetDefault("diversity.exclusion_window", 20)
	viper.SetDefault("diversity.top_k", 5)
	viper.SetDefault("diversity.category_limit", 3)
	viper.SetDefault("diversity.color_limit", 2)
	viper.SetDefault("diversity.brand_limit", 3)
	viper.SetDefault("diversity.pool_size", 200)

	viper.SetDefault("history.max_entries", 100)

	viper.SetDefault("api.current_version", 1)
	viper.SetDefault("api.supported_versions", []int{1})

	viper.SetDefault("debug.enable_debug_routes", false)
}
