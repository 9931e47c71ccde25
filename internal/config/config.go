package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/parcelworks/addrsplit/internal/cost"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Index    IndexConfig    `yaml:"index" mapstructure:"index"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	Places   PlacesConfig   `yaml:"places" mapstructure:"places"`
	Capture  CaptureConfig  `yaml:"capture" mapstructure:"capture"`
	Resolver ResolverConfig `yaml:"resolver" mapstructure:"resolver"`
	Pricing  cost.Rates     `yaml:"pricing" mapstructure:"pricing"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the submission database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// IndexConfig configures the offline place index.
type IndexConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LLMConfig holds generative-model API settings.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Model     string `yaml:"model" mapstructure:"model"`
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// PlacesConfig holds the managed geocoding API settings.
type PlacesConfig struct {
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	IndexName    string  `yaml:"index_name" mapstructure:"index_name"`
	Key          string  `yaml:"key" mapstructure:"key"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	CacheTTLSecs int     `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// CaptureConfig holds the capture API settings.
type CaptureConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Key       string  `yaml:"key" mapstructure:"key"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ResolverConfig configures the multi-pipeline resolver.
type ResolverConfig struct {
	Pipelines       []string `yaml:"pipelines" mapstructure:"pipelines"`
	TimeoutSecs     int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CandidateLimit  int      `yaml:"candidate_limit" mapstructure:"candidate_limit"`
	RetentionHours  int      `yaml:"retention_hours" mapstructure:"retention_hours"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADDRSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "addrsplit.db")
	v.SetDefault("index.path", "geonames.db")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.max_tokens", 800)
	v.SetDefault("places.rate_limit", 10)
	v.SetDefault("places.cache_ttl_secs", 300)
	v.SetDefault("capture.base_url", "https://api.addressy.com")
	v.SetDefault("capture.rate_limit", 10)
	v.SetDefault("resolver.pipelines", []string{"llm", "rules", "geoapi", "capture"})
	v.SetDefault("resolver.timeout_secs", 20)
	v.SetDefault("resolver.candidate_limit", 25)
	v.SetDefault("resolver.retention_hours", 720)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Pricing.LLM) == 0 {
		cfg.Pricing = cost.DefaultRates()
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
