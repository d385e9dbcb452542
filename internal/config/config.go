package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Club      ClubConfig      `yaml:"club" mapstructure:"club"`
	PlayHQ    PlayHQConfig    `yaml:"playhq" mapstructure:"playhq"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Answer    AnswerConfig    `yaml:"answer" mapstructure:"answer"`
	Sync      SyncConfig      `yaml:"sync" mapstructure:"sync"`
	Bridge    BridgeConfig    `yaml:"bridge" mapstructure:"bridge"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ClubConfig identifies the club tracked by this deployment.
type ClubConfig struct {
	Name           string `yaml:"name" mapstructure:"name"`
	OrganisationID string `yaml:"organisation_id" mapstructure:"organisation_id"`
	SeasonName     string `yaml:"season_name" mapstructure:"season_name"`
}

// PlayHQConfig holds upstream sports-data API credentials and limits.
type PlayHQConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	Tenant            string  `yaml:"tenant" mapstructure:"tenant"`
	RequestsPerMinute int     `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMS  int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMS      int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier" mapstructure:"backoff_multiplier"`
	JitterFraction    float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"`
	Key        string `yaml:"key" mapstructure:"key"`
	Model      string `yaml:"model" mapstructure:"model"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"`
}

// AnthropicConfig holds the language-generation API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnswerConfig tunes retrieval and composition.
type AnswerConfig struct {
	TopK             int `yaml:"top_k" mapstructure:"top_k"`
	MaxSnippetTokens int `yaml:"max_snippet_tokens" mapstructure:"max_snippet_tokens"`
}

// SyncConfig configures the sync orchestrator schedule.
type SyncConfig struct {
	NightlyHourUTC       int `yaml:"nightly_hour_utc" mapstructure:"nightly_hour_utc"`
	MatchDayIntervalMins int `yaml:"match_day_interval_mins" mapstructure:"match_day_interval_mins"`
	SummaryLookbackDays  int `yaml:"summary_lookback_days" mapstructure:"summary_lookback_days"`
	GradeConcurrency     int `yaml:"grade_concurrency" mapstructure:"grade_concurrency"`
}

// BridgeConfig configures the chat-session bridge.
type BridgeConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	GatewayURL         string `yaml:"gateway_url" mapstructure:"gateway_url"`
	Token              string `yaml:"token" mapstructure:"token"`
	BotID              string `yaml:"bot_id" mapstructure:"bot_id"`
	CommandPrefix      string `yaml:"command_prefix" mapstructure:"command_prefix"`
	Mention            string `yaml:"mention" mapstructure:"mention"`
	Workers            int    `yaml:"workers" mapstructure:"workers"`
	InboundBuffer      int    `yaml:"inbound_buffer" mapstructure:"inbound_buffer"`
	ReconnectInitialMS int    `yaml:"reconnect_initial_ms" mapstructure:"reconnect_initial_ms"`
	ReconnectMaxMS     int    `yaml:"reconnect_max_ms" mapstructure:"reconnect_max_ms"`
}

// ServerConfig configures the HTTP gateway.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	RefreshToken       string   `yaml:"refresh_token" mapstructure:"refresh_token"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	AllowedOrigins     []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("PITCHBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("playhq.base_url", "https://api.playhq.com/v1")
	v.SetDefault("playhq.requests_per_minute", 60)
	v.SetDefault("playhq.timeout_secs", 30)
	v.SetDefault("playhq.max_attempts", 3)
	v.SetDefault("playhq.initial_backoff_ms", 500)
	v.SetDefault("playhq.max_backoff_ms", 30000)
	v.SetDefault("playhq.backoff_multiplier", 2.0)
	v.SetDefault("playhq.jitter_fraction", 0.25)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "pitchbot.db")
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimensions", 1536)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.timeout_secs", 30)
	v.SetDefault("answer.top_k", 6)
	v.SetDefault("answer.max_snippet_tokens", 1000)
	v.SetDefault("sync.nightly_hour_utc", 16)
	v.SetDefault("sync.match_day_interval_mins", 30)
	v.SetDefault("sync.summary_lookback_days", 14)
	v.SetDefault("sync.grade_concurrency", 4)
	v.SetDefault("bridge.command_prefix", "!csc")
	v.SetDefault("bridge.workers", 4)
	v.SetDefault("bridge.inbound_buffer", 64)
	v.SetDefault("bridge.reconnect_initial_ms", 1000)
	v.SetDefault("bridge.reconnect_max_ms", 60000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_secs", 25)
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
