// Package config loads outreach-cli settings and initializes logging.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Generation providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderChat      = "chat"
	ProviderOffline   = "offline"
)

// Config holds the full application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Generate  GenerateConfig  `yaml:"generate" mapstructure:"generate"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Chat      ChatConfig      `yaml:"chat" mapstructure:"chat"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxBodyKB         int     `yaml:"max_body_kb" mapstructure:"max_body_kb"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Retries           int     `yaml:"retries" mapstructure:"retries"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns the per-attempt fetch timeout.
func (f FetchConfig) Timeout() time.Duration { return time.Duration(f.TimeoutSecs) * time.Second }

// GenerateConfig configures message generation.
type GenerateConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxTokens        int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxWords         int    `yaml:"max_words" mapstructure:"max_words"`
	Sender           string `yaml:"sender" mapstructure:"sender"`
	Offer            string `yaml:"offer" mapstructure:"offer"`
	BreakerThreshold int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Timeout returns the per-message generation timeout.
func (g GenerateConfig) Timeout() time.Duration { return time.Duration(g.TimeoutSecs) * time.Second }

// AnthropicConfig holds Anthropic credentials and model selection.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ChatConfig configures an OpenAI-compatible chat endpoint.
type ChatConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// ClassifyConfig configures the category vocabulary.
type ClassifyConfig struct {
	// VocabularyPath points at a YAML vocabulary. Empty uses the built-in one.
	VocabularyPath string `yaml:"vocabulary_path" mapstructure:"vocabulary_path"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	ExcerptChars  int `yaml:"excerpt_chars" mapstructure:"excerpt_chars"`
}

// Load reads configuration. path names a config file; when empty,
// config.yaml in the working directory is used if present. Only the
// provider keys are read from the environment (OUTREACH_ANTHROPIC_KEY,
// OUTREACH_CHAT_KEY).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("OUTREACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"anthropic.key", "chat.key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fetch.timeout_secs", 10)
	v.SetDefault("fetch.max_body_kb", 1024)
	v.SetDefault("fetch.requests_per_second", 2.0)
	v.SetDefault("fetch.retries", 1)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("generate.provider", ProviderAnthropic)
	v.SetDefault("generate.timeout_secs", 30)
	v.SetDefault("generate.max_tokens", 600)
	v.SetDefault("generate.max_words", 150)
	v.SetDefault("generate.sender", "LuSent AI Labs")
	v.SetDefault("generate.offer", "AI automation services: lead generation, chatbots and workflow automation")
	v.SetDefault("generate.breaker_threshold", 3)
	v.SetDefault("generate.breaker_reset_secs", 60)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("chat.base_url", "https://api.openai.com/v1")
	v.SetDefault("chat.model", "gpt-4o-mini")
	v.SetDefault("classify.vocabulary_path", "")
	v.SetDefault("batch.max_concurrent", 1)
	v.SetDefault("batch.excerpt_chars", 4000)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !eris.As(err, &notFound) {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and the provider name.
func (c *Config) Validate() error {
	switch c.Generate.Provider {
	case ProviderAnthropic, ProviderChat, ProviderOffline:
	default:
		return eris.Errorf("config: unknown generate.provider %q", c.Generate.Provider)
	}
	switch {
	case c.Fetch.TimeoutSecs <= 0:
		return eris.New("config: fetch.timeout_secs must be positive")
	case c.Fetch.Retries < 0 || c.Fetch.Retries > 1:
		return eris.New("config: fetch.retries must be 0 or 1")
	case c.Fetch.RequestsPerSecond < 0:
		return eris.New("config: fetch.requests_per_second must not be negative")
	case c.Generate.TimeoutSecs <= 0:
		return eris.New("config: generate.timeout_secs must be positive")
	case c.Batch.MaxConcurrent < 1:
		return eris.New("config: batch.max_concurrent must be at least 1")
	}
	return nil
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
