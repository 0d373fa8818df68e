// Package config loads the process configuration once at startup. The
// resulting Config is passed by value to constructors and never re-read.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/example/draft-agent/internal/logging"
)

// Provider selectors. Auto picks a live realization when its credential is
// present and falls back to the mock otherwise.
const (
	ProviderAuto      = "auto"
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderFirecrawl = "firecrawl"
	ProviderHTTP      = "http"
)

type Config struct {
	Server      ServerConfig   `mapstructure:"server"`
	Log         logging.Config `mapstructure:"log"`
	LLM         LLMConfig      `mapstructure:"llm"`
	Research    ResearchConfig `mapstructure:"research"`
	Mock        MockConfig     `mapstructure:"mock"`
	Archive     ArchiveConfig  `mapstructure:"archive"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	Credentials Credentials    `mapstructure:"credentials"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	KeepAlive       time.Duration `mapstructure:"keep_alive"`
}

type LLMConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens"`
}

type ResearchConfig struct {
	Provider        string        `mapstructure:"provider"`
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxContentBytes int           `mapstructure:"max_content_bytes"`
	UserAgent       string        `mapstructure:"user_agent"`
}

type MockConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

type ArchiveConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Limit         int           `mapstructure:"limit"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Credentials come from the conventional provider environment variables.
type Credentials struct {
	OpenAIKey    string `mapstructure:"openai"`
	AnthropicKey string `mapstructure:"anthropic"`
	GoogleKey    string `mapstructure:"google"`
	FirecrawlKey string `mapstructure:"firecrawl"`
}

var credentialEnv = map[string]string{
	"credentials.openai":    "OPENAI_API_KEY",
	"credentials.anthropic": "ANTHROPIC_API_KEY",
	"credentials.google":    "GOOGLE_API_KEY",
	"credentials.firecrawl": "FIRECRAWL_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.keep_alive", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatConsole)
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.no_color", false)
	v.SetDefault("log.timestamp", true)

	v.SetDefault("llm.provider", ProviderAuto)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 45*time.Second)
	v.SetDefault("llm.max_tokens", 2048)

	v.SetDefault("research.provider", ProviderAuto)
	v.SetDefault("research.base_url", "")
	v.SetDefault("research.timeout", 20*time.Second)
	v.SetDefault("research.max_content_bytes", 8000)
	v.SetDefault("research.user_agent", "draftagent/1.0 (+research)")

	v.SetDefault("mock.delay", 600*time.Millisecond)

	v.SetDefault("archive.redis_addr", "")
	v.SetDefault("archive.redis_password", "")
	v.SetDefault("archive.redis_db", 0)
	v.SetDefault("archive.ttl", 24*time.Hour)
	v.SetDefault("archive.limit", 500)

	v.SetDefault("metrics.enabled", true)

	for key := range credentialEnv {
		v.SetDefault(key, "")
	}
}

type loaderOptions struct {
	configFile string
	envFile    string
}

// Option customises Load.
type Option func(*loaderOptions)

// WithConfigFile reads an explicit YAML file instead of searching for one.
func WithConfigFile(path string) Option {
	return func(o *loaderOptions) { o.configFile = path }
}

// WithEnvFile loads an explicit .env file instead of ./.env.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// Load resolves defaults, config.yml, .env and the environment, in
// increasing order of precedence.
func Load(opts ...Option) (Config, error) {
	var lo loaderOptions
	for _, opt := range opts {
		opt(&lo)
	}

	envFile := lo.envFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if lo.envFile != "" {
		return Config{}, fmt.Errorf("env file %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if lo.configFile != "" {
		v.SetConfigFile(lo.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", lo.configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range credentialEnv {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Research.Provider = strings.ToLower(strings.TrimSpace(c.Research.Provider))
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
	c.Research.BaseURL = strings.TrimRight(c.Research.BaseURL, "/")
}

// Validate checks value ranges and provider names.
func (c Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case ProviderAuto, ProviderMock, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	switch c.Research.Provider {
	case ProviderAuto, ProviderMock, ProviderFirecrawl, ProviderHTTP:
	default:
		errs = append(errs, fmt.Errorf("research.provider: unknown provider %q", c.Research.Provider))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, errors.New("llm.timeout must be positive"))
	}
	if c.Research.Timeout <= 0 {
		errs = append(errs, errors.New("research.timeout must be positive"))
	}
	if c.Research.MaxContentBytes <= 0 {
		errs = append(errs, errors.New("research.max_content_bytes must be positive"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens must be positive"))
	}
	if c.Mock.Delay < 0 {
		errs = append(errs, errors.New("mock.delay must not be negative"))
	}
	if c.Archive.Limit < 0 {
		errs = append(errs, errors.New("archive.limit must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
