package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research agent.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Scraping  ScrapingConfig  `mapstructure:"scraping"`
	Datasets  DatasetsConfig  `mapstructure:"datasets"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and session settings.
type ServerConfig struct {
	Address       string        `mapstructure:"address"`
	SessionSecret string        `mapstructure:"session_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.SessionSecret) == "" {
		return errors.New("server.session_secret required")
	}
	return nil
}

// LLMConfig describes the completion provider used for analysis and synthesis.
type LLMConfig struct {
	Type        string        `mapstructure:"type"` // openai
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (l LLMConfig) Validate() error {
	switch l.Type {
	case "", "openai":
		return nil
	default:
		return fmt.Errorf("llm.type %q not supported", l.Type)
	}
}

// ScrapingConfig contains the web-scraping provider settings shared by the
// SERP fetchers and the dataset collector.
type ScrapingConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Zone    string        `mapstructure:"zone"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// DatasetsConfig contains the discussion-platform dataset ids and the polling
// schedule for the asynchronous trigger/poll/download protocol.
type DatasetsConfig struct {
	PostsDatasetID    string        `mapstructure:"posts_dataset_id"`
	CommentsDatasetID string        `mapstructure:"comments_dataset_id"`
	PollInitialDelay  time.Duration `mapstructure:"poll_initial_delay"`
	PollMaxDelay      time.Duration `mapstructure:"poll_max_delay"`
	PollFactor        float64       `mapstructure:"poll_factor"`
	PollDeadline      time.Duration `mapstructure:"poll_deadline"`
}

func (d DatasetsConfig) Validate() error {
	if d.PollFactor != 0 && d.PollFactor < 1 {
		return errors.New("datasets.poll_factor must be >= 1")
	}
	if d.PollMaxDelay != 0 && d.PollInitialDelay > d.PollMaxDelay {
		return errors.New("datasets.poll_initial_delay must not exceed poll_max_delay")
	}
	return nil
}

// PipelineConfig tunes the research pipeline itself.
type PipelineConfig struct {
	MaxPostURLs        int `mapstructure:"max_post_urls"`
	AnalysisCharBudget int `mapstructure:"analysis_char_budget"`
	MaxSERPResults     int `mapstructure:"max_serp_results"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains the run-store database settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return errors.New("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return errors.New("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a postgres connection string from the configured parts.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains the session-store settings. Leaving Addr empty selects
// the in-memory session store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RetentionConfig governs periodic cleanup of persisted runs.
type RetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	CronSpec string        `mapstructure:"cron_spec"`
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// LoadConfig loads config from file, with ASKAGENT_* environment overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.default_timeout", "5m")
	viper.SetDefault("server.address", ":8000")
	viper.SetDefault("server.session_ttl", "168h")
	viper.SetDefault("llm.type", "openai")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout", "60s")
	viper.SetDefault("scraping.base_url", "https://api.brightdata.com")
	viper.SetDefault("scraping.zone", "ai_agent")
	viper.SetDefault("scraping.timeout", "30s")
	viper.SetDefault("scraping.retries", 2)
	viper.SetDefault("datasets.poll_initial_delay", "5s")
	viper.SetDefault("datasets.poll_max_delay", "20s")
	viper.SetDefault("datasets.poll_factor", 1.5)
	viper.SetDefault("datasets.poll_deadline", "5m")
	viper.SetDefault("pipeline.max_post_urls", 3)
	viper.SetDefault("pipeline.analysis_char_budget", 12000)
	viper.SetDefault("pipeline.max_serp_results", 10)
	viper.SetDefault("retention.cron_spec", "0 3 * * *")
	viper.SetDefault("retention.max_age", "720h")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("ASKAGENT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing file is fine: env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.LLM.Validate(); err != nil {
		panic(err)
	}
	if err := config.Datasets.Validate(); err != nil {
		panic(err)
	}
	return &config
}
