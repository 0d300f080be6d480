// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// APIsConfig holds settings for the external services the pipeline talks to.
type APIsConfig struct {
	OpenAlex OpenAlexConfig `mapstructure:"openalex"`
	Crossref RegistryConfig `mapstructure:"crossref"`
	PubMed   RegistryConfig `mapstructure:"pubmed"`
	Matcher  MatcherConfig  `mapstructure:"matcher"`
}

// OpenAlexConfig configures the reference provider client.
type OpenAlexConfig struct {
	BaseURL string  `mapstructure:"base_url"`
	Mailto  string  `mapstructure:"mailto"`
	Timeout int     `mapstructure:"timeout"` // milliseconds
	RPS     float64 `mapstructure:"rps"`     // polite request budget
}

// RegistryConfig configures one retraction registry client.
type RegistryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Mailto  string `mapstructure:"mailto"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// MatcherConfig configures the semantic name matcher.
type MatcherConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	Threshold   int     `mapstructure:"threshold"`
}

// AnalysisConfig holds the batch orchestrator settings.
type AnalysisConfig struct {
	BatchSize         int `mapstructure:"batch_size"`
	BatchDelay        int `mapstructure:"batch_delay"` // milliseconds, pause between batches
	PrefilterTopN     int `mapstructure:"prefilter_top_n"`
	HighRiskThreshold int `mapstructure:"high_risk_threshold"`
	CacheTTL          int `mapstructure:"cache_ttl"` // seconds, watchlist cache
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig holds the /metrics listener settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
