package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/forensic-intel/")
	v.AddConfigPath("$HOME/.forensic-intel")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("FORENSIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromFile loads configuration from an explicit file path on top of the defaults
func NewFromFile(path string) (*Config, error) {
	v := NewEmptyViper()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("FORENSIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("case.id", "UNASSIGNED")
	v.SetDefault("case.name", "")

	// Pipeline defaults
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.causal_window", 5)
	v.SetDefault("pipeline.causal_threshold", 0.3)
	v.SetDefault("pipeline.patterns_file", "")
	v.SetDefault("pipeline.max_oracle_span", 4096)

	// Graph defaults
	v.SetDefault("graph.eigenvector_max_iter", 1000)
	v.SetDefault("graph.eigenvector_tolerance", 1e-6)
	v.SetDefault("graph.legal_edge_weight", 5)

	// Strategy defaults
	v.SetDefault("strategy.power_threshold", 0.7)
	v.SetDefault("strategy.deadline_threshold", 3)
	v.SetDefault("strategy.negative_threshold", 3)

	// Verification defaults
	v.SetDefault("verification.provider", "heuristic")
	v.SetDefault("verification.review_threshold", 80)
	v.SetDefault("verification.rate_per_second", 2.0)
	v.SetDefault("verification.known_authorities", []string{
		"Residential Tenancies Act 1997",
		"Section 86",
		"Section 91ZZ",
	})

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Anthropic defaults
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model_name", "claude-3-5-haiku-latest")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("anthropic.temperature", 0.1)
	v.SetDefault("anthropic.max_body_size", 4096)

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.overwrite", false)
	v.SetDefault("store.sqlite_path", "/data/forensic.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/forensic?parseTime=true")
	v.SetDefault("store.postgres_dsn", "postgres://localhost:5432/forensic")
	v.SetDefault("store.alert_retention", "720h")
	v.SetDefault("store.cleanup_frequency", "1h")

	// Graph export defaults
	v.SetDefault("graph_export.enabled", false)
	v.SetDefault("graph_export.uri", "bolt://localhost:7687")
	v.SetDefault("graph_export.database", "neo4j")
	v.SetDefault("graph_export.username", "")
	v.SetDefault("graph_export.password", "")
	v.SetDefault("graph_export.max_connections", 10)

	// Role defaults
	v.SetDefault("roles.government_domains", []string{".gov", ".gov.au", "vic.gov.au"})
	v.SetDefault("roles.rules", []map[string]string{
		{"match": "vcat", "role": "tribunal"},
		{"match": "consumer.vic", "role": "government_agency"},
		{"match": "realestate", "role": "property_manager"},
		{"match": "agent", "role": "property_manager"},
		{"match": "legal", "role": "legal_representative"},
		{"match": "lawyer", "role": "legal_representative"},
	})

	// Monitor defaults
	v.SetDefault("monitor.queue_size", 64)
	v.SetDefault("monitor.drop_dir", "")
	v.SetDefault("monitor.messages_interval", "15m")
	v.SetDefault("monitor.decisions_feed", "")
	v.SetDefault("monitor.decisions_interval", "1h")
	v.SetDefault("monitor.legal_feed", "")
	v.SetDefault("monitor.legal_interval", "24h")
	v.SetDefault("monitor.deadlines", []map[string]string{})
	v.SetDefault("monitor.deadlines_interval", "1h")
	v.SetDefault("monitor.deadline_horizon", "720h")
	v.SetDefault("monitor.relevance_threshold", 0.7)
	v.SetDefault("monitor.case_keywords", []string{"vcat", "rental", "tenancy", "repair", "water damage"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.compress", false)
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// UnmarshalKey decodes a sub-tree of the configuration into out
func (c *Config) UnmarshalKey(key string, out interface{}) error {
	return c.v.UnmarshalKey(key, out)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
