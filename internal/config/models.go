package config

import (
	"fmt"
	"time"
)

// CaseConfig identifies the matter a run belongs to
type CaseConfig struct {
	ID   string
	Name string
}

// PipelineConfig represents the batch pipeline settings
type PipelineConfig struct {
	Workers         int
	CausalWindow    int
	CausalThreshold float64
	PatternsFile    string
	MaxOracleSpan   int
}

// GraphConfig represents the relationship graph settings
type GraphConfig struct {
	EigenvectorMaxIter   int
	EigenvectorTolerance float64
	LegalEdgeWeight      float64
}

// StrategyConfig represents the thresholds used by the strategy simulator
type StrategyConfig struct {
	PowerThreshold    float64
	DeadlineThreshold int
	NegativeThreshold int
}

// VerificationConfig represents the verification oracle settings
type VerificationConfig struct {
	Provider         string
	ReviewThreshold  float64
	RatePerSecond    float64
	KnownAuthorities []string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// AnthropicConfig represents the configuration for the Anthropic API
type AnthropicConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float64
	MaxBodySize int
}

// StoreConfig represents the record store settings
type StoreConfig struct {
	Type             string
	Overwrite        bool
	SQLitePath       string
	MySQLDSN         string
	PostgresDSN      string
	AlertRetention   time.Duration
	CleanupFrequency time.Duration
}

// GraphExportConfig represents the graph database export settings
type GraphExportConfig struct {
	Enabled        bool
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// RoleRule maps an address substring to an actor role
type RoleRule struct {
	Match string `mapstructure:"match"`
	Role  string `mapstructure:"role"`
}

// RolesConfig represents the actor role classification settings
type RolesConfig struct {
	Rules             []RoleRule
	GovernmentDomains []string
}

// Deadline is a configured date the monitor counts down to
type Deadline struct {
	Name  string `mapstructure:"name"`
	Due   string `mapstructure:"due"`
	Notes string `mapstructure:"notes"`
}

// MonitorConfig represents the continuous monitoring settings
type MonitorConfig struct {
	QueueSize          int
	DropDir            string
	MessagesInterval   time.Duration
	DecisionsFeed      string
	DecisionsInterval  time.Duration
	LegalFeed          string
	LegalInterval      time.Duration
	Deadlines          []Deadline
	DeadlinesInterval  time.Duration
	DeadlineHorizon    time.Duration
	RelevanceThreshold float64
	CaseKeywords       []string
}

// LoggingConfig represents the logger settings
type LoggingConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// GetCase returns the case configuration
func (c *Config) GetCase() CaseConfig {
	return CaseConfig{
		ID:   c.GetString("case.id"),
		Name: c.GetString("case.name"),
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{
		Workers:         c.GetInt("pipeline.workers"),
		CausalWindow:    c.GetInt("pipeline.causal_window"),
		CausalThreshold: c.GetFloat64("pipeline.causal_threshold"),
		PatternsFile:    c.GetString("pipeline.patterns_file"),
		MaxOracleSpan:   c.GetInt("pipeline.max_oracle_span"),
	}
}

// GetGraph returns the relationship graph configuration
func (c *Config) GetGraph() GraphConfig {
	return GraphConfig{
		EigenvectorMaxIter:   c.GetInt("graph.eigenvector_max_iter"),
		EigenvectorTolerance: c.GetFloat64("graph.eigenvector_tolerance"),
		LegalEdgeWeight:      c.GetFloat64("graph.legal_edge_weight"),
	}
}

// GetStrategy returns the strategy simulator configuration
func (c *Config) GetStrategy() StrategyConfig {
	return StrategyConfig{
		PowerThreshold:    c.GetFloat64("strategy.power_threshold"),
		DeadlineThreshold: c.GetInt("strategy.deadline_threshold"),
		NegativeThreshold: c.GetInt("strategy.negative_threshold"),
	}
}

// GetVerification returns the verification oracle configuration
func (c *Config) GetVerification() VerificationConfig {
	return VerificationConfig{
		Provider:         c.GetString("verification.provider"),
		ReviewThreshold:  c.GetFloat64("verification.review_threshold"),
		RatePerSecond:    c.GetFloat64("verification.rate_per_second"),
		KnownAuthorities: c.GetStringSlice("verification.known_authorities"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetAnthropic returns the Anthropic configuration
func (c *Config) GetAnthropic() AnthropicConfig {
	return AnthropicConfig{
		APIKey:      c.GetString("anthropic.api_key"),
		ModelName:   c.GetString("anthropic.model_name"),
		MaxTokens:   c.GetInt("anthropic.max_tokens"),
		Temperature: c.GetFloat64("anthropic.temperature"),
		MaxBodySize: c.GetInt("anthropic.max_body_size"),
	}
}

// GetStore returns the record store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	retention, err := c.GetDuration("store.alert_retention")
	if err != nil {
		return StoreConfig{}, fmt.Errorf("invalid store.alert_retention: %w", err)
	}
	cleanup, err := c.GetDuration("store.cleanup_frequency")
	if err != nil {
		return StoreConfig{}, fmt.Errorf("invalid store.cleanup_frequency: %w", err)
	}
	return StoreConfig{
		Type:             c.GetString("store.type"),
		Overwrite:        c.GetBool("store.overwrite"),
		SQLitePath:       c.GetString("store.sqlite_path"),
		MySQLDSN:         c.GetString("store.mysql_dsn"),
		PostgresDSN:      c.GetString("store.postgres_dsn"),
		AlertRetention:   retention,
		CleanupFrequency: cleanup,
	}, nil
}

// GetGraphExport returns the graph export configuration
func (c *Config) GetGraphExport() GraphExportConfig {
	return GraphExportConfig{
		Enabled:        c.GetBool("graph_export.enabled"),
		URI:            c.GetString("graph_export.uri"),
		Database:       c.GetString("graph_export.database"),
		Username:       c.GetString("graph_export.username"),
		Password:       c.GetString("graph_export.password"),
		MaxConnections: c.GetInt("graph_export.max_connections"),
	}
}

// GetRoles returns the role classification configuration
func (c *Config) GetRoles() (RolesConfig, error) {
	var rules []RoleRule
	if err := c.UnmarshalKey("roles.rules", &rules); err != nil {
		return RolesConfig{}, fmt.Errorf("invalid roles.rules: %w", err)
	}
	return RolesConfig{
		Rules:             rules,
		GovernmentDomains: c.GetStringSlice("roles.government_domains"),
	}, nil
}

// GetMonitor returns the monitoring configuration
func (c *Config) GetMonitor() (MonitorConfig, error) {
	mc := MonitorConfig{
		QueueSize:          c.GetInt("monitor.queue_size"),
		DropDir:            c.GetString("monitor.drop_dir"),
		DecisionsFeed:      c.GetString("monitor.decisions_feed"),
		LegalFeed:          c.GetString("monitor.legal_feed"),
		RelevanceThreshold: c.GetFloat64("monitor.relevance_threshold"),
		CaseKeywords:       c.GetStringSlice("monitor.case_keywords"),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"monitor.messages_interval", &mc.MessagesInterval},
		{"monitor.decisions_interval", &mc.DecisionsInterval},
		{"monitor.legal_interval", &mc.LegalInterval},
		{"monitor.deadlines_interval", &mc.DeadlinesInterval},
		{"monitor.deadline_horizon", &mc.DeadlineHorizon},
	}
	for _, d := range durations {
		parsed, err := c.GetDuration(d.key)
		if err != nil {
			return MonitorConfig{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if err := c.UnmarshalKey("monitor.deadlines", &mc.Deadlines); err != nil {
		return MonitorConfig{}, fmt.Errorf("invalid monitor.deadlines: %w", err)
	}
	return mc, nil
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:      c.GetString("logging.level"),
		Format:     c.GetString("logging.format"),
		File:       c.GetString("logging.file"),
		MaxSizeMB:  c.GetInt("logging.max_size_mb"),
		MaxBackups: c.GetInt("logging.max_backups"),
		MaxAgeDays: c.GetInt("logging.max_age_days"),
		Compress:   c.GetBool("logging.compress"),
	}
}
