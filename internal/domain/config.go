package domain

import "time"

// Config holds the complete Gannet configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier ProductTier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"event_bus"`

	// Assessment engine settings
	Engine EngineConfig `json:"engine"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig holds assessment pipeline settings.
type EngineConfig struct {
	// Defaults applied when a request does not override them.
	ShortCircuit  bool `json:"short_circuit"`
	RunTier3      bool `json:"run_tier3"`
	MaxTier3Rules int  `json:"max_tier3_rules"`

	// DisableNLP turns off the tier-2 analyzer; tier 2 then reports skipped.
	DisableNLP bool `json:"disable_nlp"`

	// Model service used by tier 3.
	Model ModelConfig `json:"model"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"read_timeout"`  // seconds
	WriteTimeout int    `json:"write_timeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"service_name"`
	ExporterType string `json:"exporter_type"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// ProductTier represents the product tier.
type ProductTier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity ProductTier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro ProductTier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise ProductTier = "enterprise"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./gannet.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			RuleSetTTL:   time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engine: EngineConfig{
			ShortCircuit:  true,
			RunTier3:      true,
			MaxTier3Rules: 10,
			Model: ModelConfig{
				Provider:  "anthropic",
				ModelID:   "claude-3-5-haiku-latest",
				MaxTokens: 2048,
				APIKeyEnv: "GANNET_MODEL_API_KEY",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "gannet",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "gannet",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
