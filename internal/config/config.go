package config

import (
	"time"

	"gateway/pkg/retry"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Idempotency    IdempotencyConfig    `mapstructure:"idempotency"`
	Routing        RoutingConfig        `mapstructure:"routing"`
	Routes         []RouteConfig        `mapstructure:"routes"`
	Gateway        GatewayConfig        `mapstructure:"gateway"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port                int             `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration   `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration   `mapstructure:"write_timeout_seconds"`
	RateLimit           RateLimitConfig `mapstructure:"rate_limit"`
	Swagger             bool            `mapstructure:"swagger"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers         []string    `mapstructure:"brokers"`
	GroupID         string      `mapstructure:"group_id"`
	DLQTopic        string      `mapstructure:"dlq_topic"`
	EnsureTopics    bool        `mapstructure:"ensure_topics"`
	TopicPartitions int         `mapstructure:"topic_partitions"`
	QueueSize       int         `mapstructure:"queue_size"`
	Retry           RetryConfig `mapstructure:"retry"`
	PublishRetry    RetryConfig `mapstructure:"publish_retry"`
	// DrainTimeout bounds how long shutdown waits for in-flight messages.
	// Zero derives it from the retry schedules.
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

type RetryConfig struct {
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
}

// Policy converts the configured schedule, falling back to def for unset values.
func (r RetryConfig) Policy(def retry.Policy) retry.Policy {
	p := def
	if r.MaxRetries > 0 {
		p.MaxRetries = r.MaxRetries
	}
	if r.InitialInterval > 0 {
		p.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval > 0 {
		p.MaxInterval = r.MaxInterval
	}
	if r.Multiplier > 0 {
		p.Multiplier = r.Multiplier
	}
	return p
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type IdempotencyConfig struct {
	Store        string `mapstructure:"store"` // "memory" (default) or "redis"
	Capacity     int    `mapstructure:"capacity"`
	TTLSeconds   int    `mapstructure:"ttl_seconds"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	OnStoreError string `mapstructure:"on_store_error"` // "allow" or "deny"
}

type RoutingConfig struct {
	Strict            bool                `mapstructure:"strict"`
	UnclassifiedTopic string              `mapstructure:"unclassified_topic"`
	Rules             []RoutingRuleConfig `mapstructure:"rules"`
}

// RoutingRuleConfig holds exactly one of Prefix or Expression.
type RoutingRuleConfig struct {
	Name        string `mapstructure:"name"`
	Prefix      string `mapstructure:"prefix"`
	Expression  string `mapstructure:"expression"`
	Destination string `mapstructure:"destination"`
}

type RouteConfig struct {
	ID         string        `mapstructure:"id"`
	Topic      string        `mapstructure:"topic"`
	TargetURL  string        `mapstructure:"target_url"`
	Method     string        `mapstructure:"method"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SchemaFile string        `mapstructure:"schema_file"`
	AutoStart  *bool         `mapstructure:"auto_start"`
}

func (r RouteConfig) StartsAutomatically() bool {
	return r.AutoStart == nil || *r.AutoStart
}

type GatewayConfig struct {
	BackendURL     string        `mapstructure:"backend_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	WireTapTimeout time.Duration `mapstructure:"wiretap_timeout"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
