package config

import (
	"time"

	"gateway/internal/constants"
)

// DefaultRoutes are the consumer routes used when none are configured.
func DefaultRoutes() []RouteConfig {
	return []RouteConfig{
		{
			ID:        constants.RouteBillingEvents,
			Topic:     constants.TopicInvoiceCreated,
			TargetURL: "http://billing-service:8082/api/v1/invoices",
		},
		{
			ID:        constants.RouteIncidentEvents,
			Topic:     constants.TopicIncidentCreated,
			TargetURL: "http://drools-engine:8086/api/v1/rules/fraud-check",
		},
		{
			ID:        constants.RouteCustomerEvents,
			Topic:     constants.TopicCustomerRegistered,
			TargetURL: "http://customer-service:8084/api/v1/customers",
		},
	}
}

// DefaultRoutingRules mirror the event type families published by the gateway.
func DefaultRoutingRules() []RoutingRuleConfig {
	return []RoutingRuleConfig{
		{Name: "billing", Prefix: "invoice", Destination: constants.TopicInvoiceCreated},
		{Name: "incidents", Prefix: "incident", Destination: constants.TopicIncidentCreated},
		{Name: "customers", Prefix: "customer", Destination: constants.TopicCustomerRegistered},
		{Name: "policies", Prefix: "policy", Destination: constants.TopicPolicyEvents},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 30 * time.Second
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30 * time.Second
	}
	if cfg.Broker.Type == "" {
		cfg.Broker.Type = "kafka"
	}
	if cfg.Broker.Kafka.GroupID == "" {
		cfg.Broker.Kafka.GroupID = "integration-gateway"
	}
	if cfg.Broker.Kafka.DLQTopic == "" {
		cfg.Broker.Kafka.DLQTopic = constants.TopicDeadLetter
	}
	if cfg.Broker.Kafka.QueueSize == 0 {
		cfg.Broker.Kafka.QueueSize = constants.DefaultPartitionQueueSize
	}
	if cfg.Broker.Kafka.TopicPartitions == 0 {
		cfg.Broker.Kafka.TopicPartitions = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Idempotency.Store == "" {
		cfg.Idempotency.Store = constants.IdempotencyStoreMemory
	}
	if cfg.Idempotency.Capacity == 0 {
		cfg.Idempotency.Capacity = constants.DefaultIdempotencyCapacity
	}
	if cfg.Idempotency.KeyPrefix == "" {
		cfg.Idempotency.KeyPrefix = constants.CacheKeyPrefixIdempotency
	}
	if cfg.Idempotency.TTLSeconds == 0 {
		cfg.Idempotency.TTLSeconds = constants.DefaultTTLSeconds
	}
	if cfg.Idempotency.OnStoreError == "" {
		cfg.Idempotency.OnStoreError = constants.FallbackDeny
	}
	if cfg.Routing.UnclassifiedTopic == "" {
		cfg.Routing.UnclassifiedTopic = constants.TopicUnclassified
	}
	if len(cfg.Routing.Rules) == 0 {
		cfg.Routing.Rules = DefaultRoutingRules()
	}
	if len(cfg.Routes) == 0 {
		cfg.Routes = DefaultRoutes()
	}
	for i := range cfg.Routes {
		if cfg.Routes[i].Method == "" {
			cfg.Routes[i].Method = "POST"
		}
		if cfg.Routes[i].Timeout == 0 {
			cfg.Routes[i].Timeout = constants.DefaultHTTPTimeout
		}
	}
	if cfg.Gateway.BackendURL == "" {
		cfg.Gateway.BackendURL = "http://mock-guidewire:8082"
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = constants.DefaultHTTPTimeout
	}
	if cfg.Gateway.WireTapTimeout == 0 {
		cfg.Gateway.WireTapTimeout = constants.DefaultWireTapTimeout
	}
}
