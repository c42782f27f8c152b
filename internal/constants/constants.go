package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultWireTapTimeout = 15 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
	HealthTimeout   = 5 * time.Second
)

const (
	ServiceName = "integration-gateway"
)

const (
	TopicInvoiceCreated     = "billing.invoice-created"
	TopicIncidentCreated    = "incidents.incident-created"
	TopicCustomerRegistered = "customers.customer-registered"
	TopicPolicyEvents       = "policies.policy-events"
	TopicUnclassified       = "events.unclassified"
	TopicDeadLetter         = "dlq.errors"
)

const (
	RouteBillingEvents  = "consume-billing-events"
	RouteIncidentEvents = "consume-incident-events"
	RouteCustomerEvents = "consume-customer-events"
	RouteEventPublisher = "kafka-event-publisher"
)

const (
	DefaultPartitionQueueSize  = 64
	DefaultIdempotencyCapacity = 1000
	DefaultTTLSeconds          = 86400
	CacheKeyPrefixIdempotency  = "gateway:idempotency:"
)

const (
	IdempotencyStoreMemory = "memory"
	IdempotencyStoreRedis  = "redis"
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

// DedupKeyTimeLayout is yyyyMMddHHmmss; milliseconds are appended separately.
const DedupKeyTimeLayout = "20060102150405"
