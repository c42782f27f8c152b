package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_consumed_total",
			Help: "Total number of events consumed from Kafka (count)",
		},
		[]string{"route", "status"},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_published_total",
			Help: "Total number of events published to Kafka (count)",
		},
		[]string{"topic", "status"},
	)

	EventsDuplicateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_duplicate_total",
			Help: "Total number of events dropped by the idempotency filter (count)",
		},
		[]string{"route"},
	)

	UnroutableEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_unroutable_events_total",
			Help: "Total number of events sent to the unclassified topic (count)",
		},
	)

	DeadLetterMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_dead_letter_messages_total",
			Help: "Total number of messages sent to the dead-letter topic (count)",
		},
		[]string{"route", "reason"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_retry_attempts_total",
			Help: "Total number of dispatch retry attempts (count)",
		},
		[]string{"route"},
	)

	DispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_dispatch_duration_ms",
			Help:    "Duration of downstream dispatch attempts in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"route", "status"},
	)

	TransformationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_transformation_errors_total",
			Help: "Total number of XML/JSON transformation failures (count)",
		},
		[]string{"direction"},
	)

	TransformationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_transformation_duration_ms",
			Help:    "Duration of XML/JSON transformations in milliseconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"direction"},
	)

	SoapRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_soap_requests_total",
			Help: "Total number of SOAP requests handled (count)",
		},
		[]string{"center", "operation", "status"},
	)

	SoapRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_soap_request_duration_ms",
			Help:    "Duration of SOAP requests in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"center", "operation"},
	)

	IdempotencyCacheSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_idempotency_cache_size",
			Help: "Number of keys held by the idempotency cache (count)",
		},
		[]string{"route"},
	)

	RouteStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_route_started",
			Help: "Whether a consumer route is started (1) or not (0)",
		},
		[]string{"route"},
	)

	PartitionQueueSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_partition_queue_size",
			Help: "Messages buffered for a partition worker (count)",
		},
		[]string{"topic", "partition"},
	)

	KafkaMessagesReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_read_total",
			Help: "Total number of messages read from Kafka (count)",
		},
		[]string{"topic"},
	)

	KafkaMessagesWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_written_total",
			Help: "Total number of messages written to Kafka (count)",
		},
		[]string{"topic"},
	)

	KafkaMessageSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_size_bytes",
			Help:    "Size of Kafka messages in bytes",
			Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
		},
		[]string{"topic", "direction"},
	)

	KafkaWriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_write_duration_ms",
			Help:    "Duration of writing messages to Kafka in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"topic"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	FallbackUsageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fallback_usage_total",
			Help: "Total number of times fallback strategies were used (count)",
		},
		[]string{"component", "strategy"},
	)
)

var registerOnce sync.Once

// RegisterGatewayMetrics registers every collector with the default registry.
// Safe to call more than once.
func RegisterGatewayMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EventsConsumedTotal,
			EventsPublishedTotal,
			EventsDuplicateTotal,
			UnroutableEventsTotal,
			DeadLetterMessagesTotal,
			RetryAttemptsTotal,
			DispatchDuration,
			TransformationErrorsTotal,
			TransformationDuration,
			SoapRequestsTotal,
			SoapRequestDuration,
			IdempotencyCacheSize,
			RouteStatus,
			PartitionQueueSize,
			KafkaMessagesReadTotal,
			KafkaMessagesWrittenTotal,
			KafkaMessageSizeBytes,
			KafkaWriteDuration,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
			FallbackUsageTotal,
		)
	})
}

func ObserveDispatchDuration(route, status string, duration time.Duration) {
	DispatchDuration.WithLabelValues(route, status).Observe(float64(duration.Milliseconds()))
}

func ObserveTransformationDuration(direction string, duration time.Duration) {
	TransformationDuration.WithLabelValues(direction).Observe(float64(duration.Microseconds()) / 1000)
}

func ObserveSoapRequestDuration(center, operation string, duration time.Duration) {
	SoapRequestDuration.WithLabelValues(center, operation).Observe(float64(duration.Milliseconds()))
}

func ObserveKafkaMessageSize(topic, direction string, sizeBytes int) {
	KafkaMessageSizeBytes.WithLabelValues(topic, direction).Observe(float64(sizeBytes))
}

func ObserveKafkaWriteDuration(topic string, duration time.Duration) {
	KafkaWriteDuration.WithLabelValues(topic).Observe(float64(duration.Milliseconds()))
}

func SetIdempotencyCacheSize(route string, size int) {
	IdempotencyCacheSize.WithLabelValues(route).Set(float64(size))
}

func SetRouteStarted(route string, started bool) {
	v := 0.0
	if started {
		v = 1
	}
	RouteStatus.WithLabelValues(route).Set(v)
}
