package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"gateway/internal/config"
	"gateway/internal/constants"
)

// Span attributes set on gateway spans.
const (
	AttrRoute     = attribute.Key("gateway.route")
	AttrEventType = attribute.Key("gateway.event_type")
	AttrRoutes    = attribute.Key("gateway.routes")
	AttrGroupID   = attribute.Key("messaging.consumer.group.name")
)

type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	return tp.tp.Tracer(name)
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.tp != nil {
		return tp.tp.Shutdown(ctx)
	}
	return nil
}

// Init installs the propagator and, when enabled, the OTLP exporter. extra
// is added to the service resource, typically GatewayAttributes.
func Init(cfg config.TracingConfig, extra ...attribute.KeyValue) (*TracerProvider, error) {
	// propagation stays on when export is disabled
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider()
		return &TracerProvider{tp: tp}, nil
	}

	res, err := newResource(cfg.ServiceName, extra...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLP.Endpoint),
	}
	if cfg.OTLP.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	sampler := createSampler(cfg.Sampler)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

func newResource(serviceName string, extra ...attribute.KeyValue) (*resource.Resource, error) {
	if serviceName == "" {
		serviceName = constants.ServiceName
	}
	attrs := append([]attribute.KeyValue{semconv.ServiceNameKey.String(serviceName)}, extra...)

	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// GatewayAttributes describes the consumer side of this instance: the routes
// it owns and the consumer group they join.
func GatewayAttributes(routeIDs []string, groupID string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{AttrRoutes.StringSlice(routeIDs)}
	if groupID != "" {
		attrs = append(attrs, AttrGroupID.String(groupID))
	}
	return attrs
}

// StartDispatchSpan starts the span around one downstream dispatch attempt.
func StartDispatchSpan(ctx context.Context, routeID, eventType string) (context.Context, trace.Span) {
	return GetTracer("gateway/deadletter").Start(ctx, "dispatch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(AttrRoute.String(routeID), AttrEventType.String(eventType)),
	)
}

func createSampler(cfg config.SamplerConfig) sdktrace.Sampler {
	switch cfg.Type {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(cfg.Param)
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Param))
	case "always_on":
		fallthrough
	default:
		return sdktrace.AlwaysSample()
	}
}

func GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
