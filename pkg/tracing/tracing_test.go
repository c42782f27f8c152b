package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/semconv/v1.26.0"

	"gateway/internal/config"
)

func TestCreateSampler(t *testing.T) {
	assert.Contains(t, createSampler(config.SamplerConfig{Type: "always_off"}).Description(), "AlwaysOff")
	assert.Contains(t, createSampler(config.SamplerConfig{Type: "traceidratio", Param: 0.25}).Description(), "TraceIDRatioBased{0.25}")
	assert.Contains(t, createSampler(config.SamplerConfig{Type: "parentbased_always_on"}).Description(), "ParentBased")
	assert.Contains(t, createSampler(config.SamplerConfig{}).Description(), "AlwaysOn")
}

func TestInit_DisabledStillShutsDown(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false})
	require.NoError(t, err)

	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res, err := newResource("", GatewayAttributes([]string{"consume-billing-events", "consume-incident-events"}, "integration-gateway")...)
	require.NoError(t, err)

	values := map[attribute.Key]attribute.Value{}
	for _, kv := range res.Attributes() {
		values[kv.Key] = kv.Value
	}
	assert.Equal(t, "integration-gateway", values[semconv.ServiceNameKey].AsString())
	assert.Equal(t, []string{"consume-billing-events", "consume-incident-events"}, values[AttrRoutes].AsStringSlice())
	assert.Equal(t, "integration-gateway", values[AttrGroupID].AsString())

	res, err = newResource("gateway-eu")
	require.NoError(t, err)
	assert.Contains(t, res.String(), "gateway-eu")
}

func TestGatewayAttributes_NoGroup(t *testing.T) {
	attrs := GatewayAttributes([]string{"r"}, "")
	require.Len(t, attrs, 1)
	assert.Equal(t, AttrRoutes, attrs[0].Key)
}

func TestStartDispatchSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := StartDispatchSpan(context.Background(), "consume-billing-events", "invoice.created")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "dispatch", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), AttrRoute.String("consume-billing-events"))
	assert.Contains(t, ended[0].Attributes(), AttrEventType.String("invoice.created"))
}
