package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gateway/pkg/logging"
)

func TestNewParsesLevel(t *testing.T) {
	log, err := New("warn", "console")
	require.NoError(t, err)
	assert.NotNil(t, log)

	log, err = New("nonsense", "json")
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestContextFieldsAreAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))
	log.(*SugaredLogger).SetServiceName("integration-gateway")

	ctx := logging.WithRouteID(context.Background(), "consume-billing-events")
	log.WarnwCtx(ctx, "Retrying dispatch", "retry", 1)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "consume-billing-events", fields["route_id"])
	assert.Equal(t, "integration-gateway", fields["service_name"])
	assert.EqualValues(t, 1, fields["retry"])
}
