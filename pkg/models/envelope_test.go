package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersSetKeepsOrder(t *testing.T) {
	var h Headers
	h.Set("b", "1")
	h.Set("a", "2")
	h.Set("b", "3")

	require.Len(t, h, 2)
	assert.Equal(t, Header{Key: "b", Value: "3"}, h[0])
	assert.Equal(t, Header{Key: "a", Value: "2"}, h[1])
	assert.Equal(t, "3", h.Value("b"))
	assert.Equal(t, "", h.Value("missing"))
}

func TestHeadersCloneIsIndependent(t *testing.T) {
	h := Headers{{Key: "k", Value: "v"}}
	c := h.Clone()
	c.Set("k", "changed")

	assert.Equal(t, "v", h.Value("k"))
	assert.Nil(t, Headers(nil).Clone())
}

func TestDeadLetterWirePreservesOriginal(t *testing.T) {
	original := EventEnvelope{
		EventType: "invoice.created",
		DedupKey:  "INV-1",
		Payload:   json.RawMessage(`{"invoiceId":"INV-1"}`),
		Headers:   Headers{{Key: "eventType", Value: "invoice.created"}, {Key: "traceparent", Value: "00-abc"}},
	}
	failedAt := time.UnixMilli(1700000000123)

	wire := DeadLetterEnvelope{
		Original:      original,
		ErrorMessage:  "HTTP 503",
		OriginRouteID: "consume-billing-events",
		FailedAt:      failedAt,
		RetryCount:    5,
	}.Wire()

	assert.Equal(t, original.DedupKey, wire.DedupKey)
	assert.JSONEq(t, string(original.Payload), string(wire.Payload))
	require.Len(t, wire.Headers, 6)
	assert.Equal(t, "eventType", wire.Headers[0].Key)
	assert.Equal(t, "traceparent", wire.Headers[1].Key)
	assert.Equal(t, "HTTP 503", wire.Headers.Value(HeaderDLQError))
	assert.Equal(t, "consume-billing-events", wire.Headers.Value(HeaderDLQRoute))
	assert.Equal(t, "1700000000123", wire.Headers.Value(HeaderDLQTimestamp))
	assert.Equal(t, "5", wire.Headers.Value(HeaderDLQRetries))

	// the original envelope is untouched
	assert.Len(t, original.Headers, 2)
}

func TestBuilderSetsEventTypeHeader(t *testing.T) {
	env := NewEventEnvelopeBuilder().
		WithEventType("policy.created").
		WithDedupKey("policy.created-20240101000000000").
		WithPayload(json.RawMessage(`{}`)).
		WithHeader("policyNumber", "POL-1").
		Build()

	assert.Equal(t, "policy.created", env.Headers.Value(HeaderEventType))
	assert.Equal(t, "POL-1", env.Headers.Value("policyNumber"))
}

func TestValidateEventEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		env     *EventEnvelope
		wantErr string
	}{
		{name: "nil", env: nil, wantErr: "envelope"},
		{name: "missing type", env: &EventEnvelope{}, wantErr: "eventType"},
		{name: "bad payload", env: &EventEnvelope{EventType: "x", Payload: json.RawMessage(`{`)}, wantErr: "payload"},
		{name: "valid", env: &EventEnvelope{EventType: "x", Payload: json.RawMessage(`{"a":1}`)}},
		{name: "empty payload", env: &EventEnvelope{EventType: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventEnvelope(tt.env)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.wantErr, vErr.Field)
		})
	}
}
