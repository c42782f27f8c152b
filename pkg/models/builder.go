package models

import "encoding/json"

type EventEnvelopeBuilder struct {
	envelope *EventEnvelope
}

func NewEventEnvelopeBuilder() *EventEnvelopeBuilder {
	return &EventEnvelopeBuilder{
		envelope: &EventEnvelope{},
	}
}

func (b *EventEnvelopeBuilder) WithEventType(eventType string) *EventEnvelopeBuilder {
	b.envelope.EventType = eventType
	return b
}

func (b *EventEnvelopeBuilder) WithDedupKey(key string) *EventEnvelopeBuilder {
	b.envelope.DedupKey = key
	return b
}

func (b *EventEnvelopeBuilder) WithPayload(payload json.RawMessage) *EventEnvelopeBuilder {
	b.envelope.Payload = payload
	return b
}

func (b *EventEnvelopeBuilder) WithHeader(key, value string) *EventEnvelopeBuilder {
	b.envelope.Headers.Set(key, value)
	return b
}

func (b *EventEnvelopeBuilder) WithHeaders(headers Headers) *EventEnvelopeBuilder {
	for _, h := range headers {
		b.envelope.Headers.Set(h.Key, h.Value)
	}
	return b
}

// Build sets the eventType header from the envelope's event type when absent.
func (b *EventEnvelopeBuilder) Build() *EventEnvelope {
	if b.envelope.EventType != "" {
		if _, ok := b.envelope.Headers.Get(HeaderEventType); !ok {
			b.envelope.Headers.Set(HeaderEventType, b.envelope.EventType)
		}
	}
	return b.envelope
}
