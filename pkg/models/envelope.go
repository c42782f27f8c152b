package models

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	HeaderEventType = "eventType"

	HeaderDLQError     = "X-DLQ-Error"
	HeaderDLQRoute     = "X-DLQ-Route"
	HeaderDLQTimestamp = "X-DLQ-Timestamp"
	HeaderDLQRetries   = "X-DLQ-Retries"
)

// Header is a single string header carried with an event.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Headers is an insertion-ordered string map. Set on an existing key replaces
// the value in place and keeps its position.
type Headers []Header

func (h Headers) Get(key string) (string, bool) {
	for _, header := range h {
		if header.Key == key {
			return header.Value, true
		}
	}
	return "", false
}

func (h Headers) Value(key string) string {
	v, _ := h.Get(key)
	return v
}

func (h *Headers) Set(key, value string) {
	for i := range *h {
		if (*h)[i].Key == key {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: value})
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

func (h Headers) Map() map[string]string {
	out := make(map[string]string, len(h))
	for _, header := range h {
		out[header.Key] = header.Value
	}
	return out
}

// EventEnvelope is the in-flight form of a domain event.
type EventEnvelope struct {
	EventType string          `json:"eventType"`
	DedupKey  string          `json:"dedupKey"`
	Payload   json.RawMessage `json:"payload"`
	Headers   Headers         `json:"headers"`
}

// DeadLetterEnvelope describes an event whose dispatch failed terminally.
type DeadLetterEnvelope struct {
	Original      EventEnvelope
	ErrorMessage  string
	OriginRouteID string
	FailedAt      time.Time
	RetryCount    int
}

// Wire returns the event written to the dead-letter topic: the original key,
// payload and headers followed by the four failure headers.
func (d DeadLetterEnvelope) Wire() EventEnvelope {
	headers := d.Original.Headers.Clone()
	headers.Set(HeaderDLQError, d.ErrorMessage)
	headers.Set(HeaderDLQRoute, d.OriginRouteID)
	headers.Set(HeaderDLQTimestamp, strconv.FormatInt(d.FailedAt.UnixMilli(), 10))
	headers.Set(HeaderDLQRetries, strconv.Itoa(d.RetryCount))

	return EventEnvelope{
		EventType: d.Original.EventType,
		DedupKey:  d.Original.DedupKey,
		Payload:   d.Original.Payload,
		Headers:   headers,
	}
}
