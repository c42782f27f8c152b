package logging

import (
	"context"
)

const (
	TraceIDKey     = "trace_id"
	MessageIDKey   = "message_id"
	ServiceNameKey = "service_name"
	RouteIDKey     = "route_id"
	DedupKeyKey    = "dedup_key"
)

type ctxKey string

// fieldOrder fixes the order in which context fields appear in log lines.
var fieldOrder = []string{TraceIDKey, MessageIDKey, ServiceNameKey, RouteIDKey, DedupKeyKey}

func with(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, ctxKey(key), value)
}

func get(ctx context.Context, key string) string {
	if v, ok := ctx.Value(ctxKey(key)).(string); ok {
		return v
	}
	return ""
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return with(ctx, TraceIDKey, traceID)
}

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return with(ctx, MessageIDKey, messageID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return with(ctx, ServiceNameKey, serviceName)
}

func WithRouteID(ctx context.Context, routeID string) context.Context {
	return with(ctx, RouteIDKey, routeID)
}

func WithDedupKey(ctx context.Context, dedupKey string) context.Context {
	return with(ctx, DedupKeyKey, dedupKey)
}

func GetTraceID(ctx context.Context) string {
	return get(ctx, TraceIDKey)
}

func GetMessageID(ctx context.Context) string {
	return get(ctx, MessageIDKey)
}

func GetServiceName(ctx context.Context) string {
	return get(ctx, ServiceNameKey)
}

func GetRouteID(ctx context.Context) string {
	return get(ctx, RouteIDKey)
}

func GetDedupKey(ctx context.Context) string {
	return get(ctx, DedupKeyKey)
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 2*len(fieldOrder))

	for _, key := range fieldOrder {
		if v := get(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
