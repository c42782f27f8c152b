package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/config"
)

func TestPrintRoutes(t *testing.T) {
	cfg := &config.Config{
		Routing: config.RoutingConfig{
			UnclassifiedTopic: "events.unclassified",
			Rules: []config.RoutingRuleConfig{
				{Name: "billing", Prefix: "invoice", Destination: "billing.invoice-created"},
				{Name: "vip", Expression: `headers["tier"] == "vip"`, Destination: "customers.vip"},
			},
		},
		Routes: []config.RouteConfig{
			{ID: "consume-billing-events", Topic: "billing.invoice-created", Method: "POST", TargetURL: "http://billing/api/v1/invoices"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, printRoutes(&buf, cfg))

	out := buf.String()
	assert.Contains(t, out, "prefix invoice")
	assert.Contains(t, out, `expr headers["tier"] == "vip"`)
	assert.Contains(t, out, "unclassified")
	assert.Contains(t, out, "events.unclassified")
	assert.Contains(t, out, "POST http://billing/api/v1/invoices")
}

func TestPrintRoutes_InvalidExpression(t *testing.T) {
	cfg := &config.Config{
		Routing: config.RoutingConfig{
			UnclassifiedTopic: "events.unclassified",
			Rules:             []config.RoutingRuleConfig{{Name: "bad", Expression: "eventType ==", Destination: "x"}},
		},
	}

	var buf bytes.Buffer
	assert.Error(t, printRoutes(&buf, cfg))
}

func TestPrintExpressionExamples(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printExpressionExamples(&buf))

	out := buf.String()
	assert.Contains(t, out, "EXAMPLE")
	assert.Contains(t, out, `eventType.startsWith("invoice")`)
	assert.Less(t, strings.Index(out, "combined_conditions"), strings.Index(out, "regex"))
}
