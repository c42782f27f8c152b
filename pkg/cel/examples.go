package cel

// RoutingExpressionExamples are expressions accepted in routing.rules[].expression.
var RoutingExpressionExamples = map[string]string{
	"event_type_prefix":   `eventType.startsWith("invoice")`,
	"event_type_suffix":   `eventType.endsWith(".created")`,
	"event_type_in_list":  `eventType in ["policy.created", "policy.renewed"]`,
	"header_equals":       `"source" in headers && headers["source"] == "policycenter"`,
	"payload_field":       `has(payload.priority) && payload.priority == "high"`,
	"payload_numeric":     `has(payload.amount) && payload.amount > 10000.0`,
	"combined_conditions": `eventType.startsWith("incident") && has(payload.severity) && payload.severity in ["major", "critical"]`,
	"regex":               `eventType.matches("^(claim|incident)\\.")`,
}
