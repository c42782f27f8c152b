package soap

import "net/http"

// Operation maps one SOAP operation onto a backend REST call.
type Operation struct {
	Name   string
	Method string
	Path   string
	// IDField names the request field appended to Path, if any.
	IDField string
	// Transform is false for operations whose request body carries nothing.
	Transform bool
	// Event is published after a successful call when set.
	Event string
}

type Center struct {
	Name       string
	Path       string
	Operations map[string]Operation
}

func (c Center) Operation(name string) (Operation, bool) {
	op, ok := c.Operations[name]
	return op, ok
}

func operations(ops ...Operation) map[string]Operation {
	m := make(map[string]Operation, len(ops))
	for _, op := range ops {
		m[op.Name] = op
	}
	return m
}

func DefaultCenters() []Center {
	return []Center{
		{
			Name: "PolicyCenter",
			Path: "/ws/policycenter",
			Operations: operations(
				Operation{Name: "getPolicy", Method: http.MethodGet, Path: "/api/v1/policies", IDField: "policyNumber", Transform: true},
				Operation{Name: "createPolicy", Method: http.MethodPost, Path: "/api/v1/policies", Transform: true, Event: "policy.created"},
				Operation{Name: "listPolicies", Method: http.MethodGet, Path: "/api/v1/policies"},
			),
		},
		{
			Name: "ClaimCenter",
			Path: "/ws/claimcenter",
			Operations: operations(
				Operation{Name: "getClaim", Method: http.MethodGet, Path: "/api/v1/claims", IDField: "claimId", Transform: true},
				Operation{Name: "createClaim", Method: http.MethodPost, Path: "/api/v1/claims", Transform: true, Event: "incident.created"},
			),
		},
		{
			Name: "BillingCenter",
			Path: "/ws/billingcenter",
			Operations: operations(
				Operation{Name: "getInvoice", Method: http.MethodGet, Path: "/api/v1/gw-invoices", IDField: "invoiceId", Transform: true},
				Operation{Name: "createInvoice", Method: http.MethodPost, Path: "/api/v1/gw-invoices", Transform: true, Event: "invoice.created"},
			),
		},
	}
}
