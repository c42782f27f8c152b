package soap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const getPolicyEnvelope = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Header><auth>t</auth></soap:Header>
  <soap:Body>
    <getPolicy><policyNumber>P-100</policyNumber></getPolicy>
  </soap:Body>
</soap:Envelope>`

func TestParseRequest_Envelope(t *testing.T) {
	req, err := ParseRequest(getPolicyEnvelope)

	require.NoError(t, err)
	assert.Equal(t, "getPolicy", req.Operation)
	assert.Equal(t, "<getPolicy><policyNumber>P-100</policyNumber></getPolicy>", req.Body)
}

func TestParseRequest_BareDocument(t *testing.T) {
	doc := `<createClaim><policyNumber>P-1</policyNumber></createClaim>`
	req, err := ParseRequest(doc)

	require.NoError(t, err)
	assert.Equal(t, "createClaim", req.Operation)
	assert.Equal(t, doc, req.Body)
}

func TestParseRequest_Blank(t *testing.T) {
	req, err := ParseRequest("  \n")

	require.NoError(t, err)
	assert.Equal(t, Request{}, req)
}

func TestParseRequest_EmptyBody(t *testing.T) {
	req, err := ParseRequest(`<Envelope><Body></Body></Envelope>`)

	require.NoError(t, err)
	assert.Empty(t, req.Operation)
}

func TestParseRequest_Malformed(t *testing.T) {
	_, err := ParseRequest(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><getPolicy>`)
	assert.Error(t, err)

	_, err = ParseRequest(`<Envelope><Header/></Envelope>`)
	assert.Error(t, err)
}

func TestFault_EscapesMessage(t *testing.T) {
	out := Fault("soap:Server", `backend said <nope> & "stop"`)

	assert.Contains(t, out, "<faultcode>soap:Server</faultcode>")
	assert.Contains(t, out, "<faultstring>backend said &lt;nope&gt; &amp; &quot;stop&quot;</faultstring>")
	assert.Contains(t, out, "<soap:Body><soap:Fault>")
}

func TestSoapAction(t *testing.T) {
	cases := map[string]string{
		`"getPolicy"`:                "getPolicy",
		"urn:policycenter/getPolicy": "getPolicy",
		"http://host/ws#createClaim": "createClaim",
		"urn:getInvoice":             "getInvoice",
		"":                           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, soapAction(in), in)
	}
}
