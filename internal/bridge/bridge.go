package bridge

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gateway/pkg/metrics"
)

const (
	SoapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	ResponseNS     = "http://guidewire.com/integration/ws"

	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`
	emptyMarker    = "<Empty/>"
)

// RoutingFields are lifted into Result.Headers when present at the top level.
var RoutingFields = []string{"policyNumber", "claimId", "invoiceId", "customerId"}

type Result struct {
	Body    string
	Headers map[string]string
}

// SoapXMLToJSON flattens the direct children of the document element into a
// JSON object of name to trimmed text content. Blank input is returned as is.
func SoapXMLToJSON(doc string) (Result, error) {
	if strings.TrimSpace(doc) == "" {
		return Result{Body: doc, Headers: map[string]string{}}, nil
	}

	start := time.Now()
	fields, err := topLevelFields(doc)
	metrics.ObserveTransformationDuration(DirectionXMLToJSON, time.Since(start))
	if err != nil {
		metrics.TransformationErrorsTotal.WithLabelValues(DirectionXMLToJSON).Inc()
		return Result{}, &TransformationError{Direction: DirectionXMLToJSON, Err: err}
	}

	headers := make(map[string]string)
	for _, name := range RoutingFields {
		if v, ok := fields.get(name); ok {
			headers[name] = v
		}
	}

	body, err := fields.marshal()
	if err != nil {
		metrics.TransformationErrorsTotal.WithLabelValues(DirectionXMLToJSON).Inc()
		return Result{}, &TransformationError{Direction: DirectionXMLToJSON, Err: err}
	}
	return Result{Body: body, Headers: headers}, nil
}

// JSONToSoapXML renders a JSON document as the body of a SOAP response
// envelope. Blank input produces an envelope holding the empty marker.
func JSONToSoapXML(doc string) (string, error) {
	if strings.TrimSpace(doc) == "" {
		return WrapInSoapEnvelope(emptyMarker), nil
	}

	start := time.Now()
	node, err := ParseJSON(doc)
	metrics.ObserveTransformationDuration(DirectionJSONToXML, time.Since(start))
	if err != nil {
		metrics.TransformationErrorsTotal.WithLabelValues(DirectionJSONToXML).Inc()
		return "", &TransformationError{Direction: DirectionJSONToXML, Err: err}
	}

	var b strings.Builder
	b.WriteString(`<Response xmlns="` + ResponseNS + `">`)
	node.render(&b)
	b.WriteString("</Response>")
	return WrapInSoapEnvelope(b.String()), nil
}

func WrapInSoapEnvelope(content string) string {
	return xmlDeclaration +
		`<soap:Envelope xmlns:soap="` + SoapEnvelopeNS + `">` +
		"<soap:Body>" + content + "</soap:Body>" +
		"</soap:Envelope>"
}

// EmptyEnvelope is the response for requests that produce no content.
func EmptyEnvelope() string {
	return WrapInSoapEnvelope(emptyMarker)
}

type orderedFields struct {
	names  []string
	values map[string]string
}

func (f *orderedFields) set(name, value string) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = value
}

func (f *orderedFields) get(name string) (string, bool) {
	v, ok := f.values[name]
	return v, ok
}

func (f *orderedFields) marshal() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, name := range f.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(name); err != nil {
			return "", err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(f.values[name]); err != nil {
			return "", err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// topLevelFields walks the whole document so malformed input is rejected even
// past the fields of interest. Entity declarations are never expanded.
func topLevelFields(doc string) (*orderedFields, error) {
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = true

	fields := &orderedFields{values: make(map[string]string)}
	depth := 0
	rootSeen := false
	var current string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if rootSeen {
					return nil, errors.New("document has more than one root element")
				}
				rootSeen = true
			}
			depth++
			if depth == 2 {
				current = t.Name.Local
				text.Reset()
			}
		case xml.EndElement:
			if depth == 2 {
				fields.set(current, strings.TrimSpace(text.String()))
			}
			depth--
		case xml.CharData:
			if depth >= 2 {
				text.Write(t)
			} else if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("unexpected text outside the document element")
			}
		}
	}

	if !rootSeen {
		return nil, errors.New("document has no root element")
	}
	return fields, nil
}
