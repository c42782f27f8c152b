package soap

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"gateway/internal/bridge"
)

// Request is the part of an inbound document the gateway acts on.
type Request struct {
	// Operation is the local name of the first element in soap:Body, or of
	// the document element when the input is not an envelope.
	Operation string
	// Body is the raw text of that element.
	Body string
}

// ParseRequest locates the payload element of a SOAP 1.1 envelope. Blank
// input yields an empty Request.
func ParseRequest(doc string) (Request, error) {
	if strings.TrimSpace(doc) == "" {
		return Request{}, nil
	}

	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = true

	root, err := nextStart(dec)
	if err != nil {
		return Request{}, err
	}
	if !isSoap(root.Name, "Envelope") {
		return Request{Operation: root.Name.Local, Body: doc}, nil
	}

	for {
		start, err := nextStart(dec)
		if err != nil {
			return Request{}, err
		}
		if !isSoap(start.Name, "Body") {
			if err := dec.Skip(); err != nil {
				return Request{}, err
			}
			continue
		}

		payload, err := nextChildStart(dec)
		if err != nil {
			return Request{}, err
		}
		if payload == nil {
			return Request{}, nil
		}
		if err := dec.Skip(); err != nil {
			return Request{}, err
		}
		return Request{Operation: payload.name, Body: doc[payload.offset:dec.InputOffset()]}, nil
	}
}

type childStart struct {
	name   string
	offset int64
}

// nextChildStart returns the next child element of the current element, or
// nil when the element closes first.
func nextChildStart(dec *xml.Decoder) (*childStart, error) {
	for {
		offset := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			return nil, unexpected(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return &childStart{name: t.Name.Local, offset: offset}, nil
		case xml.EndElement:
			return nil, nil
		}
	}
}

func nextStart(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, unexpected(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.EndElement:
			return xml.StartElement{}, errors.New("envelope has no body")
		}
	}
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func isSoap(name xml.Name, local string) bool {
	return name.Local == local && (name.Space == bridge.SoapEnvelopeNS || name.Space == "")
}

// Fault renders a SOAP 1.1 fault envelope.
func Fault(code, message string) string {
	return bridge.WrapInSoapEnvelope(fmt.Sprintf(
		"<soap:Fault><faultcode>%s</faultcode><faultstring>%s</faultstring></soap:Fault>",
		bridge.EscapeXML(code), bridge.EscapeXML(message),
	))
}
