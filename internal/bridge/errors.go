package bridge

import (
	"fmt"

	apperrors "gateway/pkg/errors"
)

const (
	DirectionXMLToJSON = "xml_to_json"
	DirectionJSONToXML = "json_to_xml"
)

// TransformationError reports input that could not be converted. It is never
// retryable and unwraps to apperrors.ErrTransformation.
type TransformationError struct {
	Direction string
	Err       error
}

func (e *TransformationError) Error() string {
	switch e.Direction {
	case DirectionXMLToJSON:
		return fmt.Sprintf("XML to JSON transformation failed: %v", e.Err)
	case DirectionJSONToXML:
		return fmt.Sprintf("JSON to XML transformation failed: %v", e.Err)
	}
	return fmt.Sprintf("transformation failed: %v", e.Err)
}

func (e *TransformationError) Unwrap() error {
	return apperrors.ErrTransformation.WithCause(e.Err)
}

func (e *TransformationError) IsRetryable() bool {
	return false
}
