package models

import (
	"encoding/json"
	"fmt"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateEventEnvelope checks the structural requirements shared by every
// route. Payload content is governed by per-route schemas.
func ValidateEventEnvelope(env *EventEnvelope) error {
	if env == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "event envelope cannot be nil",
		}
	}

	if env.EventType == "" {
		return &ValidationError{
			Field:   "eventType",
			Message: "event type is required",
		}
	}

	if len(env.Payload) > 0 && !json.Valid(env.Payload) {
		return &ValidationError{
			Field:   "payload",
			Message: "payload is not valid JSON",
		}
	}

	return nil
}
