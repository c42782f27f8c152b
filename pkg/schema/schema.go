package schema

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	apperrors "gateway/pkg/errors"
)

// Registry holds compiled JSON schemas keyed by route id. Routes without a
// schema accept any payload.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*gojsonschema.Schema)}
}

func (r *Registry) Register(routeID, schema string) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return fmt.Errorf("invalid schema for route %s: %w", routeID, err)
	}

	r.mu.Lock()
	r.schemas[routeID] = compiled
	r.mu.Unlock()
	return nil
}

func (r *Registry) RegisterFile(routeID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read schema file %s: %w", path, err)
	}
	return r.Register(routeID, string(data))
}

func (r *Registry) Has(routeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[routeID]
	return ok
}

// Validate checks payload against the route's schema. A violation is a
// validation error and therefore never retried.
func (r *Registry) Validate(routeID string, payload []byte) error {
	r.mu.RLock()
	compiled, ok := r.schemas[routeID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	result, err := compiled.Validate(gojsonschema.NewBytesLoader(payload))
	if formatted := FormatErrors(result, err); formatted != nil {
		return apperrors.ErrValidation.WithCause(formatted).WithDetail("route", routeID)
	}
	return nil
}

func FormatErrors(result *gojsonschema.Result, err error) error {
	if err != nil {
		return fmt.Errorf("schema validation system error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	parts := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		parts = append(parts, desc.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(parts, "; "))
}
