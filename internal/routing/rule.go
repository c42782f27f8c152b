package routing

import (
	"context"
	"strings"

	"gateway/pkg/cel"
	"gateway/pkg/models"
)

// Rule is one entry of the routing table. The set of implementations is
// closed: PrefixRule, ExpressionRule and CatchAllRule.
type Rule interface {
	Name() string
	Destination() string
	match(ctx context.Context, env models.EventEnvelope) (bool, error)
}

type PrefixRule struct {
	name        string
	prefix      string
	destination string
}

func NewPrefixRule(name, prefix, destination string) PrefixRule {
	return PrefixRule{name: name, prefix: prefix, destination: destination}
}

func (r PrefixRule) Name() string        { return r.name }
func (r PrefixRule) Destination() string { return r.destination }
func (r PrefixRule) Prefix() string      { return r.prefix }

func (r PrefixRule) match(_ context.Context, env models.EventEnvelope) (bool, error) {
	return strings.HasPrefix(env.EventType, r.prefix), nil
}

type ExpressionRule struct {
	name        string
	program     *cel.Program
	destination string
}

func NewExpressionRule(name string, program *cel.Program, destination string) ExpressionRule {
	return ExpressionRule{name: name, program: program, destination: destination}
}

func (r ExpressionRule) Name() string        { return r.name }
func (r ExpressionRule) Destination() string { return r.destination }
func (r ExpressionRule) Expression() string  { return r.program.Expression() }

func (r ExpressionRule) match(ctx context.Context, env models.EventEnvelope) (bool, error) {
	return r.program.Matches(ctx, env)
}

// CatchAllRule matches every event. The router always ends with one.
type CatchAllRule struct {
	destination string
}

func (r CatchAllRule) Name() string        { return "unclassified" }
func (r CatchAllRule) Destination() string { return r.destination }

func (r CatchAllRule) match(context.Context, models.EventEnvelope) (bool, error) {
	return true, nil
}
