package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gateway/internal/config"
	"gateway/internal/constants"
	"gateway/internal/logger"
	"gateway/pkg/cel"
	"gateway/pkg/metrics"
	"gateway/pkg/models"
)

// ContentRouter picks a destination topic from an event's type. Rules are
// evaluated in order and the first match wins. It is read-only once built.
type ContentRouter struct {
	rules    []Rule
	fallback CatchAllRule
	logger   logger.Logger
}

func NewContentRouter(rules []Rule, unclassified string, log logger.Logger) *ContentRouter {
	if unclassified == "" {
		unclassified = constants.TopicUnclassified
	}
	return &ContentRouter{
		rules:    rules,
		fallback: CatchAllRule{destination: unclassified},
		logger:   log,
	}
}

// Build compiles the configured routing table and checks it. Problems found
// by Validate fail the build in strict mode and are logged otherwise.
func Build(cfg config.RoutingConfig, log logger.Logger) (*ContentRouter, error) {
	var eval *cel.Evaluator
	rules := make([]Rule, 0, len(cfg.Rules))

	for i, rc := range cfg.Rules {
		name := rc.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i)
		}

		if rc.Prefix != "" {
			rules = append(rules, NewPrefixRule(name, rc.Prefix, rc.Destination))
			continue
		}

		if eval == nil {
			var err error
			if eval, err = cel.NewEvaluator(); err != nil {
				return nil, err
			}
		}
		program, err := eval.Compile(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("routing rule %s: %w", name, err)
		}
		rules = append(rules, NewExpressionRule(name, program, rc.Destination))
	}

	if problems := Validate(rules); len(problems) > 0 {
		if cfg.Strict {
			errs := make([]error, 0, len(problems))
			for _, p := range problems {
				errs = append(errs, p)
			}
			return nil, errors.Join(errs...)
		}
		for _, p := range problems {
			log.Warnw("Routing table problem", "rule", p.Rule, "problem", p.Message)
		}
	}

	return NewContentRouter(rules, cfg.UnclassifiedTopic, log), nil
}

// Route returns the first rule that matches env, or the catch-all rule.
// A rule whose expression fails to evaluate is skipped.
func (r *ContentRouter) Route(ctx context.Context, env models.EventEnvelope) Rule {
	for _, rule := range r.rules {
		ok, err := rule.match(ctx, env)
		if err != nil {
			r.logger.WarnwCtx(ctx, "Routing expression failed, skipping rule",
				"rule", rule.Name(),
				"event_type", env.EventType,
				"error", err,
			)
			continue
		}
		if ok {
			return rule
		}
	}

	metrics.UnroutableEventsTotal.Inc()
	r.logger.WarnwCtx(ctx, "No routing rule matched, using unclassified destination",
		"event_type", env.EventType,
		"destination", r.fallback.destination,
	)
	return r.fallback
}

func (r *ContentRouter) Destination(eventType string) string {
	return r.Route(context.Background(), models.EventEnvelope{EventType: eventType}).Destination()
}

// Rules returns the table including the trailing catch-all.
func (r *ContentRouter) Rules() []Rule {
	out := make([]Rule, 0, len(r.rules)+1)
	out = append(out, r.rules...)
	return append(out, r.fallback)
}

// Destinations lists every topic the router can publish to, in table order.
func (r *ContentRouter) Destinations() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rule := range r.Rules() {
		if !seen[rule.Destination()] {
			seen[rule.Destination()] = true
			out = append(out, rule.Destination())
		}
	}
	return out
}

// Problem describes a rule that can never match as written.
type Problem struct {
	Rule    string
	Message string
}

func (p Problem) Error() string {
	return fmt.Sprintf("routing rule %s: %s", p.Rule, p.Message)
}

// Validate reports prefix rules that are shadowed by an earlier prefix rule,
// including exact duplicates. Expression rules are opaque and never reported.
func Validate(rules []Rule) []Problem {
	var problems []Problem
	var earlier []PrefixRule

	for _, rule := range rules {
		pr, ok := rule.(PrefixRule)
		if !ok {
			continue
		}
		for _, prev := range earlier {
			switch {
			case pr.prefix == prev.prefix:
				problems = append(problems, Problem{
					Rule:    pr.name,
					Message: fmt.Sprintf("duplicate prefix %q already used by %s", pr.prefix, prev.name),
				})
			case strings.HasPrefix(pr.prefix, prev.prefix):
				problems = append(problems, Problem{
					Rule:    pr.name,
					Message: fmt.Sprintf("prefix %q is shadowed by %q of %s", pr.prefix, prev.prefix, prev.name),
				})
			default:
				continue
			}
			break
		}
		earlier = append(earlier, pr)
	}
	return problems
}
