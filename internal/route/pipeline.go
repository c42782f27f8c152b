package route

import (
	"context"
	"fmt"

	"gateway/internal/broker"
	"gateway/internal/deadletter"
	"gateway/internal/idempotency"
	"gateway/internal/logger"
	"gateway/pkg/logging"
	"gateway/pkg/metrics"
	"gateway/pkg/models"
	"gateway/pkg/schema"
)

// Deliverer is the dispatch side of a pipeline.
type Deliverer interface {
	Deliver(ctx context.Context, env models.EventEnvelope) (deadletter.Outcome, error)
	DeadLetter(ctx context.Context, env models.EventEnvelope, cause error, reason string) error
}

// Pipeline resolves one consumed message: structural checks, payload schema,
// duplicate suppression, then dispatch with retries and dead-lettering.
type Pipeline struct {
	routeID   string
	filter    idempotency.Filter
	schemas   *schema.Registry
	deliverer Deliverer
	logger    logger.Logger
}

func NewPipeline(routeID string, filter idempotency.Filter, schemas *schema.Registry, deliverer Deliverer, log logger.Logger) *Pipeline {
	if schemas == nil {
		schemas = schema.NewRegistry()
	}
	return &Pipeline{
		routeID:   routeID,
		filter:    filter,
		schemas:   schemas,
		deliverer: deliverer,
		logger:    log,
	}
}

// Handle returns nil when the message reached a terminal outcome and may be
// committed. A non-nil error leaves it for redelivery.
func (p *Pipeline) Handle(ctx context.Context, d broker.Delivery) error {
	env := d.Envelope
	ctx = logging.WithRouteID(ctx, p.routeID)
	if env.DedupKey != "" {
		ctx = logging.WithDedupKey(ctx, env.DedupKey)
	}

	if err := models.ValidateEventEnvelope(&env); err != nil {
		return p.reject(ctx, env, err, "invalid")
	}
	if err := p.schemas.Validate(p.routeID, env.Payload); err != nil {
		return p.reject(ctx, env, err, "schema")
	}

	recorded := false
	if env.DedupKey != "" {
		seen, err := p.filter.SeenBefore(ctx, env.DedupKey)
		if err != nil {
			metrics.EventsConsumedTotal.WithLabelValues(p.routeID, "unresolved").Inc()
			return fmt.Errorf("route %s: %w", p.routeID, err)
		}
		if seen {
			metrics.EventsDuplicateTotal.WithLabelValues(p.routeID).Inc()
			metrics.EventsConsumedTotal.WithLabelValues(p.routeID, "duplicate").Inc()
			p.logger.WarnwCtx(ctx, "Duplicate event skipped",
				"event_type", env.EventType,
				"partition", d.Partition,
				"offset", d.Offset,
			)
			return nil
		}
		recorded = true
		p.reportCacheSize()
	}

	outcome, err := p.deliverer.Deliver(ctx, env)
	if err != nil {
		if recorded {
			if forgetErr := p.filter.Forget(ctx, env.DedupKey); forgetErr != nil {
				p.logger.ErrorwCtx(ctx, "Failed to forget dedup key", "error", forgetErr)
			}
			p.reportCacheSize()
		}
		metrics.EventsConsumedTotal.WithLabelValues(p.routeID, outcome.String()).Inc()
		return fmt.Errorf("route %s: %w", p.routeID, err)
	}

	metrics.EventsConsumedTotal.WithLabelValues(p.routeID, outcome.String()).Inc()
	return nil
}

func (p *Pipeline) reject(ctx context.Context, env models.EventEnvelope, cause error, reason string) error {
	p.logger.WarnwCtx(ctx, "Event rejected before dispatch",
		"event_type", env.EventType,
		"reason", reason,
		"error", cause,
	)
	if err := p.deliverer.DeadLetter(ctx, env, cause, reason); err != nil {
		metrics.EventsConsumedTotal.WithLabelValues(p.routeID, "unresolved").Inc()
		return fmt.Errorf("route %s: %w", p.routeID, err)
	}
	metrics.EventsConsumedTotal.WithLabelValues(p.routeID, deadletter.OutcomeDeadLettered.String()).Inc()
	return nil
}

func (p *Pipeline) reportCacheSize() {
	if s, ok := p.filter.(idempotency.Sizer); ok {
		metrics.SetIdempotencyCacheSize(p.routeID, s.Len())
	}
}
