package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gateway/internal/broker"
	"gateway/internal/constants"
	"gateway/internal/logger"
	"gateway/internal/routing"
	apperrors "gateway/pkg/errors"
	"gateway/pkg/logging"
	"gateway/pkg/metrics"
	"gateway/pkg/models"
	"gateway/pkg/retry"
)

// DedupKey derives the idempotency key of a freshly published event from its
// type and the publish instant, at millisecond precision.
func DedupKey(eventType string, now time.Time) string {
	return fmt.Sprintf("%s-%s%03d", eventType, now.Format(constants.DedupKeyTimeLayout), now.Nanosecond()/int(time.Millisecond))
}

type Result struct {
	Destination string `json:"destination"`
	DedupKey    string `json:"dedupKey"`
}

type Config struct {
	DLQTopic       string
	Policy         retry.Policy
	WireTapTimeout time.Duration
	// DLQTimeout bounds the dead-letter write, which ignores the caller's
	// deadline.
	DLQTimeout time.Duration
}

// Publisher classifies events with the content router and writes them to
// their destination topic.
type Publisher struct {
	cfg      Config
	router   *routing.ContentRouter
	producer broker.Producer
	logger   logger.Logger
	now      func() time.Time
	inflight sync.WaitGroup
}

func New(cfg Config, router *routing.ContentRouter, producer broker.Producer, log logger.Logger) *Publisher {
	if cfg.DLQTopic == "" {
		cfg.DLQTopic = constants.TopicDeadLetter
	}
	if cfg.WireTapTimeout <= 0 {
		cfg.WireTapTimeout = constants.DefaultWireTapTimeout
	}
	if cfg.DLQTimeout <= 0 {
		cfg.DLQTimeout = constants.KafkaWriteTimeout
	}
	return &Publisher{
		cfg:      cfg,
		router:   router,
		producer: producer,
		logger:   log,
		now:      time.Now,
	}
}

// Publish writes the event and returns where it went. When every attempt
// fails the event is dead-lettered and an ErrPublish error is returned.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload json.RawMessage, headers models.Headers) (Result, error) {
	env := *models.NewEventEnvelopeBuilder().
		WithEventType(eventType).
		WithDedupKey(DedupKey(eventType, p.now())).
		WithPayload(payload).
		WithHeaders(headers).
		WithHeader(models.HeaderEventType, eventType).
		Build()

	if err := models.ValidateEventEnvelope(&env); err != nil {
		return Result{}, apperrors.ErrValidation.WithCause(err)
	}

	ctx = logging.WithDedupKey(ctx, env.DedupKey)
	destination := p.router.Route(ctx, env).Destination()
	result := Result{Destination: destination, DedupKey: env.DedupKey}

	retries := 0
	err := retry.RetryWithCallback(ctx, p.cfg.Policy, func() error {
		return p.producer.Publish(ctx, destination, env)
	}, func(attempt int, err error, next time.Duration) {
		retries = attempt
		metrics.RetryAttemptsTotal.WithLabelValues(constants.RouteEventPublisher).Inc()
		p.logger.WarnwCtx(ctx, "Event publish failed, retrying",
			"topic", destination,
			"event_type", eventType,
			"retry", attempt,
			"delay", next.String(),
			"error", err,
		)
	})
	if err == nil {
		metrics.EventsPublishedTotal.WithLabelValues(destination, "success").Inc()
		p.logger.InfowCtx(ctx, "Event published",
			"topic", destination,
			"event_type", eventType,
		)
		return result, nil
	}

	metrics.EventsPublishedTotal.WithLabelValues(destination, "error").Inc()
	p.logger.ErrorwCtx(ctx, "Event publish retries exhausted, dead-lettering",
		"topic", destination,
		"event_type", eventType,
		"error", err,
	)

	dl := models.DeadLetterEnvelope{
		Original:      env,
		ErrorMessage:  err.Error(),
		OriginRouteID: constants.RouteEventPublisher,
		FailedAt:      p.now(),
		RetryCount:    retries,
	}

	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.DLQTimeout)
	defer cancel()
	if dlqErr := p.producer.Publish(dlqCtx, p.cfg.DLQTopic, dl.Wire()); dlqErr != nil {
		p.logger.ErrorwCtx(ctx, "Failed to publish to dead-letter topic",
			"topic", p.cfg.DLQTopic,
			"error", dlqErr,
		)
		return result, apperrors.ErrPublish.WithCause(err).WithDetail("dead_lettered", false)
	}

	metrics.DeadLetterMessagesTotal.WithLabelValues(constants.RouteEventPublisher, "exhausted").Inc()
	return result, apperrors.ErrPublish.WithCause(err).WithDetail("dead_lettered", true)
}

// PublishAsync is the wire tap used by the synchronous surfaces: the caller
// never waits and the publish is bounded by the wire-tap timeout. It outlives
// the caller's context.
func (p *Publisher) PublishAsync(ctx context.Context, eventType string, payload json.RawMessage, headers models.Headers) {
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		tapCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.WireTapTimeout)
		defer cancel()

		if _, err := p.Publish(tapCtx, eventType, payload, headers); err != nil {
			p.logger.WarnwCtx(tapCtx, "Wire tap publish failed",
				"event_type", eventType,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every PublishAsync call has finished or ctx is done.
func (p *Publisher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
