package deadletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"

	"gateway/internal/broker"
	"gateway/internal/logger"
	apperrors "gateway/pkg/errors"
	"gateway/pkg/metrics"
	"gateway/pkg/models"
	"gateway/pkg/retry"
	"gateway/pkg/tracing"
)

// Outcome is the terminal result of Deliver.
type Outcome int

const (
	// OutcomeUnresolved means neither the downstream nor the dead-letter topic
	// accepted the message.
	OutcomeUnresolved Outcome = iota
	OutcomeDelivered
	OutcomeDeadLettered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDeadLettered:
		return "dead_lettered"
	default:
		return "unresolved"
	}
}

type Config struct {
	RouteID       string
	DLQTopic      string
	Policy        retry.Policy
	PublishPolicy retry.Policy
}

// Router dispatches an envelope with bounded exponential retries and parks it
// on the dead-letter topic once the retries run out.
type Router struct {
	cfg        Config
	dispatcher Dispatcher
	producer   broker.Producer
	logger     logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

func NewRouter(cfg Config, dispatcher Dispatcher, producer broker.Producer, log logger.Logger) *Router {
	return &Router{
		cfg:        cfg,
		dispatcher: dispatcher,
		producer:   producer,
		logger:     log,
		sleep:      sleepContext,
		now:        time.Now,
	}
}

func (r *Router) RouteID() string {
	return r.cfg.RouteID
}

// Deliver returns a nil error only when the envelope reached a terminal
// outcome: accepted downstream or written to the dead-letter topic.
func (r *Router) Deliver(ctx context.Context, env models.EventEnvelope) (Outcome, error) {
	var lastErr error
	retries := 0

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			retries = attempt
			delay := r.cfg.Policy.Delay(attempt)
			metrics.RetryAttemptsTotal.WithLabelValues(r.cfg.RouteID).Inc()
			r.logger.WarnwCtx(ctx, "Dispatch failed, retrying",
				"route", r.cfg.RouteID,
				"event_type", env.EventType,
				"retry", attempt,
				"max_retries", r.cfg.Policy.MaxRetries,
				"delay", delay.String(),
				"error", lastErr,
			)
			if err := r.sleep(ctx, delay); err != nil {
				return OutcomeUnresolved, fmt.Errorf("retry wait interrupted: %w", err)
			}
		}

		lastErr = r.dispatch(ctx, env)
		if lastErr == nil {
			return OutcomeDelivered, nil
		}

		if retry.IsFatal(lastErr) {
			r.logger.ErrorwCtx(ctx, "Dispatch failed permanently, dead-lettering without retry",
				"route", r.cfg.RouteID,
				"event_type", env.EventType,
				"error", lastErr,
			)
			return r.deadLetter(ctx, env, lastErr, retries, "permanent")
		}

		if attempt >= r.cfg.Policy.MaxRetries {
			break
		}
	}

	r.logger.ErrorwCtx(ctx, "Retries exhausted, dead-lettering",
		"route", r.cfg.RouteID,
		"event_type", env.EventType,
		"retries", retries,
		"error", lastErr,
	)
	return r.deadLetter(ctx, env, lastErr, retries, "exhausted")
}

// DeadLetter parks env without attempting dispatch.
func (r *Router) DeadLetter(ctx context.Context, env models.EventEnvelope, cause error, reason string) error {
	_, err := r.deadLetter(ctx, env, cause, 0, reason)
	return err
}

func (r *Router) dispatch(ctx context.Context, env models.EventEnvelope) (err error) {
	ctx, span := tracing.StartDispatchSpan(ctx, r.cfg.RouteID, env.EventType)

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.RecoverPanic(rec)
			r.logger.ErrorwCtx(ctx, "Dispatcher panicked",
				"route", r.cfg.RouteID,
				"panic", rec,
			)
		}
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		metrics.ObserveDispatchDuration(r.cfg.RouteID, status, time.Since(start))
	}()

	return r.dispatcher.Dispatch(ctx, env)
}

func (r *Router) deadLetter(ctx context.Context, env models.EventEnvelope, cause error, retries int, reason string) (Outcome, error) {
	dl := models.DeadLetterEnvelope{
		Original:      env,
		ErrorMessage:  errorMessage(cause),
		OriginRouteID: r.cfg.RouteID,
		FailedAt:      r.now(),
		RetryCount:    retries,
	}

	err := retry.Retry(ctx, r.cfg.PublishPolicy, func() error {
		return r.producer.Publish(ctx, r.cfg.DLQTopic, dl.Wire())
	})
	if err != nil {
		r.logger.ErrorwCtx(ctx, "Failed to publish to dead-letter topic",
			"route", r.cfg.RouteID,
			"topic", r.cfg.DLQTopic,
			"error", err,
		)
		return OutcomeUnresolved, fmt.Errorf("dead-letter publish to %s: %w", r.cfg.DLQTopic, err)
	}

	metrics.DeadLetterMessagesTotal.WithLabelValues(r.cfg.RouteID, reason).Inc()
	r.logger.WarnwCtx(ctx, "Message dead-lettered",
		"route", r.cfg.RouteID,
		"topic", r.cfg.DLQTopic,
		"event_type", env.EventType,
		"retries", retries,
		"reason", reason,
	)
	return OutcomeDeadLettered, nil
}

func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
	}
	return err.Error()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
