package route

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gateway/internal/broker"
	"gateway/internal/logger"
	"gateway/pkg/metrics"
	"gateway/pkg/retry"
)

// ConsumerRoute runs one topic consumer. A route that hits an unresolved
// message suspends itself and, when a recovery policy is set, restarts from
// the last committed offset after the policy's backoff. Resume starts a fresh
// consumer straight away.
type ConsumerRoute struct {
	id       string
	topic    string
	factory  broker.ConsumerFactory
	handler  broker.HandlerFunc
	logger   logger.Logger
	recovery retry.Policy

	state    atomic.Value // Status
	failures atomic.Int32 // consecutive unresolved suspensions

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	lastErr     error
	timer       *time.Timer
	recoveryGen uint64
}

func NewConsumerRoute(id, topic string, factory broker.ConsumerFactory, handler broker.HandlerFunc, log logger.Logger) *ConsumerRoute {
	r := &ConsumerRoute{
		id:      id,
		topic:   topic,
		factory: factory,
		handler: handler,
		logger:  log,
	}
	r.state.Store(StatusStopped)
	return r
}

// WithRecovery makes the route restart itself after an unresolved message,
// waiting policy.Delay(n) before the n-th consecutive restart. The count
// resets once a message is handled.
func (r *ConsumerRoute) WithRecovery(policy retry.Policy) *ConsumerRoute {
	r.recovery = policy
	return r
}

func (r *ConsumerRoute) ID() string    { return r.id }
func (r *ConsumerRoute) Topic() string { return r.topic }

func (r *ConsumerRoute) Status() Status {
	return r.state.Load().(Status)
}

// LastError is the error that suspended the route, if any.
func (r *ConsumerRoute) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Start begins consuming. The route runs until ctx is cancelled, Stop or
// Suspend is called, or a message cannot be resolved.
func (r *ConsumerRoute) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelRecovery()
	r.failures.Store(0)
	return r.startLocked(ctx)
}

func (r *ConsumerRoute) startLocked(ctx context.Context) error {
	if r.done != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	consumer := r.factory(r.topic)

	r.cancel = cancel
	r.done = done
	r.lastErr = nil
	r.setState(StatusStarted)

	r.logger.Infow("Route started", "route", r.id, "topic", r.topic)

	handler := func(msgCtx context.Context, d broker.Delivery) error {
		err := r.handler(msgCtx, d)
		if err == nil {
			r.failures.Store(0)
		}
		return err
	}

	go func() {
		defer close(done)
		err := consumer.Consume(runCtx, handler)
		if closeErr := consumer.Close(); closeErr != nil {
			r.logger.Warnw("Failed to close consumer", "route", r.id, "error", closeErr)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.done == done {
			r.done = nil
			r.cancel = nil
		}
		cancel()

		if err != nil {
			r.lastErr = err
			if r.Status() != StatusStarted {
				// halted while the failing message was in flight
				r.logger.Errorw("Unresolved message during halt", "route", r.id, "topic", r.topic, "error", err)
				return
			}
			r.setState(StatusSuspended)
			r.logger.Errorw("Route suspended after unresolved message", "route", r.id, "topic", r.topic, "error", err)
			r.scheduleRecovery(ctx)
			return
		}
		if r.Status() == StatusStarted {
			r.setState(StatusStopped)
		}
	}()

	return nil
}

// scheduleRecovery arms the restart timer. Callers hold r.mu.
func (r *ConsumerRoute) scheduleRecovery(ctx context.Context) {
	if r.recovery.InitialInterval <= 0 || ctx.Err() != nil {
		return
	}

	n := int(r.failures.Add(1))
	delay := r.recovery.Delay(n)
	r.recoveryGen++
	gen := r.recoveryGen

	r.logger.Warnw("Route recovery scheduled", "route", r.id, "attempt", n, "delay", delay.String())
	r.timer = time.AfterFunc(delay, func() { r.restart(ctx, gen) })
}

func (r *ConsumerRoute) restart(ctx context.Context, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.recoveryGen || r.done != nil || ctx.Err() != nil || r.Status() != StatusSuspended {
		return
	}
	r.timer = nil
	r.logger.Infow("Route recovering", "route", r.id, "topic", r.topic)
	_ = r.startLocked(ctx)
}

// cancelRecovery disarms a pending restart. Callers hold r.mu.
func (r *ConsumerRoute) cancelRecovery() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.recoveryGen++
}

// Stop halts the route and waits for in-flight messages to finish or for ctx
// to expire.
func (r *ConsumerRoute) Stop(ctx context.Context) error {
	return r.halt(ctx, StatusStopped)
}

func (r *ConsumerRoute) Suspend(ctx context.Context) error {
	return r.halt(ctx, StatusSuspended)
}

func (r *ConsumerRoute) halt(ctx context.Context, target Status) error {
	r.mu.Lock()
	r.cancelRecovery()
	cancel, done := r.cancel, r.done
	if done == nil {
		r.setState(target)
		r.mu.Unlock()
		return nil
	}
	r.setState(target)
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.logger.Infow("Route halted", "route", r.id, "status", string(target))
	return nil
}

func (r *ConsumerRoute) setState(s Status) {
	r.state.Store(s)
	metrics.SetRouteStarted(r.id, s == StatusStarted)
}
