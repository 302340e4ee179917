package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/observability"
)

// RetryPolicy bounds how an operation is retried after connection errors.
// The delay before attempt n+1 is BaseDelay * n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is used by WithRetry when no policy is given.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	return p
}

// delay returns the pause that follows the failed attempt number attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

// ConnectionSource hands out the live handle and replaces it on demand.
// *Supervisor implements it.
type ConnectionSource interface {
	Acquire(ctx context.Context) (*Handle, error)
	Reconnect(ctx context.Context) (*Handle, error)
}

var _ ConnectionSource = (*Supervisor)(nil)

// handleReplacer is implemented by sources that can skip a reconnect when the
// handle an attempt failed on was already replaced.
type handleReplacer interface {
	ReconnectFrom(ctx context.Context, failed *Handle) (*Handle, error)
}

var _ handleReplacer = (*Supervisor)(nil)

// Operation is a unit of database work run against one handle.
type Operation func(ctx context.Context, h *Handle) error

// Executor runs operations with reconnect-and-retry on connection errors.
type Executor struct {
	source     ConnectionSource
	logger     logger.Logger
	classifier *Classifier
	observer   observability.Observer
	tracer     trace.Tracer
	sleep      func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

func WithExecutorLogger(l logger.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithExecutorClassifier(c *Classifier) ExecutorOption {
	return func(e *Executor) {
		if c != nil {
			e.classifier = c
		}
	}
}

func WithExecutorObserver(o observability.Observer) ExecutorOption {
	return func(e *Executor) {
		e.observer = o
	}
}

// WithTracer records one span per attempt.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithSleep replaces the wait between attempts. Tests use it to record delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// NewExecutor returns an Executor drawing handles from source.
func NewExecutor(source ConnectionSource, opts ...ExecutorOption) *Executor {
	e := &Executor{
		source:     source,
		logger:     logger.NewNop(),
		classifier: defaultClassifier,
		tracer:     noop.NewTracerProvider().Tracer("postgres"),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classifier returns the classifier the executor retries on.
func (e *Executor) Classifier() *Classifier {
	return e.classifier
}

// Do runs op up to policy.MaxAttempts times.
//
// Errors classified as OtherError are returned immediately. After a
// connection error the executor reconnects, waits BaseDelay * attempt and
// tries again. When the last attempt fails with a connection error the
// returned error matches ErrRetriesExhausted and wraps that attempt's error.
// Failing to acquire a handle counts as a failed attempt.
func (e *Executor) Do(ctx context.Context, policy RetryPolicy, op Operation) error {
	policy = policy.normalize()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		var used *Handle
		used, lastErr = e.attempt(ctx, attempt, op)
		if lastErr == nil {
			return nil
		}

		if e.classifier.Classify(lastErr) != ConnectionError {
			return lastErr
		}

		if attempt == policy.MaxAttempts {
			break
		}

		e.logger.Warn("Database connection error, reconnecting before retry", lastErr, map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": policy.MaxAttempts,
		})
		if _, err := e.reconnect(ctx, used); err != nil {
			e.logger.Debug("Reconnect before retry failed", err, map[string]interface{}{
				"attempt": attempt,
			})
		}

		if err := e.sleep(ctx, policy.delay(attempt)); err != nil {
			return errors.Join(err, lastErr)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, policy.MaxAttempts, lastErr)
}

func (e *Executor) reconnect(ctx context.Context, failed *Handle) (*Handle, error) {
	if r, ok := e.source.(handleReplacer); ok {
		return r.ReconnectFrom(ctx, failed)
	}
	return e.source.Reconnect(ctx)
}

// attempt runs op once and returns the handle it ran on, nil when acquiring
// one failed.
func (e *Executor) attempt(ctx context.Context, attempt int, op Operation) (h *Handle, err error) {
	ctx, span := e.tracer.Start(ctx, "postgres.attempt", trace.WithAttributes(
		attribute.Int("db.attempt", attempt),
	))
	start := time.Now()
	defer func() {
		class := e.classifier.Classify(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("db.error_class", class.String()))
		}
		span.End()

		if e.observer != nil {
			e.observer.ObserveOperation(observability.OperationContext{
				Component:   "postgres",
				Operation:   "attempt",
				SubResource: class.String(),
				Duration:    time.Since(start),
				Error:       err,
			})
		}
	}()

	h, err = e.source.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return h, op(ctx, h)
}

// WithRetry runs op through e and returns its value. Without a policy it uses
// DefaultRetryPolicy.
func WithRetry[T any](ctx context.Context, e *Executor, op func(ctx context.Context, h *Handle) (T, error), policy ...RetryPolicy) (T, error) {
	p := DefaultRetryPolicy
	if len(policy) > 0 {
		p = policy[0]
	}

	var result T
	err := e.Do(ctx, p, func(ctx context.Context, h *Handle) error {
		v, err := op(ctx, h)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
