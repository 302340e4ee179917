package auditlog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/observability"
	"github.com/tenantdesk/platform/v1/postgres"
)

// Runner executes database work with retries. *postgres.Executor implements it.
type Runner interface {
	Do(ctx context.Context, policy postgres.RetryPolicy, op postgres.Operation) error
}

var _ Runner = (*postgres.Executor)(nil)

// Sink records events to the process log and, best-effort, to the database.
//
// Record never blocks and never fails. Database writes happen on a single
// worker goroutine started by Start, and only after Enable. A breaker pauses
// writes for PauseWindow after FailureThreshold consecutive connection
// failures. Failures of the sink itself are written to the process log only.
type Sink struct {
	runner     Runner
	log        logger.Logger
	cfg        Config
	classifier *postgres.Classifier
	observer   observability.Observer
	breaker    *breaker
	now        func() time.Time

	queue chan Event

	// mu guards stopped against the close of queue.
	mu      sync.RWMutex
	stopped bool

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	dropped atomic.Int64
}

// Option configures a Sink.
type Option func(*Sink)

// WithClassifier sets the classifier deciding which failures count toward the breaker.
func WithClassifier(c *postgres.Classifier) Option {
	return func(s *Sink) {
		if c != nil {
			s.classifier = c
		}
	}
}

func WithObserver(o observability.Observer) Option {
	return func(s *Sink) {
		s.observer = o
	}
}

// WithClock replaces time.Now for the breaker and entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSink builds a sink that writes through runner. It does not start the
// worker and does not write to the database until Enable is called.
func NewSink(runner Runner, log logger.Logger, cfg Config, opts ...Option) *Sink {
	cfg = cfg.withDefaults()
	if log == nil {
		log = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sink{
		runner:     runner,
		log:        log,
		cfg:        cfg,
		classifier: postgres.NewClassifier(),
		now:        time.Now,
		queue:      make(chan Event, cfg.QueueSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.breaker = newBreaker(cfg.FailureThreshold, cfg.PauseWindow, s.now)
	return s
}

// Enable turns on database persistence. Call it once baseline connectivity
// has been verified.
func (s *Sink) Enable() {
	s.breaker.enable()
	s.log.Info("Database logging enabled", nil, map[string]interface{}{
		"table": s.cfg.TableName,
	})
}

// State returns a snapshot of the breaker.
func (s *Sink) State() BreakerState {
	return s.breaker.snapshot()
}

// Dropped returns how many events were discarded because the queue was full.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Record logs ev locally and queues it for persistence when the breaker allows.
func (s *Sink) Record(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered from panic while recording log event", fmt.Errorf("%v", r), nil)
		}
	}()

	s.writeLocal(ev)

	if !s.breaker.allow() {
		return
	}
	s.enqueue(ev)
}

func (s *Sink) enqueue(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}

	select {
	case s.queue <- ev:
	default:
		n := s.dropped.Add(1)
		s.log.Debug("Log event queue full, dropping event", nil, map[string]interface{}{
			"dropped_total": n,
			"queue_size":    s.cfg.QueueSize,
		})
	}
}

// writeLocal mirrors ev to the process logger at the matching level.
func (s *Sink) writeLocal(ev Event) {
	fields := map[string]interface{}{
		"screen_name":     ev.ScreenName,
		"caller_function": ev.CallerFunction,
		"log_type":        string(ev.LogType),
	}
	if ev.UserID != nil {
		fields["user_id"] = *ev.UserID
	}
	if len(ev.Metadata) > 0 {
		fields["metadata"] = ev.Metadata
	}

	switch ev.LogType {
	case Error:
		s.log.Error(ev.Message, nil, fields)
	case Warning:
		s.log.Warn(ev.Message, nil, fields)
	case Debug:
		s.log.Debug(ev.Message, nil, fields)
	default:
		s.log.Info(ev.Message, nil, fields)
	}
}

// Start launches the worker. Calls after the first, or after Stop, do nothing.
func (s *Sink) Start() {
	s.startOnce.Do(func() {
		s.mu.RLock()
		stopped := s.stopped
		s.mu.RUnlock()
		if stopped {
			return
		}
		s.started.Store(true)
		go s.run()
	})
}

// Stop stops accepting events, lets the worker drain the queue and waits for
// it. If ctx ends first the in-flight write is canceled and ctx.Err is returned.
func (s *Sink) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.queue)
		s.mu.Unlock()

		if !s.started.Load() {
			if n := len(s.queue); n > 0 {
				s.log.Warn("Log sink stopped before it was started, dropping queued events", nil, map[string]interface{}{
					"events": n,
				})
			}
			s.cancel()
			return
		}

		select {
		case <-s.done:
		case <-ctx.Done():
			s.cancel()
			<-s.done
			err = ctx.Err()
		}
		s.cancel()
	})
	return err
}

func (s *Sink) run() {
	defer close(s.done)
	for ev := range s.queue {
		s.process(ev)
	}
}

// process persists one event and feeds the outcome to the breaker.
func (s *Sink) process(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Recovered from panic while persisting log event", fmt.Errorf("%v", r), nil)
		}
	}()

	// The breaker may have tripped while ev waited in the queue.
	if !s.breaker.allow() {
		return
	}

	start := time.Now()
	err := s.persist(s.ctx, ev)
	s.observe(time.Since(start), err)

	if err == nil {
		s.breaker.success()
		return
	}

	if s.classifier.Classify(err) != postgres.ConnectionError {
		s.log.Warn("Failed to persist log event", err, map[string]interface{}{
			"caller_function": ev.CallerFunction,
		})
		return
	}

	if s.breaker.failure() {
		s.log.Warn("Pausing database logging after consecutive connection failures", err, map[string]interface{}{
			"threshold": s.cfg.FailureThreshold,
			"pause":     s.cfg.PauseWindow.String(),
		})
		return
	}
	s.log.Warn("Failed to persist log event, database connection error", err, map[string]interface{}{
		"caller_function": ev.CallerFunction,
	})
}

func (s *Sink) persist(ctx context.Context, ev Event) error {
	metadata, err := encodeMetadata(ev.Metadata)
	if err != nil {
		return err
	}

	return s.runner.Do(ctx, s.cfg.Retry, func(ctx context.Context, h *postgres.Handle) error {
		return h.Session(ctx, func(tx *gorm.DB) error {
			entry := Entry{
				UserID:         s.resolveUser(tx, ev.UserID),
				ScreenName:     ev.ScreenName,
				CallerFunction: ev.CallerFunction,
				LogType:        string(ev.LogType),
				Message:        ev.Message,
				Metadata:       metadata,
				CreatedAt:      s.now().UTC(),
			}
			return tx.Table(s.cfg.TableName).Create(&entry).Error
		})
	})
}

// resolveUser returns id when the user still exists and nil otherwise. A
// failed lookup also yields nil; the insert then reports any real problem.
func (s *Sink) resolveUser(tx *gorm.DB, id *int64) *int64 {
	if id == nil {
		return nil
	}

	var count int64
	if err := tx.Table(s.cfg.UsersTable).Where("id = ?", *id).Count(&count).Error; err != nil {
		s.log.Debug("User lookup for log event failed, storing null reference", err, map[string]interface{}{
			"user_id": *id,
		})
		return nil
	}
	if count == 0 {
		return nil
	}
	v := *id
	return &v
}

func (s *Sink) observe(duration time.Duration, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "auditlog",
		Operation:   "persist",
		Resource:    s.cfg.TableName,
		SubResource: s.classifier.Classify(err).String(),
		Duration:    duration,
		Error:       err,
	})
}
