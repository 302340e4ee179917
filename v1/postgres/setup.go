package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/observability"
)

// singleflight keys; one flight of each kind may run at a time.
const (
	flightAcquire   = "acquire"
	flightReconnect = "reconnect"
)

// State describes the supervisor's initialization state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// Connector opens a new Handle. dsn is the connection string with pool
// parameters already applied. The default is connectToPostgres.
type Connector func(ctx context.Context, cfg Config, dsn string) (*Handle, error)

// Supervisor owns the single live connection handle of the process.
//
// It creates the handle lazily on the first Acquire, coalesces concurrent
// initializations and reconnects into one flight each, probes the live handle
// periodically, and tears it down on GracefulShutdown. All methods are safe
// for concurrent use.
type Supervisor struct {
	cfg      Config
	dsn      string
	logger   logger.Logger
	observer observability.Observer
	connect  Connector

	flights singleflight.Group

	mu           sync.Mutex
	handle       *Handle
	initializing bool
	closed       bool
	generation   uint64

	lastHealthy  atomic.Int64
	keepAliveWG  sync.WaitGroup
	shutdownOnce sync.Once
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver reports connect, reconnect and keep-alive operations.
func WithObserver(o observability.Observer) Option {
	return func(s *Supervisor) {
		s.observer = o
	}
}

// WithConnector replaces the function that opens handles.
func WithConnector(c Connector) Option {
	return func(s *Supervisor) {
		if c != nil {
			s.connect = c
		}
	}
}

// NewSupervisor validates cfg and prepares the connection string. It does not
// connect; the first Acquire does.
func NewSupervisor(cfg Config, opts ...Option) (*Supervisor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	dsn, err := augmentConnectionString(cfg.URL, cfg.ConnectionDetails)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:     cfg,
		dsn:     dsn,
		logger:  logger.NewNop(),
		connect: connectToPostgres,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// connectToPostgres builds a pgx pool from dsn, exposes it as database/sql,
// opens gorm over it and verifies the server answers within the connect timeout.
func connectToPostgres(ctx context.Context, cfg Config, dsn string) (*Handle, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	sqlDB.SetMaxOpenConns(int(poolConfig.MaxConns))
	sqlDB.SetMaxIdleConns(int(poolConfig.MaxConns))

	database, err := gorm.Open(
		postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{
			TranslateError:         true,
			SkipDefaultTransaction: true,
			DisableAutomaticPing:   true,
			Logger:                 gormlogger.Discard,
		})
	if err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionDetails.ConnectTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to reach PostgreSQL database: %w", err)
	}

	return &Handle{
		db:             database,
		sqlDB:          sqlDB,
		pool:           pool,
		closePool:      pool.Close,
		acquireTimeout: cfg.ConnectionDetails.PoolTimeout,
		stop:           make(chan struct{}),
	}, nil
}

// Acquire returns the live handle, initializing it if needed.
//
// With a live handle it returns immediately without touching the network.
// Concurrent callers during initialization share one attempt. If ctx ends
// first the caller stops waiting; the shared attempt keeps running for the
// others. A failed attempt leaves the supervisor uninitialized so the next
// caller starts over.
func (s *Supervisor) Acquire(ctx context.Context) (*Handle, error) {
	for retried := false; ; retried = true {
		if h, err := s.current(); h != nil || err != nil {
			return h, err
		}
		h, err := s.await(ctx, flightAcquire, s.initialize)
		// A finished flight can still hand out a handle that was invalidated
		// before its key was released. Start over once.
		if err != nil || !h.Closed() || retried {
			return h, err
		}
	}
}

// ReconnectFrom reconnects only if failed is still the live handle. When
// another caller has already replaced it, the current handle is returned and
// the healthy connection is left alone. A nil failed behaves like Reconnect.
func (s *Supervisor) ReconnectFrom(ctx context.Context, failed *Handle) (*Handle, error) {
	if failed != nil {
		s.mu.Lock()
		live, closed := s.handle, s.closed
		s.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		if live != nil && live != failed {
			return live, nil
		}
	}
	return s.Reconnect(ctx)
}

// Reconnect discards the live handle and acquires a new one. Concurrent calls
// share a single reconnect sequence and all observe its result. The replaced
// handle is closed in the background; operations still running on it may
// finish there, and the new handle does not wait for them.
func (s *Supervisor) Reconnect(ctx context.Context) (*Handle, error) {
	return s.await(ctx, flightReconnect, func(flightCtx context.Context) (*Handle, error) {
		start := time.Now()
		s.invalidate()
		h, err := s.Acquire(flightCtx)
		s.observeOperation("reconnect", time.Since(start), err)
		if err != nil {
			s.logger.Error("PostgreSQL reconnection failed", err, nil)
			return nil, err
		}
		s.logger.Info("Successfully reconnected to PostgreSQL database", nil, map[string]interface{}{
			"generation": h.Generation(),
		})
		return h, nil
	})
}

// await joins or starts the flight named key and waits for it or for ctx.
// The flight itself runs detached from the caller's cancellation.
func (s *Supervisor) await(ctx context.Context, key string, fn func(context.Context) (*Handle, error)) (*Handle, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		return fn(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// current returns the live handle, ErrClosed after shutdown, or (nil, nil).
func (s *Supervisor) current() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.handle, nil
}

// initialize runs inside the acquire flight.
func (s *Supervisor) initialize(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	// A previous flight may have finished between the caller's check and this one.
	if s.handle != nil {
		h := s.handle
		s.mu.Unlock()
		return h, nil
	}
	s.initializing = true
	s.mu.Unlock()

	start := time.Now()
	h, err := s.connect(ctx, s.cfg, s.dsn)
	s.observeOperation("connect", time.Since(start), err)

	s.mu.Lock()
	s.initializing = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Failed to initialize PostgreSQL connection", err, map[string]interface{}{
			"url": redact(s.cfg.URL),
		})
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}
	if s.closed {
		s.mu.Unlock()
		_ = h.close()
		return nil, ErrClosed
	}
	s.generation++
	h.generation = s.generation
	s.handle = h
	s.startKeepAlive(h)
	s.mu.Unlock()

	s.markHealthy()
	s.logger.Info("Successfully connected to PostgreSQL database", nil, map[string]interface{}{
		"generation": h.generation,
		"pool_size":  s.cfg.ConnectionDetails.PoolSize,
	})
	return h, nil
}

// invalidate detaches the live handle, retires it and releases its pools in
// the background.
func (s *Supervisor) invalidate() {
	s.mu.Lock()
	old := s.handle
	s.handle = nil
	s.mu.Unlock()

	if old == nil {
		return
	}
	old.retire()
	go func() {
		if err := old.close(); err != nil {
			s.logger.Debug("Ignoring error while closing replaced PostgreSQL handle", err, map[string]interface{}{
				"generation": old.generation,
			})
		}
	}()
}

// CheckConnection acquires the handle and runs the liveness statement.
// It reports false on any failure.
func (s *Supervisor) CheckConnection(ctx context.Context) bool {
	h, err := s.Acquire(ctx)
	if err != nil {
		s.logger.Warn("PostgreSQL connection check failed to acquire a handle", err, nil)
		return false
	}
	if err := h.ping(ctx); err != nil {
		s.logger.Warn("PostgreSQL connection check failed", err, map[string]interface{}{
			"generation": h.generation,
		})
		return false
	}
	s.markHealthy()
	return true
}

// State reports the current initialization state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return StateClosed
	case s.handle != nil:
		return StateReady
	case s.initializing:
		return StateInitializing
	default:
		return StateUninitialized
	}
}

// Generation returns the generation of the live handle, or 0 without one.
func (s *Supervisor) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.generation
}

// LastHealthyAt returns the time of the last successful connect or probe.
// It is the zero time before the first success.
func (s *Supervisor) LastHealthyAt() time.Time {
	ns := s.lastHealthy.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (s *Supervisor) markHealthy() {
	s.lastHealthy.Store(time.Now().UnixNano())
}

// GracefulShutdown stops the keep-alive loop and closes the live handle.
// It is idempotent and safe to call on a supervisor that never connected.
// Initializations that finish afterwards close their handle and return ErrClosed.
func (s *Supervisor) GracefulShutdown() error {
	var err error
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		h := s.handle
		s.handle = nil
		s.mu.Unlock()

		if h != nil {
			if cerr := h.close(); cerr != nil && !errors.Is(cerr, ErrConnectionClosed) {
				err = fmt.Errorf("failed to close PostgreSQL handle: %w", cerr)
			}
		}
		s.keepAliveWG.Wait()
		s.logger.Info("PostgreSQL supervisor shut down", nil, nil)
	})
	return err
}
