package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// Handle is the single live connection to the datastore: a gorm client over a
// database/sql pool, itself backed by a pgx pool when built by the default connector.
//
// A Handle is owned by the Supervisor. Callers may hold one for the duration
// of an operation but must obtain a fresh one from Acquire for the next;
// once replaced, a handle is closed and never handed out again.
type Handle struct {
	db             *gorm.DB
	sqlDB          *sql.DB
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	generation     uint64

	// closePool releases the pgx pool. It blocks until every connection
	// checked out of the pool has been returned.
	closePool func()

	stop       chan struct{}
	retireOnce sync.Once
	closeOnce  sync.Once
	closed     atomic.Bool
}

// NewHandle wraps an already opened gorm client. acquireTimeout bounds
// Session's wait for a pooled connection; zero means no bound beyond ctx.
func NewHandle(db *gorm.DB, acquireTimeout time.Duration) (*Handle, error) {
	if db == nil {
		return nil, errors.New("postgres: gorm client cannot be nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL database instance: %w", err)
	}
	return &Handle{
		db:             db,
		sqlDB:          sqlDB,
		acquireTimeout: acquireTimeout,
		stop:           make(chan struct{}),
	}, nil
}

// Generation numbers handles in the order the supervisor installed them, starting at 1.
func (h *Handle) Generation() uint64 {
	return h.generation
}

// DB returns the gorm client bound to ctx. Statements issued through it take
// connections from the pool without the pool timeout; prefer Session.
func (h *Handle) DB(ctx context.Context) *gorm.DB {
	return h.db.WithContext(ctx)
}

// SQL returns the underlying database/sql pool.
func (h *Handle) SQL() *sql.DB {
	return h.sqlDB
}

// Pool returns the pgx pool behind the handle, or nil for handles built with NewHandle.
func (h *Handle) Pool() *pgxpool.Pool {
	return h.pool
}

// Closed reports whether the handle has been torn down.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

// Session pins one pooled connection for the duration of fn. Obtaining the
// connection is bounded by the pool timeout and fails with ErrPoolTimeout when
// it elapses; the statements fn runs are bounded only by ctx.
func (h *Handle) Session(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if h.Closed() {
		return ErrConnectionClosed
	}

	acquireCtx := ctx
	if h.acquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, h.acquireTimeout)
		defer cancel()
	}

	conn, err := h.sqlDB.Conn(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w (waited %s): %w", ErrPoolTimeout, h.acquireTimeout, err)
		}
		if errors.Is(err, sql.ErrConnDone) || h.Closed() {
			return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		return err
	}
	defer conn.Close()

	tx := h.db.Session(&gorm.Session{Context: ctx})
	tx.Statement.ConnPool = conn
	return fn(tx)
}

// ping runs the trivial liveness statement.
func (h *Handle) ping(ctx context.Context) error {
	return h.Session(ctx, func(tx *gorm.DB) error {
		return tx.Exec("SELECT 1").Error
	})
}

// retire marks the handle closed and stops its keep-alive loop without
// waiting on connections still in use.
func (h *Handle) retire() {
	h.retireOnce.Do(func() {
		h.closed.Store(true)
		close(h.stop)
	})
}

// close retires the handle and releases its pools, waiting for in-flight
// sessions to return their connections. Safe to call more than once; only the
// first call closes the pools and its error is returned.
func (h *Handle) close() error {
	h.retire()
	var err error
	h.closeOnce.Do(func() {
		err = h.sqlDB.Close()
		if h.closePool != nil {
			h.closePool()
		}
	})
	return err
}
