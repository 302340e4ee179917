package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubSource always hands out the same handle and counts calls.
type stubSource struct {
	mu         sync.Mutex
	handle     *Handle
	acquireErr []error
	acquires   int
	reconnects int
}

func (s *stubSource) Acquire(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acquires++
	if len(s.acquireErr) > 0 {
		err := s.acquireErr[0]
		s.acquireErr = s.acquireErr[1:]
		return nil, err
	}
	return s.handle, nil
}

func (s *stubSource) Reconnect(ctx context.Context) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnects++
	return s.handle, nil
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return r.err
}

func newStubExecutor(src *stubSource, rec *sleepRecorder, opts ...ExecutorOption) *Executor {
	return NewExecutor(src, append([]ExecutorOption{WithSleep(rec.sleep)}, opts...)...)
}

func TestDoRetriesConnectionErrorsLinearly(t *testing.T) {
	src := &stubSource{handle: &Handle{}}
	rec := &sleepRecorder{}
	exec := newStubExecutor(src, rec)

	var errs []error
	err := exec.Do(context.Background(), RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}, func(ctx context.Context, h *Handle) error {
		e := fmt.Errorf("attempt %d: connection refused", len(errs)+1)
		errs = append(errs, e)
		return e
	})

	require.Len(t, errs, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	assert.Equal(t, 2, src.reconnects)
	assert.Equal(t, 3, src.acquires)

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.ErrorIs(t, err, errs[2])
	assert.NotErrorIs(t, err, errs[1])
	assert.Contains(t, err.Error(), "attempt 3")
}

func TestDoReturnsOtherErrorsImmediately(t *testing.T) {
	src := &stubSource{handle: &Handle{}}
	rec := &sleepRecorder{}
	exec := newStubExecutor(src, rec)

	want := errors.New(`duplicate key value violates unique constraint "users_email_key"`)
	attempts := 0
	err := exec.Do(context.Background(), DefaultRetryPolicy, func(ctx context.Context, h *Handle) error {
		attempts++
		return want
	})

	assert.Equal(t, 1, attempts)
	assert.Same(t, want, err)
	assert.Zero(t, src.reconnects)
	assert.Empty(t, rec.delays)
}

func TestDoRecoversFromTransientError(t *testing.T) {
	src := &stubSource{handle: &Handle{}}
	rec := &sleepRecorder{}
	exec := newStubExecutor(src, rec)

	attempts := 0
	err := exec.Do(context.Background(), RetryPolicy{MaxAttempts: 2, BaseDelay: 500 * time.Millisecond}, func(ctx context.Context, h *Handle) error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: "57P01", Message: "terminating connection due to administrator command"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, src.reconnects)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, rec.delays)
}

func TestDoCountsAcquireFailureAsAttempt(t *testing.T) {
	src := &stubSource{handle: &Handle{}, acquireErr: []error{ErrPoolTimeout}}
	rec := &sleepRecorder{}
	exec := newStubExecutor(src, rec)

	ran := 0
	err := exec.Do(context.Background(), DefaultRetryPolicy, func(ctx context.Context, h *Handle) error {
		ran++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.Equal(t, 2, src.acquires)
	assert.Equal(t, 1, src.reconnects)
}

func TestDoStopsWhenContextEndsDuringBackoff(t *testing.T) {
	src := &stubSource{handle: &Handle{}}
	rec := &sleepRecorder{err: context.Canceled}
	exec := newStubExecutor(src, rec)

	opErr := ErrConnectionClosed
	attempts := 0
	err := exec.Do(context.Background(), DefaultRetryPolicy, func(ctx context.Context, h *Handle) error {
		attempts++
		return opErr
	})

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, opErr)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}

func TestDoSingleAttemptPolicy(t *testing.T) {
	src := &stubSource{handle: &Handle{}}
	rec := &sleepRecorder{}
	exec := newStubExecutor(src, rec)

	err := exec.Do(context.Background(), RetryPolicy{MaxAttempts: 0}, func(ctx context.Context, h *Handle) error {
		return ErrConnectionClosed
	})

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Zero(t, src.reconnects)
	assert.Empty(t, rec.delays)
}

func TestDoUsesConfiguredClassifier(t *testing.T) {
	src := &stubSource{handle: &Handle{}}
	rec := &sleepRecorder{}
	exec := newStubExecutor(src, rec, WithExecutorClassifier(NewClassifier("tenant shard offline")))

	attempts := 0
	err := exec.Do(context.Background(), RetryPolicy{MaxAttempts: 2}, func(ctx context.Context, h *Handle) error {
		attempts++
		return errors.New("Tenant shard offline")
	})

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 2, attempts)
}

func TestDoObservesEachAttempt(t *testing.T) {
	obs := &TestObserver{}
	src := &stubSource{handle: &Handle{}}
	exec := newStubExecutor(src, &sleepRecorder{}, WithExecutorObserver(obs))

	attempts := 0
	_ = exec.Do(context.Background(), RetryPolicy{MaxAttempts: 2}, func(ctx context.Context, h *Handle) error {
		attempts++
		if attempts == 1 {
			return ErrPoolTimeout
		}
		return nil
	})

	ops := obs.GetOperations()
	require.Len(t, ops, 2)
	assert.Equal(t, "attempt", ops[0].Operation)
	assert.Equal(t, "connection", ops[0].SubResource)
	assert.ErrorIs(t, ops[0].Error, ErrPoolTimeout)
	assert.NoError(t, ops[1].Error)
}

func TestWithRetryReturnsValue(t *testing.T) {
	src := &stubSource{handle: &Handle{generation: 7}}
	exec := newStubExecutor(src, &sleepRecorder{})

	got, err := WithRetry(context.Background(), exec, func(ctx context.Context, h *Handle) (uint64, error) {
		return h.Generation(), nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7, got)
}

func TestWithRetryZeroValueOnFailure(t *testing.T) {
	src := &stubSource{handle: &Handle{}}
	exec := newStubExecutor(src, &sleepRecorder{})

	got, err := WithRetry(context.Background(), exec, func(ctx context.Context, h *Handle) (string, error) {
		return "partial", errors.New("invalid input syntax for type integer")
	}, RetryPolicy{MaxAttempts: 5})
	require.Error(t, err)
	assert.Empty(t, got)
}

func TestRetryPolicyNormalizeAndDelay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: -2, BaseDelay: -time.Second}.normalize()
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Zero(t, p.BaseDelay)

	assert.Equal(t, 3*time.Second, DefaultRetryPolicy.delay(3))
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}

// A failed keep-alive probe does not force a reconnect: the next real
// operation runs on the same handle and succeeds.
func TestWithRetryAfterFailedProbe(t *testing.T) {
	f := newFakeConnector(t)
	s := newTestSupervisor(t, f)
	exec := NewExecutor(s, WithSleep((&sleepRecorder{}).sleep))

	h, err := s.Acquire(context.Background())
	require.NoError(t, err)
	_, mock := f.handle(0)

	mock.ExpectExec("SELECT 1").WillReturnError(errors.New("server closed the connection unexpectedly"))
	s.probe(h)

	mock.ExpectExec(`UPDATE "tenants"`).WillReturnResult(sqlmock.NewResult(0, 1))
	affected, err := WithRetry(context.Background(), exec, func(ctx context.Context, h *Handle) (int64, error) {
		var n int64
		err := h.Session(ctx, func(tx *gorm.DB) error {
			res := tx.Exec(`UPDATE "tenants" SET "active" = false WHERE "id" = ?`, 42)
			n = res.RowsAffected
			return res.Error
		})
		return n, err
	})

	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.EqualValues(t, 1, f.calls.Load())
	assert.EqualValues(t, 1, s.Generation())
	assert.NoError(t, mock.ExpectationsWereMet())
}

// When another caller already replaced the failed handle the retry runs on
// that handle instead of tearing it down again.
func TestDoSkipsReconnectWhenHandleAlreadyReplaced(t *testing.T) {
	f := newFakeConnector(t)
	s := newTestSupervisor(t, f)
	rec := &sleepRecorder{}
	exec := NewExecutor(s, WithSleep(rec.sleep))

	var seen []uint64
	err := exec.Do(context.Background(), DefaultRetryPolicy, func(ctx context.Context, h *Handle) error {
		seen = append(seen, h.Generation())
		if len(seen) == 1 {
			_, err := s.Reconnect(ctx)
			require.NoError(t, err)
			return ErrConnectionClosed
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seen)
	assert.EqualValues(t, 2, f.calls.Load())
	assert.EqualValues(t, 2, s.Generation())
}

// A connection drop mid-operation reconnects through the supervisor and the
// retry lands on the new handle.
func TestWithRetryReconnectsThroughSupervisor(t *testing.T) {
	f := newFakeConnector(t)
	s := newTestSupervisor(t, f)
	rec := &sleepRecorder{}
	exec := NewExecutor(s, WithSleep(rec.sleep))

	_, err := s.Acquire(context.Background())
	require.NoError(t, err)

	var seen []uint64
	err = exec.Do(context.Background(), DefaultRetryPolicy, func(ctx context.Context, h *Handle) error {
		seen = append(seen, h.Generation())
		if len(seen) == 1 {
			return ErrConnectionClosed
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, seen)
	assert.EqualValues(t, 2, f.calls.Load())
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}
