package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors returned by the connection core.
var (
	// ErrNotInitialized is matched by every NotInitializedError.
	ErrNotInitialized = errors.New("postgres: connection not initialized")

	// ErrClosed is returned once GracefulShutdown has run.
	ErrClosed = errors.New("postgres: supervisor is shut down")

	// ErrPoolTimeout is returned when no pooled connection became free within the pool timeout.
	ErrPoolTimeout = errors.New("postgres: timed out fetching a new connection from the connection pool")

	// ErrConnectionClosed is returned when an operation runs on a handle that has been replaced or closed.
	ErrConnectionClosed = errors.New("postgres: connection closed")

	// ErrRetriesExhausted wraps the last connection error after the final attempt.
	ErrRetriesExhausted = errors.New("postgres: retries exhausted")

	// ErrInvalidConfig is returned by NewSupervisor for unusable configuration.
	ErrInvalidConfig = errors.New("postgres: invalid configuration")
)

// NotInitializedError is returned by SyncClient accessors that are read before
// the supervisor has a live handle. Member names the accessor that was used.
type NotInitializedError struct {
	Member string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("postgres: %s accessed before the database connection was initialized; use Supervisor.Acquire(ctx) to wait for initialization", e.Member)
}

// Is reports whether target is ErrNotInitialized.
func (e *NotInitializedError) Is(target error) bool {
	return target == ErrNotInitialized
}

// ErrorClass is the result of classifying an operation error.
type ErrorClass int

const (
	// OtherError covers validation, constraint and logic failures. They are never retried.
	OtherError ErrorClass = iota

	// ConnectionError covers datastore reachability failures. They trigger reconnect and retry.
	ConnectionError
)

func (c ErrorClass) String() string {
	switch c {
	case ConnectionError:
		return "connection"
	default:
		return "other"
	}
}

// DefaultConnectionMarkers are matched case-insensitively against err.Error().
var DefaultConnectionMarkers = []string{
	"connection closed",
	"conn closed",
	"connection refused",
	"server closed the connection",
	"terminating connection",
	"timed out fetching a new connection",
	"connection reset by peer",
	"broken pipe",
	"unexpected eof",
	"database is closed",
}

// reconnectSQLStates are server error codes that mean the session is gone.
// Class 08 (connection exception) is matched by prefix.
var reconnectSQLStates = map[string]struct{}{
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
}

var connectionSentinels = []error{
	ErrPoolTimeout,
	ErrConnectionClosed,
	sql.ErrConnDone,
	driver.ErrBadConn,
	net.ErrClosed,
	io.ErrUnexpectedEOF,
}

// Classifier decides whether an error is a connection error.
// The zero value is not usable; use NewClassifier.
type Classifier struct {
	markers []string
}

// NewClassifier builds a Classifier. With no markers it uses DefaultConnectionMarkers.
func NewClassifier(markers ...string) *Classifier {
	if len(markers) == 0 {
		markers = DefaultConnectionMarkers
	}
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return &Classifier{markers: lowered}
}

var defaultClassifier = NewClassifier()

// Classify returns ConnectionError for reachability failures and OtherError for
// everything else, including nil.
func (c *Classifier) Classify(err error) ErrorClass {
	if err == nil {
		return OtherError
	}

	for _, sentinel := range connectionSentinels {
		if errors.Is(err, sentinel) {
			return ConnectionError
		}
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return ConnectionError
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return ConnectionError
		}
		if _, ok := reconnectSQLStates[pgErr.Code]; ok {
			return ConnectionError
		}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range c.markers {
		if strings.Contains(msg, marker) {
			return ConnectionError
		}
	}
	return OtherError
}

// IsConnectionError classifies err with the default markers.
func IsConnectionError(err error) bool {
	return defaultClassifier.Classify(err) == ConnectionError
}
