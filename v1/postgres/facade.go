package postgres

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

// SyncClient gives call sites that cannot wait for initialization a value they
// can hold from startup. Its data accessors succeed only once the supervisor
// has a live handle and otherwise return a *NotInitializedError naming the
// accessor. Close and String never fail.
//
// SyncClient always reads the supervisor's current handle, so it follows
// reconnects. Real work should go through Supervisor.Acquire or an Executor.
type SyncClient struct {
	supervisor *Supervisor
}

// Sync returns the synchronous accessor for s.
func (s *Supervisor) Sync() SyncClient {
	return SyncClient{supervisor: s}
}

// Ready reports whether a live handle is installed.
func (c SyncClient) Ready() bool {
	h, _ := c.live()
	return h != nil
}

// Handle returns the live handle.
func (c SyncClient) Handle() (*Handle, error) {
	return c.Member("Handle")
}

// DB returns the live gorm client.
func (c SyncClient) DB() (*gorm.DB, error) {
	h, err := c.Member("DB")
	if err != nil {
		return nil, err
	}
	return h.db, nil
}

// SQL returns the live database/sql pool.
func (c SyncClient) SQL() (*sql.DB, error) {
	h, err := c.Member("SQL")
	if err != nil {
		return nil, err
	}
	return h.sqlDB, nil
}

// Pool returns the live pgx pool.
func (c SyncClient) Pool() (*pgxpool.Pool, error) {
	h, err := c.Member("Pool")
	if err != nil {
		return nil, err
	}
	if h.pool == nil {
		return nil, fmt.Errorf("postgres: handle generation %d has no pgx pool", h.generation)
	}
	return h.pool, nil
}

// Member returns the live handle on behalf of the named accessor, or a
// *NotInitializedError carrying name.
func (c SyncClient) Member(name string) (*Handle, error) {
	h, err := c.live()
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &NotInitializedError{Member: name}
	}
	return h, nil
}

// Close is a no-op. The supervisor owns the handle's lifecycle.
func (c SyncClient) Close() error {
	return nil
}

// String describes the accessor's state without touching the network.
func (c SyncClient) String() string {
	if c.supervisor == nil {
		return "postgres.SyncClient(unbound)"
	}
	state := c.supervisor.State()
	if state == StateReady {
		return fmt.Sprintf("postgres.SyncClient(%s, generation %d)", state, c.supervisor.Generation())
	}
	return fmt.Sprintf("postgres.SyncClient(%s)", state)
}

func (c SyncClient) live() (*Handle, error) {
	if c.supervisor == nil {
		return nil, nil
	}
	return c.supervisor.current()
}
