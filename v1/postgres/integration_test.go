package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// PostgresContainer represents a Postgres container for testing
type PostgresContainer struct {
	testcontainers.Container
	URL string
}

func setupPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	port, err := getFreePort()
	if err != nil {
		return nil, fmt.Errorf("could not get free port: %w", err)
	}

	portStr := fmt.Sprintf("%d", port)
	portBindings := nat.PortMap{
		"5432/tcp": []nat.PortBinding{{HostPort: portStr}},
	}

	req := testcontainers.ContainerRequest{
		Image: "postgres:15",
		Env: map[string]string{
			"POSTGRES_USER":     "tenant",
			"POSTGRES_PASSWORD": "secret",
			"POSTGRES_DB":       "tenants",
		},
		ExposedPorts: []string{"5432/tcp"},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, "5432")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	if err := waitForPostgresReady(host, mapped.Port(), 30*time.Second); err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("postgres container not ready: %w", err)
	}

	return &PostgresContainer{
		Container: c,
		URL:       fmt.Sprintf("postgres://tenant:secret@%s:%s/tenants?sslmode=disable", host, mapped.Port()),
	}, nil
}

// waitForPostgresReady polls the server through lib/pq until it answers.
func waitForPostgresReady(host, port string, timeout time.Duration) error {
	dsn := fmt.Sprintf("host=%s port=%s user=tenant password=secret dbname=tenants sslmode=disable", host, port)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("timed out after %s", timeout)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func TestSupervisorAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	pg, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	defer func() {
		if err := pg.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate container: %s", err)
		}
	}()

	sup, err := NewSupervisor(Config{
		URL: pg.URL,
		ConnectionDetails: ConnectionDetails{
			PoolSize:    1,
			PoolTimeout: 300 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, sup.GracefulShutdown()) }()

	t.Run("acquire and check", func(t *testing.T) {
		h, err := sup.Acquire(ctx)
		require.NoError(t, err)
		require.NotNil(t, h.Pool())
		assert.EqualValues(t, 1, h.Pool().Config().MaxConns)
		assert.True(t, sup.CheckConnection(ctx))
	})

	t.Run("with retry", func(t *testing.T) {
		exec := NewExecutor(sup)
		n, err := WithRetry(ctx, exec, func(ctx context.Context, h *Handle) (int, error) {
			var v int
			err := h.Session(ctx, func(tx *gorm.DB) error {
				return tx.Raw("SELECT 40 + 2").Scan(&v).Error
			})
			return v, err
		})
		require.NoError(t, err)
		assert.Equal(t, 42, n)
	})

	t.Run("pool timeout", func(t *testing.T) {
		h, err := sup.Acquire(ctx)
		require.NoError(t, err)

		held := make(chan struct{})
		release := make(chan struct{})
		go func() {
			_ = h.Session(ctx, func(tx *gorm.DB) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held

		err = h.ping(ctx)
		close(release)
		require.ErrorIs(t, err, ErrPoolTimeout)
		assert.True(t, IsConnectionError(err))
	})

	t.Run("reconnect while a session holds the old pool", func(t *testing.T) {
		old, err := sup.Acquire(ctx)
		require.NoError(t, err)

		held := make(chan struct{})
		release := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- old.Session(ctx, func(tx *gorm.DB) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held

		reconnectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		fresh, err := sup.Reconnect(reconnectCtx)
		close(release)
		require.NoError(t, err)
		assert.Equal(t, old.Generation()+1, fresh.Generation())
		require.NoError(t, <-done)
		assert.True(t, sup.CheckConnection(ctx))
	})

	t.Run("reconnect", func(t *testing.T) {
		before := sup.Generation()
		h, err := sup.Reconnect(ctx)
		require.NoError(t, err)
		assert.Equal(t, before+1, h.Generation())
		assert.True(t, sup.CheckConnection(ctx))
	})
}
