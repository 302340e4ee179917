package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantdesk/platform/v1/logger"
	"github.com/tenantdesk/platform/v1/postgres"
)

func TestServerStartAndShutdown(t *testing.T) {
	handler := NewRouter(&stubClient{state: postgres.StateReady}, logger.NewNop())
	s := NewServer(Config{Address: "127.0.0.1:0"}, handler, logger.NewNop())

	require.NoError(t, s.Start())
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestServerStartBindError(t *testing.T) {
	bad := NewServer(Config{Address: "127.0.0.1:-1"}, http.NotFoundHandler(), logger.NewNop())
	assert.Error(t, bad.Start())
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultAddress, cfg.Address)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
