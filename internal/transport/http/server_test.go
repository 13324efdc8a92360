package httptransport

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/reports/internal/config"
)

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := config.ServerConfig{
		Address:      ":9001",
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  90 * time.Second,
	}
	mux := http.NewServeMux()

	server := NewServer(cfg, mux)

	require.Equal(t, ":9001", server.Addr)
	require.Equal(t, 3*time.Second, server.ReadTimeout)
	require.Equal(t, 40*time.Second, server.WriteTimeout)
	require.Equal(t, 90*time.Second, server.IdleTimeout)
	require.NotNil(t, server.Handler)
}

func TestShutdownIdleServer(t *testing.T) {
	server := NewServer(config.ServerConfig{Address: ":0"}, http.NewServeMux())
	require.NoError(t, Shutdown(server))
}
