// Package httptransport builds the HTTP server for the reports API.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"example.com/reports/internal/config"
)

// shutdownGrace is how long in-flight report requests get to finish once a
// stop signal arrives. Report generation is capped separately by the report
// timeout, so this only needs to cover response writing.
const shutdownGrace = 15 * time.Second

// NewServer builds the *http.Server from service configuration.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Shutdown stops the server gracefully, waiting up to shutdownGrace for
// in-flight requests.
func Shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(ctx)
}
