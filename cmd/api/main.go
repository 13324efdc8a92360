package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"example.com/reports/internal/api"
	"example.com/reports/internal/config"
	"example.com/reports/internal/domain"
	"example.com/reports/internal/persistence/mysql"
	"example.com/reports/internal/subdomain"
	httptransport "example.com/reports/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg.Debug)

	registry, err := subdomain.LoadFile(cfg.Subdomain.File)
	if err != nil {
		logger.Warn().Err(err).Str("file", cfg.Subdomain.File).Msg("subdomain map unreadable, starting with empty registry")
	}
	if registry.Len() == 0 {
		logger.Warn().Str("file", cfg.Subdomain.File).Msg("no subdomains configured")
	}

	connector := mysql.NewConnector(cfg.Database)
	service := domain.NewService(registry, connector, cfg.Report.Concurrency, logger)

	handler := api.NewHandler(service, cfg.Report.Timeout, cfg.Report.ProbeSample)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	stack := requestLogger(logger, corsMiddleware(cfg.CORS.AllowedOrigins, mux))

	server := httptransport.NewServer(cfg.Server, stack)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address).
			Int("subdomains", registry.Len()).
			Msg("reports service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-shutdownCh

	if err := httptransport.Shutdown(server); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	var out = zerolog.New(os.Stderr)
	if debug {
		out = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return out.Level(level).With().Timestamp().Str("service", "reports").Logger()
}

// corsMiddleware reflects the request origin when it is allowed; "*" allows
// everyone, which is the default for this internal tool.
func corsMiddleware(allowed []string, next http.Handler) http.Handler {
	allowAll := false
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		allowedSet[origin] = struct{}{}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowAll {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else if _, ok := allowedSet[origin]; ok && origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
