// Package app wires configuration, logging, metrics and stores for the
// command-line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ltv-attribution-lab/internal/config"
	"ltv-attribution-lab/internal/logger"
	"ltv-attribution-lab/internal/observability"
)

// Env is the per-process runtime shared by all commands.
type Env struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *observability.Metrics

	server  *http.Server
	closers []func()
}

// Setup loads configuration from the command's flags, builds the logger and
// starts the metrics listener when metrics.addr is set.
func Setup(cmd *cobra.Command, name string) (*Env, error) {
	cfg, err := config.Load("", cmd.Flags())
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	env := &Env{
		Config:  cfg,
		Log:     log.Named(name),
		Metrics: observability.DefaultMetrics,
	}
	if cfg.Metrics.Addr != "" {
		env.startMetricsServer(cfg.Metrics.Addr)
	}
	return env, nil
}

// startMetricsServer serves /metrics and /health until Close.
func (e *Env) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	e.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		e.Log.Info("starting metrics server", "addr", addr)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Log.Error("metrics server error", "error", err)
		}
	}()
}

// OnClose registers fn to run on Close, in reverse order.
func (e *Env) OnClose(fn func()) {
	e.closers = append(e.closers, fn)
}

// Close releases stores, stops the metrics listener and flushes the logger.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.server.Shutdown(ctx)
	}
	e.Log.Sync()
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
