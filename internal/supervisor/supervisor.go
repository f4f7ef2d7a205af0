// Package supervisor orders the cart engine's components' startup
// and shutdown, and turns SIGINT/SIGTERM into a graceful stop.
// Grounded on app/lifecycle.go's Hook/Lifecycle (ordered start,
// reverse-order stop) and app/app.go's signal-driven Run loop.
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wyfcoding/cartd/internal/logging"
)

// Hook is one component's start/stop pair. OnStart for a long-running
// component (the listener runtime, the queue, the kafka bridge) is
// expected to block until ctx is cancelled; Supervisor runs each
// OnStart in its own goroutine so one blocking hook never prevents the
// next hook from starting.
type Hook struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Supervisor starts hooks in registration order and stops them in
// reverse order once the process receives SIGINT/SIGTERM.
type Supervisor struct {
	logger          *logging.Logger
	shutdownTimeout time.Duration

	mu    sync.Mutex
	hooks []Hook
}

func New(logger *logging.Logger, shutdownTimeout time.Duration) *Supervisor {
	return &Supervisor{logger: logger.With("supervisor"), shutdownTimeout: shutdownTimeout}
}

func (s *Supervisor) Register(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Run starts every registered hook, blocks until SIGINT/SIGTERM (or
// ctx is cancelled), then calls every hook's OnStop in reverse
// registration order, each bounded by shutdownTimeout.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, h := range hooks {
		if h.OnStart == nil {
			continue
		}
		wg.Add(1)
		go func(h Hook) {
			defer wg.Done()
			s.logger.Info("starting component", "name", h.Name)
			if err := h.OnStart(runCtx); err != nil && runCtx.Err() == nil {
				s.logger.Error("component failed, shutting down", "name", h.Name, "error", err)
				cancel()
			}
		}(h)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("received shutdown signal", "signal", sig.String())
	case <-runCtx.Done():
		s.logger.Info("shutting down after component failure")
	}
	cancel()

	var firstErr error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if h.OnStop == nil {
			continue
		}
		s.logger.Info("stopping component", "name", h.Name)
		stopCtx, stopCancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := h.OnStop(stopCtx)
		stopCancel()
		if err != nil {
			s.logger.Error("component failed to stop cleanly", "name", h.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	wg.Wait()
	s.logger.Info("shutdown complete")
	return firstErr
}
