package supervisor

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/cartd/internal/logging"
)

func newTestSupervisor() *Supervisor {
	return New(logging.New(logging.Config{Service: "test", Module: "supervisor"}), time.Second)
}

func TestRunStopsInReverseOrder(t *testing.T) {
	s := newTestSupervisor()

	var mu sync.Mutex
	var stopped []string

	for _, name := range []string{"first", "second", "third"} {
		name := name
		s.Register(Hook{
			Name:    name,
			OnStart: func(ctx context.Context) error { <-ctx.Done(); return nil },
			OnStop: func(ctx context.Context) error {
				mu.Lock()
				defer mu.Unlock()
				stopped = append(stopped, name)
				return nil
			},
		})
	}

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not shut down in time")
	}

	require.Equal(t, []string{"third", "second", "first"}, stopped)
}

func TestRunCancelsOnComponentFailure(t *testing.T) {
	s := newTestSupervisor()

	failing := make(chan struct{})
	s.Register(Hook{
		Name:    "failing",
		OnStart: func(ctx context.Context) error { close(failing); return errBoom },
	})

	var stoppedLong bool
	s.Register(Hook{
		Name:    "long-running",
		OnStart: func(ctx context.Context) error { <-ctx.Done(); return nil },
		OnStop:  func(ctx context.Context) error { stoppedLong = true; return nil },
	})

	err := s.Run(context.Background())
	require.NoError(t, err)
	<-failing
	require.True(t, stoppedLong)
}

var errBoom = errors.New("boom")
