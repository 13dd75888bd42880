package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_Order(t *testing.T) {
	h := NewHandler()
	var order []string
	add := func(name string, prio int) {
		h.RegisterFunc(name, prio, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}
	add("broker", PriorityBroker)
	add("http", PriorityHTTP)
	add("views", PriorityLiveViews)
	add("http2", PriorityHTTP)

	require.NoError(t, h.Shutdown(context.Background()))
	assert.Equal(t, []string{"http", "http2", "views", "broker"}, order)
	assert.True(t, h.Closed())

	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed")
	}

	assert.ErrorIs(t, h.Shutdown(context.Background()), ErrAlreadyClosed)
}

func TestShutdown_JoinsErrors(t *testing.T) {
	h := NewHandler()
	boom := errors.New("boom")
	ran := false
	h.RegisterFunc("a", 1, func(context.Context) error { return boom })
	h.RegisterFunc("b", 2, func(context.Context) error { ran = true; return nil })

	err := h.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: boom")
	assert.True(t, ran)
}

func TestShutdown_Timeout(t *testing.T) {
	h := NewHandler(WithTimeout(10 * time.Millisecond))
	second := false
	h.RegisterFunc("slow", 1, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	h.RegisterFunc("after", 2, func(context.Context) error { second = true; return nil })

	err := h.Shutdown(context.Background())
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.False(t, second)
}

func TestWait_Signal(t *testing.T) {
	h := NewHandler(WithSignals(syscall.SIGUSR1))
	ran := make(chan struct{})
	h.RegisterFunc("hook", 1, func(context.Context) error {
		close(ran)
		return nil
	})

	errc := make(chan error, 1)
	go func() { errc <- h.Wait(context.Background()) }()

	// Give Wait time to install the handler.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return")
	}
	<-ran
}

func TestWait_ContextCanceled(t *testing.T) {
	h := NewHandler(WithSignals(syscall.SIGUSR2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, h.Wait(ctx))
	assert.True(t, h.Closed())
}
