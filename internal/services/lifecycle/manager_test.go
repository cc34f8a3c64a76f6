package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdown_ReverseOrderAndJoinedErrors(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	m.Register("postgres", func(context.Context) error {
		order = append(order, "postgres")
		return nil
	})
	m.Register("buffer", func(context.Context) error {
		order = append(order, "buffer")
		return errors.New("flush failed")
	})
	m.Register("http", func(context.Context) error {
		order = append(order, "http")
		return nil
	})

	err := m.Shutdown(context.Background())

	assert.EqualError(t, err, "flush failed")
	assert.Equal(t, []string{"http", "buffer", "postgres"}, order)
}

func TestShutdown_RunsOnce(t *testing.T) {
	m := New(time.Second, nil)
	calls := 0
	m.Register("redis", func(context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, m.Shutdown(context.Background()))
	assert.NoError(t, m.Shutdown(context.Background()))
	m.Register("late", func(context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, m.Shutdown(context.Background()))

	assert.Equal(t, 1, calls)
}

func TestShutdown_HooksSeeDeadline(t *testing.T) {
	m := New(50*time.Millisecond, nil)
	m.Register("slow", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		<-ctx.Done()
		return ctx.Err()
	})

	err := m.Shutdown(context.Background())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListen_Stop(t *testing.T) {
	m := New(time.Second, nil)
	stop := m.Listen(func() {})
	stop()
	assert.NotPanics(t, stop)
}
