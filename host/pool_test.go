package host_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/demopy-gb-jj/demopy/domain/entities"
	"github.com/demopy-gb-jj/demopy/host"
	"github.com/demopy-gb-jj/demopy/internal/wasmtest"
)

func newPool(t *testing.T, size int, opts ...host.Option) (*host.Pool, *host.Executor) {
	t.Helper()

	exec, _ := newExecutor(t, opts...)
	pool, err := host.NewPool(context.Background(), exec, demoGuest(t, wasmtest.GuestOptions{}), size)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Close(context.Background())
	})
	return pool, exec
}

func TestPool_DefaultSize(t *testing.T) {
	cfg := entities.DefaultHostConfig()
	cfg.PoolSize = 3

	pool, _ := newPool(t, 0, host.WithConfig(cfg))
	assert.Equal(t, 3, pool.Size())
}

func TestPool_ConcurrentCallers(t *testing.T) {
	pool, _ := newPool(t, 4)

	g, ctx := errgroup.WithContext(context.Background())
	for n := int64(0); n < 32; n++ {
		n := n
		g.Go(func() error {
			return pool.Do(ctx, func(inst *host.Instance) error {
				sum, err := inst.Add(ctx, n, n)
				if err != nil {
					return err
				}
				if sum != 2*n {
					return fmt.Errorf("add(%d, %d) = %d", n, n, sum)
				}

				total, err := inst.SumList(ctx, []int64{n, 1, 2})
				if err != nil {
					return err
				}
				if total != n+3 {
					return fmt.Errorf("sum_list = %d, want %d", total, n+3)
				}
				return nil
			})
		})
	}

	require.NoError(t, g.Wait())
}

func TestPool_DoReturnsCallbackError(t *testing.T) {
	pool, _ := newPool(t, 1)

	err := pool.Do(context.Background(), func(*host.Instance) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	// The instance went back to the pool.
	err = pool.Do(context.Background(), func(inst *host.Instance) error {
		_, err := inst.Hello(context.Background())
		return err
	})
	assert.NoError(t, err)
}

func TestPool_DoWaitsForContext(t *testing.T) {
	pool, _ := newPool(t, 1)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- pool.Do(context.Background(), func(*host.Instance) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Do(ctx, func(*host.Instance) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
}

func TestPool_ReplacesInterruptedInstance(t *testing.T) {
	cfg := entities.DefaultHostConfig()
	cfg.CallTimeout = 50 * time.Millisecond
	pool, _ := newPool(t, 1, host.WithConfig(cfg))
	ctx := context.Background()

	var first string
	err := pool.Do(ctx, func(inst *host.Instance) error {
		first = inst.Name()
		_, err := inst.Power(ctx, 1, 1e12)
		return err
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	err = pool.Do(ctx, func(inst *host.Instance) error {
		assert.NotEqual(t, first, inst.Name())
		assert.False(t, inst.Closed())

		sum, err := inst.Add(ctx, 20, 22)
		assert.Equal(t, int64(42), sum)
		return err
	})
	require.NoError(t, err)
}

func TestPool_Close(t *testing.T) {
	exec, _ := newExecutor(t)
	pool, err := host.NewPool(context.Background(), exec, demoGuest(t, wasmtest.GuestOptions{}), 2)
	require.NoError(t, err)

	require.NoError(t, pool.Close(context.Background()))
	assert.NoError(t, pool.Close(context.Background()), "second close is a no-op")

	err = pool.Do(context.Background(), func(*host.Instance) error { return nil })
	assert.ErrorIs(t, err, host.ErrPoolClosed)
}

func TestPool_InvalidModule(t *testing.T) {
	exec, _ := newExecutor(t)

	_, err := host.NewPool(context.Background(), exec, []byte{0x00, 0x61, 0x73}, 2)
	assert.Error(t, err)
}
