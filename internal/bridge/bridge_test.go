package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EleDiaz/LibSql.Bindings/internal/config"
)

func TestBlock(t *testing.T) {
	rt := New(config.Options{Workers: 2})

	t.Run("result", func(t *testing.T) {
		res, err := Block(rt, func(ctx context.Context) (int, error) { return 42, nil })
		require.NoError(t, err)
		assert.Equal(t, 42, res)
	})

	t.Run("error is surfaced", func(t *testing.T) {
		_, err := Block(rt, func(ctx context.Context) (string, error) { return "", errors.New("engine failed") })
		require.EqualError(t, err, "engine failed")
	})

	t.Run("panic is recovered", func(t *testing.T) {
		_, err := Block(rt, func(ctx context.Context) (int, error) { panic("boom") })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})
}

func TestBlockConcurrentCallers(t *testing.T) {
	rt := New(config.Options{Workers: 3})
	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := Block(rt, func(ctx context.Context) (int, error) {
				n := running.Add(1)
				defer running.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return i * 2, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, i*2, res)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(3), "executor must not exceed its size")
}

func TestSpawnAndDrain(t *testing.T) {
	rt := New(config.Options{Workers: 1})
	var done atomic.Int32
	for i := 0; i < 5; i++ {
		rt.Spawn(func(ctx context.Context) { done.Add(1) })
	}
	rt.Spawn(func(ctx context.Context) { panic("ignored") })
	rt.Drain()
	assert.Equal(t, int32(5), done.Load())
}

func TestEvery(t *testing.T) {
	rt := New(config.Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	rt.Every(ctx, 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("logged and ignored")
	})
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	rt.Every(context.Background(), 0, func(ctx context.Context) error {
		t.Fatal("zero interval must not schedule")
		return nil
	})
}

func TestShared(t *testing.T) {
	a, b := Shared(), Shared()
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.GreaterOrEqual(t, a.Workers(), 1)
}
