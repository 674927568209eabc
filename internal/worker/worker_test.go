package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorker_RunsOnInterval(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var calls atomic.Int64
		w := New("test", 100*time.Millisecond, func(context.Context) error {
			calls.Add(1)
			return nil
		})

		require.NoError(t, w.Start())
		// First cycle runs immediately, then at 100ms, 200ms, 300ms
		time.Sleep(350 * time.Millisecond)
		synctest.Wait()
		w.Stop()

		assert.Equal(t, int64(4), calls.Load())
		assert.Equal(t, int64(4), w.Cycles())
		assert.False(t, w.IsRunning())
	})
}

func TestWorker_StartTwice(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		w := New("test", time.Second, func(context.Context) error { return nil })
		require.NoError(t, w.Start())
		defer w.Stop()

		assert.ErrorIs(t, w.Start(), ErrAlreadyStarted)
	})
}

func TestWorker_SurvivesErrorsAndPanics(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var n atomic.Int64
		var reported []error
		w := New("flaky", 10*time.Millisecond, func(context.Context) error {
			switch n.Add(1) {
			case 1:
				return errors.New("boom")
			case 2:
				panic("decoder exploded")
			default:
				return nil
			}
		}, WithErrorHandler(func(err error) { reported = append(reported, err) }))

		require.NoError(t, w.Start())
		time.Sleep(35 * time.Millisecond)
		synctest.Wait()
		w.Stop()

		assert.GreaterOrEqual(t, n.Load(), int64(3), "worker kept running after failures")
		assert.Equal(t, int64(2), w.Failures())
		require.Len(t, reported, 2)
		assert.EqualError(t, reported[0], "boom")
		var panicErr *PanicError
		require.ErrorAs(t, reported[1], &panicErr)
		assert.Equal(t, "decoder exploded", panicErr.Value)
		assert.NotEmpty(t, panicErr.Stack)
	})
}

func TestWorker_Wake(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var calls atomic.Int64
		w := New("slow", time.Hour, func(context.Context) error {
			calls.Add(1)
			return nil
		})
		require.NoError(t, w.Start())
		synctest.Wait()
		assert.Equal(t, int64(1), calls.Load())

		w.Wake()
		synctest.Wait()
		w.Stop()

		assert.Equal(t, int64(2), calls.Load())
	})
}

func TestWorker_StopCancelsCycleContext(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		started := make(chan struct{})
		w := New("blocking", time.Second, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
		require.NoError(t, w.Start())
		<-started

		w.Stop()

		<-w.Done()
		assert.Equal(t, int64(0), w.Failures(), "cancellation is not a failure")
	})
}

func TestWorker_StopWithoutStart(t *testing.T) {
	w := New("idle", time.Second, func(context.Context) error { return nil })

	w.Stop()

	select {
	case <-w.Done():
	default:
		t.Fatal("Done() should be closed for a worker that never started")
	}
}
