package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/bounty-indexer/internal/event"
	"github.com/ignatzorin/bounty-indexer/internal/pkg/apperror"
)

func forward[P event.Payload](r *Registry, h Handler) {
	Register(r, func(ctx context.Context, env event.Envelope, _ P) (bool, error) {
		return h(ctx, env)
	})
}

func registerAll(r *Registry, h Handler) {
	forward[*event.TaskCreated](r, h)
	forward[*event.WorkSubmitted](r, h)
	forward[*event.WinnerSelected](r, h)
	forward[*event.TaskCompleted](r, h)
	forward[*event.TaskRefunded](r, h)
	forward[*event.TaskCancelled](r, h)
	forward[*event.DisputeStarted](r, h)
	forward[*event.VoteSubmitted](r, h)
	forward[*event.AgentRegistered](r, h)
}

func newTestDispatcher(t *testing.T, h Handler) *Dispatcher {
	t.Helper()
	r := NewRegistry()
	registerAll(r, h)
	d, err := NewDispatcher(r, NewKeyLock())
	require.NoError(t, err)
	return d
}

func refunded(taskID string) event.RawEvent {
	return event.RawEvent{
		Type:            "TaskRefunded",
		ChainID:         1,
		Args:            json.RawMessage(`{"taskId":"` + taskID + `","creator":"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed","refundAmount":"1"}`),
		TransactionHash: "0x01",
	}
}

func TestNewDispatcher_RequiresEveryType(t *testing.T) {
	r := NewRegistry()
	Register(r, func(context.Context, event.Envelope, *event.TaskCreated) (bool, error) { return true, nil })

	_, err := NewDispatcher(r, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TaskCompleted")
}

func TestRegister_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	fn := func(context.Context, event.Envelope, *event.TaskCreated) (bool, error) { return true, nil }
	Register(r, fn)
	assert.Panics(t, func() { Register(r, fn) })
}

func TestDispatch_Unroutable(t *testing.T) {
	d := newTestDispatcher(t, func(context.Context, event.Envelope) (bool, error) { return true, nil })

	err := d.DispatchRaw(context.Background(), event.RawEvent{Type: "Nope", TransactionHash: "0x1", Args: json.RawMessage(`{}`)})
	assert.Equal(t, apperror.ErrCodeUnroutableEvent, apperror.CodeOf(err))
}

func TestDispatch_PropagatesErrorKind(t *testing.T) {
	transient := apperror.EntityNotFound("task", "task:1:5")
	d := newTestDispatcher(t, func(context.Context, event.Envelope) (bool, error) { return false, transient })

	err := d.DispatchRaw(context.Background(), refunded("5"))
	assert.True(t, apperror.IsTransient(err))
	assert.ErrorIs(t, err, transient)
}

func TestDispatch_RecoversPanic(t *testing.T) {
	d := newTestDispatcher(t, func(context.Context, event.Envelope) (bool, error) { panic("boom") })

	err := d.DispatchRaw(context.Background(), refunded("5"))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(err))
	assert.False(t, apperror.IsTransient(err))
}

func TestDispatch_SerializesSameEntity(t *testing.T) {
	var inFlight, maxInFlight int32
	d := newTestDispatcher(t, func(context.Context, event.Envelope) (bool, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return true, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.DispatchRaw(context.Background(), refunded("9")))
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
}

func TestDispatch_UnrelatedEntitiesRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan string, 2)
	d := newTestDispatcher(t, func(_ context.Context, env event.Envelope) (bool, error) {
		entered <- env.PartitionKey()
		<-release
		return true, nil
	})

	errs := make(chan error, 2)
	go func() { errs <- d.DispatchRaw(context.Background(), refunded("1")) }()
	go func() { errs <- d.DispatchRaw(context.Background(), refunded("2")) }()

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case key := <-entered:
			got[key] = true
		case <-time.After(2 * time.Second):
			t.Fatal("handlers for unrelated tasks did not run concurrently")
		}
	}
	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Len(t, got, 2)
}

func TestDispatch_LockWaitHonoursContext(t *testing.T) {
	locks := NewKeyLock()
	r := NewRegistry()
	registerAll(r, func(context.Context, event.Envelope) (bool, error) { return true, nil })
	d, err := NewDispatcher(r, locks)
	require.NoError(t, err)

	unlock, err := locks.Lock(context.Background(), "task:1:3")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = d.DispatchRaw(ctx, refunded("3"))
	assert.True(t, apperror.IsTransient(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
