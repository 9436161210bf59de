package indexer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLock_ReleasesIdleKeys(t *testing.T) {
	l := NewKeyLock()
	unlock, err := l.LockAll(context.Background(), []string{"dispute:1:3", "task:1:42", "task:1:42"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dispute:1:3", "task:1:42"}, l.Held())

	unlock()
	unlock()
	assert.Empty(t, l.Held())
}

func TestKeyLock_BlocksSameKey(t *testing.T) {
	l := NewKeyLock()
	unlock, err := l.Lock(context.Background(), "task:1:1")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(context.Background(), "task:1:1")
		if err == nil {
			close(acquired)
			second()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestKeyLock_PartialFailureReleases(t *testing.T) {
	l := NewKeyLock()
	hold, err := l.Lock(context.Background(), "task:1:2")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.LockAll(ctx, []string{"dispute:1:9", "task:1:2"})
	require.Error(t, err)

	hold()
	assert.Empty(t, l.Held())
}
