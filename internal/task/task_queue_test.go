package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskQueue(t *testing.T) {
	logger := setupTestLogger()

	queue := NewTaskQueue(10, logger)
	assert.NotNil(t, queue)
	assert.Equal(t, 10, queue.Cap())
	assert.Equal(t, 0, queue.Len())
	assert.False(t, queue.closed)

	// Capacity is never below one
	assert.Equal(t, 1, NewTaskQueue(0, logger).Cap())
}

func TestEnqueue(t *testing.T) {
	queue := NewTaskQueue(2, setupTestLogger())

	require.NoError(t, queue.Enqueue(uuid.New()))
	require.NoError(t, queue.Enqueue(uuid.New()))

	// Test queue full
	err := queue.Enqueue(uuid.New())
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Contains(t, err.Error(), "queue capacity 2 reached")
	assert.Equal(t, 2, queue.Len())

	// Dequeue one item to make space
	_, err = queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)

	assert.NoError(t, queue.Enqueue(uuid.New()))
}

func TestDequeueFIFO(t *testing.T) {
	queue := NewTaskQueue(5, setupTestLogger())

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, queue.Enqueue(id))
	}

	for _, want := range ids {
		got, err := queue.Dequeue(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestDequeueTimeout(t *testing.T) {
	queue := NewTaskQueue(1, setupTestLogger())

	start := time.Now()
	id, err := queue.Dequeue(context.Background(), 20*time.Millisecond)

	assert.ErrorIs(t, err, ErrDequeueTimeout)
	assert.Equal(t, uuid.Nil, id)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestDequeueContextCancelled(t *testing.T) {
	queue := NewTaskQueue(1, setupTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := queue.Dequeue(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose(t *testing.T) {
	queue := NewTaskQueue(10, setupTestLogger())

	id := uuid.New()
	require.NoError(t, queue.Enqueue(id))

	queue.Close()
	assert.True(t, queue.closed)

	// Try to enqueue after closing
	err := queue.Enqueue(uuid.New())
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Make sure we can still drain the queue
	got, err := queue.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = queue.Dequeue(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrQueueClosed)

	// Closing twice is safe
	assert.NotPanics(t, queue.Close)
}
