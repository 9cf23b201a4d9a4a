package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrent/server/internal/models"
)

func testBatch(ids ...int64) []*models.Property {
	batch := make([]*models.Property, len(ids))
	for i, id := range ids {
		batch[i] = &models.Property{ID: id, Price: 500}
	}
	return batch
}

func TestPushAndLen(t *testing.T) {
	q := NewListingQueue(2, logrus.New())

	require.NoError(t, q.Push(testBatch(1)))
	require.NoError(t, q.Push(testBatch(2)))
	assert.Equal(t, 2, q.Len())
}

func TestPush_FullQueueDoesNotBlock(t *testing.T) {
	q := NewListingQueue(1, logrus.New())

	require.NoError(t, q.Push(testBatch(1)))

	err := q.Push(testBatch(2))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestPush_AfterClose(t *testing.T) {
	q := NewListingQueue(1, logrus.New())
	require.NoError(t, q.Close())

	err := q.Push(testBatch(1))
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.True(t, q.IsClosed())
}

func TestSubscribe_AllHandlersReceiveBatch(t *testing.T) {
	q := NewListingQueue(4, logrus.New())

	var mu sync.Mutex
	received := map[string][]int64{}
	done := make(chan struct{}, 2)

	record := func(name string) BatchHandler {
		return func(batch []*models.Property) error {
			mu.Lock()
			for _, p := range batch {
				received[name] = append(received[name], p.ID)
			}
			mu.Unlock()
			done <- struct{}{}
			return nil
		}
	}
	q.Subscribe(record("first"))
	q.Subscribe(record("second"))
	q.Start()
	defer q.Close()

	require.NoError(t, q.Push(testBatch(7, 8)))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for handlers")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{7, 8}, received["first"])
	assert.Equal(t, []int64{7, 8}, received["second"])
}

func TestDispatch_HandlerFailureDoesNotStopDelivery(t *testing.T) {
	q := NewListingQueue(4, logrus.New())

	done := make(chan struct{})
	q.Subscribe(func([]*models.Property) error {
		return assert.AnError
	})
	q.Subscribe(func([]*models.Property) error {
		close(done)
		return nil
	})
	q.Start()
	defer q.Close()

	require.NoError(t, q.Push(testBatch(1)))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler never ran")
	}
}

func TestClose_Idempotent(t *testing.T) {
	q := NewListingQueue(1, logrus.New())

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}
