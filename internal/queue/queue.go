package queue

import (
	"errors"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"qrent/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// BatchHandler processes one batch of ingested listings.
type BatchHandler func([]*models.Property) error

// ListingQueue is an in-memory queue of ingested listing batches sitting
// between the ingestion feed and the batch processor.
type ListingQueue struct {
	items    chan []*models.Property
	done     chan struct{}
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []BatchHandler
}

// NewListingQueue creates a listing queue with the specified buffer size.
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &ListingQueue{
		items:  make(chan []*models.Property, bufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Push adds a batch of listings to the queue. The send is non-blocking:
// a full queue returns ErrQueueFull instead of stalling the ingestion feed.
func (q *ListingQueue) Push(batch []*models.Property) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler that will be called for each batch.
func (q *ListingQueue) Subscribe(handler BatchHandler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins draining the queue in a background goroutine.
func (q *ListingQueue) Start() {
	go q.process()
}

func (q *ListingQueue) process() {
	for {
		select {
		case <-q.done:
			return
		case batch := <-q.items:
			q.dispatch(batch)
		}
	}
}

// dispatch sends the batch to all subscribed handlers sequentially. Handler
// failures are logged but do not stop delivery to the remaining handlers.
func (q *ListingQueue) dispatch(batch []*models.Property) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops the queue and prevents new batches from being added.
func (q *ListingQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.done)
	close(q.items)
	return nil
}

// Len returns the current number of batches waiting in the queue.
func (q *ListingQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed.
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
