package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"qrent/server/config"
	"qrent/server/internal/database"
	"qrent/server/internal/models"
	"qrent/server/internal/queue"
)

// StatsInvalidator lets the processor drop cached regional statistics after
// a batch lands, so stats reads never serve pre-ingestion numbers past TTL.
type StatsInvalidator interface {
	Invalidate(ctx context.Context)
}

// BatchProcessor drains the listing queue and upserts batches into storage
// with transaction and retry handling.
type BatchProcessor struct {
	db          *gorm.DB
	logger      *logrus.Logger
	config      *config.Config
	queue       *queue.ListingQueue
	invalidator StatsInvalidator
	waitGroup   sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance.
func NewBatchProcessor(db *gorm.DB, q *queue.ListingQueue, invalidator StatsInvalidator, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:          db,
		queue:       q,
		invalidator: invalidator,
		config:      cfg,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing batches from the queue.
func (p *BatchProcessor) Start() {
	for i := 0; i < p.config.BatchProcessing.ProcessorCount; i++ {
		p.waitGroup.Add(1)
		go p.processLoop()
	}
}

// Stop gracefully shuts down the processor.
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	p.queue.Subscribe(func(batch []*models.Property) error {
		return p.processBatch(batch)
	})
}

// processBatch upserts a single batch with transaction and retry logic, then
// invalidates the stats cache since the regional numbers just changed.
func (p *BatchProcessor) processBatch(batch []*models.Property) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertProperties(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert listing batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully processed batch of %d listings", len(batch))
			if p.invalidator != nil {
				p.invalidator.Invalidate(p.ctx)
			}
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
