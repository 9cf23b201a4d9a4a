package scheduler

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"qrent/server/internal/stats"
)

// JobType represents the scheduled statistics jobs
type JobType int

const (
	JobTypeWarm JobType = iota
	JobTypeInvalidate
)

// String returns the string representation of a JobType
func (j JobType) String() string {
	switch j {
	case JobTypeWarm:
		return "warm"
	case JobTypeInvalidate:
		return "invalidate"
	default:
		return "unknown"
	}
}

// Scheduler keeps the statistics cache healthy: it re-warms the all-regions
// entry every hour and performs a full invalidation at midnight so stale
// keys never outlive a day.
type Scheduler struct {
	manager      *stats.Manager
	logger       *logrus.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
	jobMutex     sync.Mutex // Ensures sequential job execution
	isStartupRun bool       // Tracks whether we're in startup run
}

// NewScheduler creates a new scheduler
func NewScheduler(manager *stats.Manager, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		manager:      manager,
		logger:       logger,
		stopChan:     make(chan struct{}),
		isStartupRun: true,
	}
}

// Start begins the scheduled tasks
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.runScheduler()
}

// runScheduler handles all scheduled tasks
func (s *Scheduler) runScheduler() {
	defer s.wg.Done()

	// Warm the cache once on startup so the first stats request is cheap
	go func() {
		s.jobMutex.Lock()
		defer s.jobMutex.Unlock()
		s.logger.Info("Running startup stats warm")
		s.runWarm()
		s.isStartupRun = false
		s.logger.Info("Startup stats warm completed")
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case t := <-ticker.C:
			s.executeScheduledJobs(t)
		}
	}
}

// executeScheduledJobs runs all jobs that are scheduled for the given time
func (s *Scheduler) executeScheduledJobs(t time.Time) {
	if s.isStartupRun {
		s.logger.Debug("Skipping scheduled jobs while startup is in progress")
		return
	}

	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	// Full invalidation at midnight
	if t.Hour() == 0 && t.Minute() == 0 {
		s.logger.WithField("job_type", JobTypeInvalidate.String()).Info("Starting scheduled stats invalidation")
		s.manager.Invalidate(context.Background())
		s.logger.WithField("job_type", JobTypeInvalidate.String()).Info("Completed scheduled stats invalidation")
	}

	// Re-warm the all-regions entry every hour
	if t.Minute() == 0 {
		s.logger.WithField("job_type", JobTypeWarm.String()).Info("Starting scheduled stats warm")
		s.runWarm()
		s.logger.WithField("job_type", JobTypeWarm.String()).Info("Completed scheduled stats warm")
	}
}

func (s *Scheduler) runWarm() {
	if err := s.manager.Warm(context.Background()); err != nil {
		s.logger.WithError(err).WithField("job_type", JobTypeWarm.String()).Error("Stats warm job failed")
	}
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}
