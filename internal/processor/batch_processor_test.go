package processor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"qrent/server/config"
	"qrent/server/internal/database"
	"qrent/server/internal/models"
	"qrent/server/internal/queue"
)

type recordingInvalidator struct {
	calls int
}

func (r *recordingInvalidator) Invalidate(context.Context) {
	r.calls++
}

// newTestGorm opens a shared in-memory database unique to the test, runs the
// migrations through the read-side handle, and returns a gorm handle on it.
func newTestGorm(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))

	db, err := database.NewDatabase(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	gdb, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.MaxBatchSize = 100
	cfg.BatchProcessing.ProcessorCount = 1
	cfg.BatchProcessing.MaxRetries = 1
	cfg.BatchProcessing.RetryDelay = 0
	return cfg
}

func intPtr(v int) *int { return &v }

func TestProcessBatch_UpsertsAndInvalidates(t *testing.T) {
	gdb := newTestGorm(t)
	invalidator := &recordingInvalidator{}
	q := queue.NewListingQueue(4, logrus.New())
	defer q.Close()

	require.NoError(t, gdb.Exec(`INSERT INTO schools (id, name) VALUES (1, 'UNSW')`).Error)

	processor := NewBatchProcessor(gdb, q, invalidator, testConfig(), logrus.New())

	batch := []*models.Property{
		{ID: 1, Price: 500, BedroomCount: 2, PublishedAt: time.Now(), Commutes: []models.PropertySchool{
			{PropertyID: 1, SchoolID: 1, CommuteTime: intPtr(15)},
		}},
	}
	require.NoError(t, processor.processBatch(batch))
	assert.Equal(t, 1, invalidator.calls)

	var count int64
	require.NoError(t, gdb.Model(&models.Property{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestProcessBatch_UpdatesExistingProperty(t *testing.T) {
	gdb := newTestGorm(t)
	invalidator := &recordingInvalidator{}
	q := queue.NewListingQueue(4, logrus.New())
	defer q.Close()

	require.NoError(t, gdb.Exec(`INSERT INTO schools (id, name) VALUES (1, 'UNSW')`).Error)

	processor := NewBatchProcessor(gdb, q, invalidator, testConfig(), logrus.New())

	original := []*models.Property{
		{ID: 1, Price: 500, BedroomCount: 2, PublishedAt: time.Now(), Commutes: []models.PropertySchool{
			{PropertyID: 1, SchoolID: 1, CommuteTime: intPtr(15)},
		}},
	}
	require.NoError(t, processor.processBatch(original))

	updated := []*models.Property{
		{ID: 1, Price: 550, BedroomCount: 2, PublishedAt: time.Now(), Commutes: []models.PropertySchool{
			{PropertyID: 1, SchoolID: 1, CommuteTime: intPtr(20)},
		}},
	}
	require.NoError(t, processor.processBatch(updated))
	assert.Equal(t, 2, invalidator.calls)

	var stored models.Property
	require.NoError(t, gdb.First(&stored, 1).Error)
	assert.Equal(t, 550, stored.Price)

	var commute models.PropertySchool
	require.NoError(t, gdb.Where("property_id = ? AND school_id = ?", 1, 1).First(&commute).Error)
	require.NotNil(t, commute.CommuteTime)
	assert.Equal(t, 20, *commute.CommuteTime)
}

func TestProcessBatch_EmptyBatchIsNoOp(t *testing.T) {
	gdb := newTestGorm(t)
	invalidator := &recordingInvalidator{}
	q := queue.NewListingQueue(4, logrus.New())
	defer q.Close()

	processor := NewBatchProcessor(gdb, q, invalidator, testConfig(), logrus.New())

	require.NoError(t, processor.processBatch(nil))
	assert.Equal(t, 1, invalidator.calls)
}
