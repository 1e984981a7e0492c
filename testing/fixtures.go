package testing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/quantrail/watermark/models"
	"github.com/quantrail/watermark/repository"
	"github.com/quantrail/watermark/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB         *TestDB
	cursorRepo repository.SyncCursorRepository
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{
		DB:         db,
		cursorRepo: repository.NewSyncCursorRepository(db.DB),
	}
}

// CreateTestCursor inserts a sync cursor for the given table with the
// watermark set to the given age before now.
func (tf *TestFixtures) CreateTestCursor(tableName string, age time.Duration, recordsSynced int64) (*models.SyncCursor, error) {
	cursor := &models.SyncCursor{
		UUID:          uuid.New(),
		TableName:     tableName,
		LastSyncedAt:  utils.UTCNow().Add(-age),
		RecordsSynced: recordsSynced,
	}

	if err := tf.cursorRepo.Save(context.Background(), cursor); err != nil {
		return nil, fmt.Errorf("failed to create test cursor for %s: %w", tableName, err)
	}

	return cursor, nil
}

// CreateEpochCursor inserts a cursor pinned at the epoch watermark, matching
// the state a freshly seeded source table starts in.
func (tf *TestFixtures) CreateEpochCursor(tableName string) (*models.SyncCursor, error) {
	cursor := &models.SyncCursor{
		UUID:          uuid.New(),
		TableName:     tableName,
		LastSyncedAt:  utils.EpochWatermarkTime(),
		RecordsSynced: 0,
	}

	if err := tf.cursorRepo.Save(context.Background(), cursor); err != nil {
		return nil, fmt.Errorf("failed to create epoch cursor for %s: %w", tableName, err)
	}

	return cursor, nil
}

// RandomTableName returns a unique source table name for isolation between subtests.
func RandomTableName(prefix string) string {
	return fmt.Sprintf("%s_%09d", prefix, rand.Intn(900000000)+100000000)
}
