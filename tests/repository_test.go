// Package tests contains integration tests for the sync cursor repository
package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantrail/watermark/models"
	"github.com/quantrail/watermark/repository"
	testingutil "github.com/quantrail/watermark/testing"
	"github.com/quantrail/watermark/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCursorRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		cursorRepo := repository.NewSyncCursorRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		t.Run("UpsertCreatesNewCursor", func(t *testing.T) {
			tableName := testingutil.RandomTableName("alpha_vantage_data")
			syncedAt := utils.UTCNow().Add(-10 * time.Minute)

			cursor := &models.SyncCursor{
				TableName:     tableName,
				LastSyncedAt:  syncedAt,
				RecordsSynced: 1500,
				LastChunkID:   utils.ToPtr("chunk-42"),
			}
			require.NoError(t, cursorRepo.Upsert(ctx, cursor))

			stored, err := cursorRepo.ByTableName(ctx, tableName)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, tableName, stored.TableName)
			assert.Equal(t, int64(1500), stored.RecordsSynced)
			require.NotNil(t, stored.LastChunkID)
			assert.Equal(t, "chunk-42", *stored.LastChunkID)
			assert.WithinDuration(t, syncedAt, stored.LastSyncedAt, time.Second)
			assert.False(t, stored.CreatedAt.IsZero())
		})

		t.Run("UpsertReplacesExistingCursor", func(t *testing.T) {
			tableName := testingutil.RandomTableName("news_headlines")

			first := &models.SyncCursor{
				TableName:     tableName,
				LastSyncedAt:  utils.UTCNow().Add(-2 * time.Hour),
				RecordsSynced: 100,
				LastChunkID:   utils.ToPtr("chunk-1"),
			}
			require.NoError(t, cursorRepo.Upsert(ctx, first))

			original, err := cursorRepo.ByTableName(ctx, tableName)
			require.NoError(t, err)
			require.NotNil(t, original)

			second := &models.SyncCursor{
				TableName:     tableName,
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 250,
				// A stale caller-supplied timestamp must not survive the write
				UpdatedAt: utils.EpochWatermarkTime(),
			}
			require.NoError(t, cursorRepo.Upsert(ctx, second))

			stored, err := cursorRepo.ByTableName(ctx, tableName)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, int64(250), stored.RecordsSynced)
			// Omitted chunk ID clears the stored one
			assert.Nil(t, stored.LastChunkID)
			// created_at survives the update, updated_at is stamped at write time
			assert.WithinDuration(t, original.CreatedAt, stored.CreatedAt, time.Millisecond)
			assert.False(t, stored.UpdatedAt.Before(original.UpdatedAt))
			assert.WithinDuration(t, utils.UTCNow(), stored.UpdatedAt, time.Minute)

			// Still a single row for the table
			count, err := cursorRepo.Count(ctx, models.SyncCursorFilter{TableName: &tableName})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("UpsertIsIdempotent", func(t *testing.T) {
			tableName := testingutil.RandomTableName("earnings_reports")
			syncedAt := utils.UTCNow().Add(-30 * time.Minute)

			for i := 0; i < 3; i++ {
				cursor := &models.SyncCursor{
					TableName:     tableName,
					LastSyncedAt:  syncedAt,
					RecordsSynced: 500,
					LastChunkID:   utils.ToPtr("chunk-7"),
				}
				require.NoError(t, cursorRepo.Upsert(ctx, cursor))
			}

			stored, err := cursorRepo.ByTableName(ctx, tableName)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, int64(500), stored.RecordsSynced)
			assert.WithinDuration(t, syncedAt, stored.LastSyncedAt, time.Second)

			count, err := cursorRepo.Count(ctx, models.SyncCursorFilter{TableName: &tableName})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("ByTableNameReturnsNilWhenAbsent", func(t *testing.T) {
			stored, err := cursorRepo.ByTableName(ctx, testingutil.RandomTableName("never_synced"))
			require.NoError(t, err)
			assert.Nil(t, stored)
		})

		t.Run("SeedDefaultsLeavesExistingCursorsUntouched", func(t *testing.T) {
			seeded := testingutil.RandomTableName("ticker_universe")
			advanced := testingutil.RandomTableName("sec_filings")
			epoch := utils.EpochWatermarkTime()

			// Advance one table before seeding
			require.NoError(t, cursorRepo.Upsert(ctx, &models.SyncCursor{
				TableName:     advanced,
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 900,
			}))

			require.NoError(t, cursorRepo.SeedDefaults(ctx, []string{seeded, advanced}, epoch))
			// Second run must be a no-op
			require.NoError(t, cursorRepo.SeedDefaults(ctx, []string{seeded, advanced}, epoch))

			seededRow, err := cursorRepo.ByTableName(ctx, seeded)
			require.NoError(t, err)
			require.NotNil(t, seededRow)
			assert.WithinDuration(t, epoch, seededRow.LastSyncedAt, time.Second)
			assert.Equal(t, int64(0), seededRow.RecordsSynced)

			advancedRow, err := cursorRepo.ByTableName(ctx, advanced)
			require.NoError(t, err)
			require.NotNil(t, advancedRow)
			assert.Equal(t, int64(900), advancedRow.RecordsSynced)
			assert.True(t, advancedRow.LastSyncedAt.After(epoch))
		})

		t.Run("ListBySyncedAtDescOrdersFreshestFirst", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			oldest := testingutil.RandomTableName("oldest")
			middle := testingutil.RandomTableName("middle")
			newest := testingutil.RandomTableName("newest")

			now := utils.UTCNow()
			for tableName, age := range map[string]time.Duration{
				oldest: 72 * time.Hour,
				middle: 3 * time.Hour,
				newest: 5 * time.Minute,
			} {
				require.NoError(t, cursorRepo.Upsert(ctx, &models.SyncCursor{
					TableName:     tableName,
					LastSyncedAt:  now.Add(-age),
					RecordsSynced: 1,
				}))
			}

			rows, err := cursorRepo.ListBySyncedAtDesc(ctx)
			require.NoError(t, err)
			require.Len(t, rows, 3)
			assert.Equal(t, newest, rows[0].TableName)
			assert.Equal(t, middle, rows[1].TableName)
			assert.Equal(t, oldest, rows[2].TableName)
		})

		t.Run("ByUUIDFindsCursor", func(t *testing.T) {
			tableName := testingutil.RandomTableName("by_uuid")
			require.NoError(t, cursorRepo.Upsert(ctx, &models.SyncCursor{
				TableName:     tableName,
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 10,
			}))

			stored, err := cursorRepo.ByTableName(ctx, tableName)
			require.NoError(t, err)
			require.NotNil(t, stored)

			byUUID, err := cursorRepo.ByUUID(ctx, stored.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, byUUID)
			assert.Equal(t, stored.ID, byUUID.ID)
		})

		t.Run("SaveAndByID", func(t *testing.T) {
			tableName := testingutil.RandomTableName("save_by_id")
			cursor := &models.SyncCursor{
				TableName:     tableName,
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 5,
			}
			require.NoError(t, cursorRepo.Save(ctx, cursor))
			require.NotZero(t, cursor.ID)

			byID, err := cursorRepo.ByID(ctx, cursor.ID)
			require.NoError(t, err)
			require.NotNil(t, byID)
			assert.Equal(t, tableName, byID.TableName)

			missing, err := cursorRepo.ByID(ctx, cursor.ID+100000)
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("SaveBatchInsertsCursors", func(t *testing.T) {
			batch := []*models.SyncCursor{
				{TableName: testingutil.RandomTableName("batch_a"), LastSyncedAt: utils.UTCNow(), RecordsSynced: 1},
				{TableName: testingutil.RandomTableName("batch_b"), LastSyncedAt: utils.UTCNow(), RecordsSynced: 2},
			}
			require.NoError(t, cursorRepo.SaveBatch(ctx, batch))

			for _, c := range batch {
				stored, err := cursorRepo.ByTableName(ctx, c.TableName)
				require.NoError(t, err)
				require.NotNil(t, stored)
			}
		})

		t.Run("WithTransactionCommits", func(t *testing.T) {
			tableName := testingutil.RandomTableName("tx_commit")
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				return cursorRepo.Upsert(txCtx, &models.SyncCursor{
					TableName:     tableName,
					LastSyncedAt:  utils.UTCNow(),
					RecordsSynced: 7,
				})
			})
			require.NoError(t, err)

			stored, err := cursorRepo.ByTableName(ctx, tableName)
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, int64(7), stored.RecordsSynced)
		})

		t.Run("WithTransactionRollsBackOnError", func(t *testing.T) {
			tableName := testingutil.RandomTableName("tx_rollback")
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				if err := cursorRepo.Upsert(txCtx, &models.SyncCursor{
					TableName:     tableName,
					LastSyncedAt:  utils.UTCNow(),
					RecordsSynced: 7,
				}); err != nil {
					return err
				}
				return errors.New("abort")
			})
			require.Error(t, err)

			stored, err := cursorRepo.ByTableName(ctx, tableName)
			require.NoError(t, err)
			assert.Nil(t, stored)
		})

		return nil
	})
	require.NoError(t, err)
}
