// Package tests contains integration tests for the progress report cache
package tests

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/quantrail/watermark/app/dto"
	businessflow "github.com/quantrail/watermark/business_flow"
	"github.com/quantrail/watermark/config"
	"github.com/quantrail/watermark/models"
	"github.com/quantrail/watermark/repository"
	testingutil "github.com/quantrail/watermark/testing"
	"github.com/quantrail/watermark/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRedis connects to the test Redis instance, skipping the test when
// none is reachable.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379"
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		t.Skipf("redis not available at %s: %v", url, err)
	}

	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func newCacheConfig() *config.CacheConfig {
	return &config.CacheConfig{
		Enabled: true,
		// Unique prefix isolates each run from leftover keys
		RedisPrefix: fmt.Sprintf("watermark_test_%s:", testingutil.RandomTableName("run")),
		ProgressTTL: time.Minute,
	}
}

func TestSyncFlowProgressCache(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		rc := newTestRedis(t)
		cursorRepo := repository.NewSyncCursorRepository(testDB.DB)
		cacheCfg := newCacheConfig()
		flow := businessflow.NewSyncFlow(cursorRepo, cacheCfg, rc)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
		ctx := context.Background()

		first := testingutil.RandomTableName("cached_a")
		_, err := flow.AdvanceCursor(ctx, &dto.AdvanceCursorRequest{
			TableName:     first,
			LastSyncedAt:  utils.UTCNow(),
			RecordsSynced: 10,
		}, metadata)
		require.NoError(t, err)

		t.Run("RepeatReadsServeTheCachedReport", func(t *testing.T) {
			res, err := flow.ListProgress(ctx, metadata)
			require.NoError(t, err)
			require.Len(t, res.Items, 1)

			// A write that bypasses the flow does not invalidate the cache,
			// so the next read still serves the snapshot
			require.NoError(t, cursorRepo.Upsert(ctx, &models.SyncCursor{
				TableName:     testingutil.RandomTableName("cached_b"),
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 20,
			}))

			cached, err := flow.ListProgress(ctx, metadata)
			require.NoError(t, err)
			assert.Len(t, cached.Items, 1)
			assert.Equal(t, res.GeneratedAt, cached.GeneratedAt)
		})

		t.Run("AdvanceInvalidatesTheCachedReport", func(t *testing.T) {
			third := testingutil.RandomTableName("cached_c")
			_, err := flow.AdvanceCursor(ctx, &dto.AdvanceCursorRequest{
				TableName:     third,
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 30,
			}, metadata)
			require.NoError(t, err)

			res, err := flow.ListProgress(ctx, metadata)
			require.NoError(t, err)
			// Fresh report sees all three tables, including the one written
			// behind the cache's back
			assert.Len(t, res.Items, 3)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSyncFlowCacheDegradation(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		cursorRepo := repository.NewSyncCursorRepository(testDB.DB)
		metadata := businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
		ctx := context.Background()

		t.Run("NilClientReadsDirectly", func(t *testing.T) {
			flow := businessflow.NewSyncFlow(cursorRepo, newCacheConfig(), nil)

			tableName := testingutil.RandomTableName("no_client")
			_, err := flow.AdvanceCursor(ctx, &dto.AdvanceCursorRequest{
				TableName:     tableName,
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 1,
			}, metadata)
			require.NoError(t, err)

			res, err := flow.ListProgress(ctx, metadata)
			require.NoError(t, err)
			require.Len(t, res.Items, 1)
			assert.Equal(t, tableName, res.Items[0].TableName)
		})

		t.Run("UnreachableClientReadsDirectly", func(t *testing.T) {
			// Nothing listens here; every cache call fails fast
			dead := redis.NewClient(&redis.Options{
				Addr:        "127.0.0.1:1",
				DialTimeout: 100 * time.Millisecond,
				MaxRetries:  -1,
			})
			defer dead.Close()

			flow := businessflow.NewSyncFlow(cursorRepo, newCacheConfig(), dead)

			tableName := testingutil.RandomTableName("dead_cache")
			_, err := flow.AdvanceCursor(ctx, &dto.AdvanceCursorRequest{
				TableName:     tableName,
				LastSyncedAt:  utils.UTCNow(),
				RecordsSynced: 2,
			}, metadata)
			require.NoError(t, err)

			res, err := flow.ListProgress(ctx, metadata)
			require.NoError(t, err)
			found := false
			for _, item := range res.Items {
				if item.TableName == tableName {
					found = true
				}
			}
			assert.True(t, found)
		})

		return nil
	})
	require.NoError(t, err)
}
