package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/quantrail/watermark/app/dto"
	"github.com/quantrail/watermark/config"
	"github.com/quantrail/watermark/models"
	"github.com/quantrail/watermark/repository"
	"github.com/quantrail/watermark/utils"
	"github.com/redis/go-redis/v9"
)

// SyncFlow defines operations for sync workers and the progress monitor
type SyncFlow interface {
	GetCursor(ctx context.Context, tableName string, metadata *ClientMetadata) (*dto.GetCursorResponse, error)
	AdvanceCursor(ctx context.Context, req *dto.AdvanceCursorRequest, metadata *ClientMetadata) (*dto.AdvanceCursorResponse, error)
	ListProgress(ctx context.Context, metadata *ClientMetadata) (*dto.ListProgressResponse, error)
}

type SyncFlowImpl struct {
	cursorRepo  repository.SyncCursorRepository
	cacheConfig *config.CacheConfig
	rc          *redis.Client
}

func NewSyncFlow(
	cursorRepo repository.SyncCursorRepository,
	cacheConfig *config.CacheConfig,
	rc *redis.Client,
) SyncFlow {
	return &SyncFlowImpl{
		cursorRepo:  cursorRepo,
		cacheConfig: cacheConfig,
		rc:          rc,
	}
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// validateAdvance rejects malformed input before anything touches storage
func validateAdvance(req *dto.AdvanceCursorRequest) error {
	if strings.TrimSpace(req.TableName) == "" {
		return ErrTableNameRequired
	}
	if len(req.TableName) > utils.MaxTableNameLength {
		return ErrTableNameTooLong
	}
	if req.RecordsSynced < 0 {
		return ErrRecordsSyncedNegative
	}
	if req.LastSyncedAt.IsZero() {
		return ErrLastSyncedAtRequired
	}
	return nil
}

// GetCursor returns the stored cursor for a source table. An unseeded table
// is not an error: the response carries found=false and the epoch watermark,
// so callers treat it as "everything since 2020 is pending".
func (f *SyncFlowImpl) GetCursor(ctx context.Context, tableName string, metadata *ClientMetadata) (*dto.GetCursorResponse, error) {
	// Lookups use the same trimmed key that advances store under
	tableName = strings.TrimSpace(tableName)
	if tableName == "" {
		return nil, ErrTableNameRequired
	}
	if len(tableName) > utils.MaxTableNameLength {
		return nil, ErrTableNameTooLong
	}

	cursor, err := f.cursorRepo.ByTableName(ctx, tableName)
	if err != nil {
		return nil, NewBusinessError("GET_CURSOR_FAILED", "Failed to get sync cursor", err)
	}

	now := utils.UTCNow()
	if cursor == nil {
		epoch := utils.EpochWatermarkTime()
		return &dto.GetCursorResponse{
			Message: "Sync cursor not found, returning epoch defaults",
			Found:   false,
			Cursor: dto.SyncCursorDTO{
				TableName:      tableName,
				LastSyncedAt:   utils.EpochWatermark,
				RecordsSynced:  0,
				HoursSinceSync: now.Sub(epoch).Hours(),
				Status:         models.ClassifySyncAge(now.Sub(epoch)).String(),
			},
		}, nil
	}

	return &dto.GetCursorResponse{
		Message: "Sync cursor retrieved successfully",
		Found:   true,
		Cursor:  ToSyncCursorDTO(*cursor, now),
	}, nil
}

// AdvanceCursor records a successfully completed sync batch. The write is a
// single atomic upsert, so retries and concurrent workers for the same table
// cannot race; the caller owns any retry policy.
func (f *SyncFlowImpl) AdvanceCursor(ctx context.Context, req *dto.AdvanceCursorRequest, metadata *ClientMetadata) (*dto.AdvanceCursorResponse, error) {
	if err := validateAdvance(req); err != nil {
		return nil, err
	}

	cursor := &models.SyncCursor{
		TableName:     strings.TrimSpace(req.TableName),
		LastSyncedAt:  utils.TimeToUTC(req.LastSyncedAt),
		RecordsSynced: req.RecordsSynced,
		LastChunkID:   req.LastChunkID,
	}

	if err := f.cursorRepo.Upsert(ctx, cursor); err != nil {
		return nil, NewBusinessError("ADVANCE_CURSOR_FAILED", "Failed to advance sync cursor", err)
	}

	// Stored row is the source of truth for created_at after an update
	stored, err := f.cursorRepo.ByTableName(ctx, cursor.TableName)
	if err != nil {
		return nil, NewBusinessError("ADVANCE_CURSOR_FAILED", "Failed to read back sync cursor", err)
	}

	f.invalidateProgressCache(ctx)

	return &dto.AdvanceCursorResponse{
		Message: "Sync cursor advanced successfully",
		Cursor:  ToSyncCursorDTO(*stored, utils.UTCNow()),
	}, nil
}

// ListProgress derives the staleness report from stored cursors at query
// time, freshest first. Results are cached briefly in Redis; cache failures
// degrade to direct reads.
func (f *SyncFlowImpl) ListProgress(ctx context.Context, metadata *ClientMetadata) (*dto.ListProgressResponse, error) {
	if cached := f.readProgressCache(ctx); cached != nil {
		return cached, nil
	}

	cursors, err := f.cursorRepo.ListBySyncedAtDesc(ctx)
	if err != nil {
		return nil, NewBusinessError("LIST_PROGRESS_FAILED", "Failed to list sync progress", err)
	}

	now := utils.UTCNow()
	items := make([]dto.ProgressItem, 0, len(cursors))
	for _, c := range cursors {
		items = append(items, dto.ProgressItem{
			TableName:      c.TableName,
			LastSyncedAt:   c.LastSyncedAt.Format(time.RFC3339),
			RecordsSynced:  c.RecordsSynced,
			HoursSinceSync: c.HoursSinceSync(now),
			Status:         c.Status(now).String(),
			UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
		})
	}

	res := &dto.ListProgressResponse{
		Message:     "Sync progress retrieved successfully",
		GeneratedAt: now.Format(time.RFC3339),
		Items:       items,
	}

	f.writeProgressCache(ctx, res)

	return res, nil
}

func (f *SyncFlowImpl) cacheEnabled() bool {
	return f.rc != nil && f.cacheConfig != nil && f.cacheConfig.Enabled
}

func (f *SyncFlowImpl) readProgressCache(ctx context.Context) *dto.ListProgressResponse {
	if !f.cacheEnabled() {
		return nil
	}
	bytes, err := f.rc.Get(ctx, redisKey(*f.cacheConfig, utils.ProgressCacheKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Progress cache read failed: %v", err)
		}
		return nil
	}
	var res dto.ListProgressResponse
	if err := json.Unmarshal(bytes, &res); err != nil {
		return nil
	}
	return &res
}

func (f *SyncFlowImpl) writeProgressCache(ctx context.Context, res *dto.ListProgressResponse) {
	if !f.cacheEnabled() {
		return
	}
	bytes, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := f.rc.Set(ctx, redisKey(*f.cacheConfig, utils.ProgressCacheKey), bytes, f.cacheConfig.ProgressTTL).Err(); err != nil {
		log.Printf("Progress cache write failed: %v", err)
	}
}

func (f *SyncFlowImpl) invalidateProgressCache(ctx context.Context) {
	if !f.cacheEnabled() {
		return
	}
	if err := f.rc.Del(ctx, redisKey(*f.cacheConfig, utils.ProgressCacheKey)).Err(); err != nil {
		log.Printf("Progress cache invalidation failed: %v", err)
	}
}
