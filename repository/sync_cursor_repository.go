package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantrail/watermark/models"
	"github.com/quantrail/watermark/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncCursorRepositoryImpl implements SyncCursorRepository interface.
type SyncCursorRepositoryImpl struct {
	*BaseRepository[models.SyncCursor, models.SyncCursorFilter]
}

// NewSyncCursorRepository creates a new sync cursor repository.
func NewSyncCursorRepository(db *gorm.DB) SyncCursorRepository {
	return &SyncCursorRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SyncCursor, models.SyncCursorFilter](db),
	}
}

// ByTableName retrieves the cursor for a source table. Absence is reported
// as a nil cursor, not an error: callers treat it as "never synced".
func (r *SyncCursorRepositoryImpl) ByTableName(ctx context.Context, tableName string) (*models.SyncCursor, error) {
	db := r.getDB(ctx)
	var row models.SyncCursor
	if err := db.Where("table_name = ?", tableName).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sync cursor for %s: %w", tableName, err)
	}
	return &row, nil
}

// ByUUID retrieves a cursor by UUID.
func (r *SyncCursorRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.SyncCursor, error) {
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, err
	}
	rows, err := r.ByFilter(ctx, models.SyncCursorFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Upsert atomically creates or replaces the cursor for its table name in a
// single statement. The engine's native conflict resolution serializes
// concurrent writers per table name; repeating the call with the same
// arguments is idempotent. created_at survives updates, updated_at does not.
func (r *SyncCursorRepositoryImpl) Upsert(ctx context.Context, cursor *models.SyncCursor) error {
	// updated_at always reflects this write, whatever the caller passed in
	cursor.UpdatedAt = utils.UTCNow()

	db := r.getDB(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "table_name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_synced_at": clause.Expr{SQL: "EXCLUDED.last_synced_at"},
			"records_synced": clause.Expr{SQL: "EXCLUDED.records_synced"},
			"last_chunk_id":  clause.Expr{SQL: "EXCLUDED.last_chunk_id"},
			"updated_at":     clause.Expr{SQL: "EXCLUDED.updated_at"},
		}),
	}).Create(cursor).Error
	if err != nil {
		return fmt.Errorf("failed to upsert sync cursor for %s: %w", cursor.TableName, err)
	}
	return nil
}

// SeedDefaults inserts epoch-watermark cursors for the given tables, leaving
// any existing cursor untouched.
func (r *SyncCursorRepositoryImpl) SeedDefaults(ctx context.Context, tableNames []string, epoch time.Time) error {
	if len(tableNames) == 0 {
		return nil
	}

	rows := make([]*models.SyncCursor, 0, len(tableNames))
	for _, name := range tableNames {
		rows = append(rows, &models.SyncCursor{
			TableName:     name,
			LastSyncedAt:  epoch,
			RecordsSynced: 0,
		})
	}

	db := r.getDB(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "table_name"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to seed sync cursors: %w", err)
	}
	return nil
}

// ListBySyncedAtDesc returns all cursors freshest-first.
func (r *SyncCursorRepositoryImpl) ListBySyncedAtDesc(ctx context.Context) ([]*models.SyncCursor, error) {
	return r.ByFilter(ctx, models.SyncCursorFilter{}, "last_synced_at DESC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query.
func (r *SyncCursorRepositoryImpl) applyFilter(query *gorm.DB, filter models.SyncCursorFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TableName != nil {
		query = query.Where("table_name = ?", *filter.TableName)
	}
	if filter.SyncedAfter != nil {
		query = query.Where("last_synced_at > ?", *filter.SyncedAfter)
	}
	if filter.SyncedBefore != nil {
		query = query.Where("last_synced_at < ?", *filter.SyncedBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves sync cursors based on filter criteria.
func (r *SyncCursorRepositoryImpl) ByFilter(ctx context.Context, filter models.SyncCursorFilter, orderBy string, limit, offset int) ([]*models.SyncCursor, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SyncCursor{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.SyncCursor
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of sync cursors matching filter.
func (r *SyncCursorRepositoryImpl) Count(ctx context.Context, filter models.SyncCursorFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.SyncCursor{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any sync cursor matches the filter.
func (r *SyncCursorRepositoryImpl) Exists(ctx context.Context, filter models.SyncCursorFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
