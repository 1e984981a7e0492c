// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/quantrail/watermark/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// SyncCursorRepository defines operations for sync cursors
type SyncCursorRepository interface {
	Repository[models.SyncCursor, models.SyncCursorFilter]
	ByTableName(ctx context.Context, tableName string) (*models.SyncCursor, error)
	ByUUID(ctx context.Context, uuidStr string) (*models.SyncCursor, error)
	Upsert(ctx context.Context, cursor *models.SyncCursor) error
	SeedDefaults(ctx context.Context, tableNames []string, epoch time.Time) error
	ListBySyncedAtDesc(ctx context.Context) ([]*models.SyncCursor, error)
}
