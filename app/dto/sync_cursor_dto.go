package dto

import "time"

// SyncCursorDTO is the API representation of a stored sync cursor.
type SyncCursorDTO struct {
	UUID           string  `json:"uuid"`
	TableName      string  `json:"table_name"`
	LastSyncedAt   string  `json:"last_synced_at"`
	RecordsSynced  int64   `json:"records_synced"`
	LastChunkID    *string `json:"last_chunk_id,omitempty"`
	HoursSinceSync float64 `json:"hours_since_sync"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// AdvanceCursorRequest advances the watermark for one source table after a
// successful sync batch. Repeating the same request is safe.
type AdvanceCursorRequest struct {
	TableName     string    `json:"table_name" validate:"required,max=255"`
	LastSyncedAt  time.Time `json:"last_synced_at" validate:"required"`
	RecordsSynced int64     `json:"records_synced" validate:"gte=0"`
	LastChunkID   *string   `json:"last_chunk_id,omitempty" validate:"omitempty,max=255"`
}

// AdvanceCursorResponse reports the stored state after an advance.
type AdvanceCursorResponse struct {
	Message string        `json:"message"`
	Cursor  SyncCursorDTO `json:"cursor"`
}

// GetCursorResponse wraps a single cursor lookup. Found is false when the
// table has never been synced; the cursor then carries epoch defaults.
type GetCursorResponse struct {
	Message string        `json:"message"`
	Found   bool          `json:"found"`
	Cursor  SyncCursorDTO `json:"cursor"`
}

// ProgressItem is one row of the staleness report.
type ProgressItem struct {
	TableName      string  `json:"table_name"`
	LastSyncedAt   string  `json:"last_synced_at"`
	RecordsSynced  int64   `json:"records_synced"`
	HoursSinceSync float64 `json:"hours_since_sync"`
	Status         string  `json:"status"`
	UpdatedAt      string  `json:"updated_at"`
}

// ListProgressResponse is the staleness report, freshest first.
type ListProgressResponse struct {
	Message     string         `json:"message"`
	GeneratedAt string         `json:"generated_at"`
	Items       []ProgressItem `json:"items"`
}
