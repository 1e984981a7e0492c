package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantrail/watermark/utils"
	"gorm.io/gorm"
)

// SyncStatus represents the staleness classification of a sync cursor.
type SyncStatus string

const (
	SyncStatusCurrent   SyncStatus = "CURRENT"
	SyncStatusRecent    SyncStatus = "RECENT"
	SyncStatusStale     SyncStatus = "STALE"
	SyncStatusVeryStale SyncStatus = "VERY_STALE"
)

// Valid checks if the status is valid.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusCurrent, SyncStatusRecent, SyncStatusStale, SyncStatusVeryStale:
		return true
	default:
		return false
	}
}

func (s SyncStatus) String() string { return string(s) }

// Scan implements the sql.Scanner interface for SyncStatus.
func (s *SyncStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = SyncStatus(v)
	case []byte:
		*s = SyncStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SyncStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SyncStatus.
func (s SyncStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid SyncStatus: %s", s)
	}
	return string(s), nil
}

// ClassifySyncAge maps elapsed time since the last sync to a staleness status.
// Boundaries are inclusive on the staler side: exactly 1h is RECENT, exactly
// 24h is STALE, exactly 7d is VERY_STALE.
func ClassifySyncAge(age time.Duration) SyncStatus {
	switch {
	case age < time.Hour:
		return SyncStatusCurrent
	case age < 24*time.Hour:
		return SyncStatusRecent
	case age < 7*24*time.Hour:
		return SyncStatusStale
	default:
		return SyncStatusVeryStale
	}
}

// SyncCursor tracks how far incremental synchronization has progressed for a
// single warehouse source table. One row per table name; writes are upserts.
type SyncCursor struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	TableName     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"table_name"`
	LastSyncedAt  time.Time `gorm:"not null;index" json:"last_synced_at"`
	RecordsSynced int64     `gorm:"not null;default:0" json:"records_synced"`
	LastChunkID   *string   `gorm:"type:varchar(255)" json:"last_chunk_id,omitempty"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// BeforeCreate ensures UUID and timestamps are set.
func (c *SyncCursor) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Age returns the elapsed time between now and the cursor watermark.
func (c *SyncCursor) Age(now time.Time) time.Duration {
	return now.Sub(c.LastSyncedAt)
}

// Status classifies the cursor staleness at the given instant.
func (c *SyncCursor) Status(now time.Time) SyncStatus {
	return ClassifySyncAge(c.Age(now))
}

// HoursSinceSync returns the fractional number of hours since the watermark.
func (c *SyncCursor) HoursSinceSync(now time.Time) float64 {
	return c.Age(now).Hours()
}

// SyncCursorFilter represents filter criteria for sync cursor queries.
type SyncCursorFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	TableName     *string    `json:"table_name,omitempty"`
	SyncedAfter   *time.Time `json:"synced_after,omitempty"`
	SyncedBefore  *time.Time `json:"synced_before,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
