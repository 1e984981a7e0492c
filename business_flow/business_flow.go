// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/quantrail/watermark/app/dto"
	"github.com/quantrail/watermark/models"
)

// ClientMetadata holds client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToSyncCursorDTO converts a cursor model to its API representation
func ToSyncCursorDTO(cursor models.SyncCursor, now time.Time) dto.SyncCursorDTO {
	return dto.SyncCursorDTO{
		UUID:           cursor.UUID.String(),
		TableName:      cursor.TableName,
		LastSyncedAt:   cursor.LastSyncedAt.Format(time.RFC3339),
		RecordsSynced:  cursor.RecordsSynced,
		LastChunkID:    cursor.LastChunkID,
		HoursSinceSync: cursor.HoursSinceSync(now),
		Status:         cursor.Status(now).String(),
		CreatedAt:      cursor.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      cursor.UpdatedAt.Format(time.RFC3339),
	}
}
