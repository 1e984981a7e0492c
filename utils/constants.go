package utils

import (
	"time"
)

// ContextKey is the type for request-scoped context values.
type ContextKey string

// Request context keys set by handlers and read by flows for audit logging
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Watermark constants
const (
	// EpochWatermark is the default watermark for a table that has never been
	// synced: everything since 2020 is treated as pending.
	EpochWatermark = "2020-01-01T00:00:00Z"

	// MaxTableNameLength matches the varchar(255) column constraint.
	MaxTableNameLength = 255
)

// EpochWatermarkTime returns the parsed epoch watermark.
func EpochWatermarkTime() time.Time {
	t, _ := time.Parse(time.RFC3339, EpochWatermark)
	return t
}

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// ProgressCacheKey is the redis key (under the configured prefix) holding
// the cached progress report.
const ProgressCacheKey = "progress:report"
