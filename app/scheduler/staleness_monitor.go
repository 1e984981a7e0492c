// Package scheduler
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/quantrail/watermark/models"
	"github.com/quantrail/watermark/repository"
	"github.com/quantrail/watermark/utils"
)

var (
	cursorAgeHours = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_cursor_age_hours",
			Help: "Hours since each source table was last synced",
		},
		[]string{"table"},
	)

	cursorRecordsSynced = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_cursor_records_synced",
			Help: "Records synced in the most recent chunk per source table",
		},
		[]string{"table"},
	)

	cursorsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_cursors_by_status",
			Help: "Number of tracked source tables per staleness status",
		},
		[]string{"status"},
	)
)

// StalenessMonitor periodically refreshes per-table staleness gauges and
// logs tables whose cursors have not advanced in over a week.
type StalenessMonitor struct {
	cursorRepo repository.SyncCursorRepository
	logger     *log.Logger
	interval   time.Duration
}

func NewStalenessMonitor(cursorRepo repository.SyncCursorRepository, logger *log.Logger, interval time.Duration) *StalenessMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StalenessMonitor{
		cursorRepo: cursorRepo,
		logger:     logger,
		interval:   interval,
	}
}

// Start launches the monitor loop in a background goroutine and returns a stop function
func (m *StalenessMonitor) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (m *StalenessMonitor) runOnce(ctx context.Context) {
	cursors, err := m.cursorRepo.ListBySyncedAtDesc(ctx)
	if err != nil {
		m.logger.Printf("staleness monitor: failed to list cursors: %v", err)
		return
	}

	now := utils.UTCNow()
	statusCounts := map[models.SyncStatus]int{
		models.SyncStatusCurrent:   0,
		models.SyncStatusRecent:    0,
		models.SyncStatusStale:     0,
		models.SyncStatusVeryStale: 0,
	}

	for _, cursor := range cursors {
		status := cursor.Status(now)
		statusCounts[status]++

		cursorAgeHours.WithLabelValues(cursor.TableName).Set(cursor.HoursSinceSync(now))
		cursorRecordsSynced.WithLabelValues(cursor.TableName).Set(float64(cursor.RecordsSynced))

		if status == models.SyncStatusVeryStale {
			m.logger.Printf("staleness monitor: table %s has not synced since %s (%.1f hours)",
				cursor.TableName,
				cursor.LastSyncedAt.Format(time.RFC3339),
				cursor.HoursSinceSync(now),
			)
		}
	}

	for status, count := range statusCounts {
		cursorsByStatus.WithLabelValues(status.String()).Set(float64(count))
	}
}
