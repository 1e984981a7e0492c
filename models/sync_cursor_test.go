package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySyncAge(t *testing.T) {
	cases := []struct {
		name string
		age  time.Duration
		want SyncStatus
	}{
		{"Zero", 0, SyncStatusCurrent},
		{"JustUnderOneHour", time.Hour - time.Second, SyncStatusCurrent},
		{"ExactlyOneHour", time.Hour, SyncStatusRecent},
		{"JustUnderOneDay", 24*time.Hour - time.Second, SyncStatusRecent},
		{"ExactlyOneDay", 24 * time.Hour, SyncStatusStale},
		{"JustUnderOneWeek", 7*24*time.Hour - time.Second, SyncStatusStale},
		{"ExactlyOneWeek", 7 * 24 * time.Hour, SyncStatusVeryStale},
		{"YearsOld", 5 * 365 * 24 * time.Hour, SyncStatusVeryStale},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySyncAge(tc.age))
		})
	}
}

func TestSyncStatusValid(t *testing.T) {
	assert.True(t, SyncStatusCurrent.Valid())
	assert.True(t, SyncStatusRecent.Valid())
	assert.True(t, SyncStatusStale.Valid())
	assert.True(t, SyncStatusVeryStale.Valid())
	assert.False(t, SyncStatus("FRESH").Valid())
	assert.False(t, SyncStatus("").Valid())
}

func TestSyncStatusScanValue(t *testing.T) {
	var s SyncStatus
	require.NoError(t, s.Scan("STALE"))
	assert.Equal(t, SyncStatusStale, s)

	require.NoError(t, s.Scan([]byte("CURRENT")))
	assert.Equal(t, SyncStatusCurrent, s)

	require.NoError(t, s.Scan(nil))
	assert.Equal(t, SyncStatus(""), s)

	assert.Error(t, s.Scan(42))

	v, err := SyncStatusRecent.Value()
	require.NoError(t, err)
	assert.Equal(t, "RECENT", v)

	_, err = SyncStatus("BOGUS").Value()
	assert.Error(t, err)
}

func TestSyncCursorDerivedFields(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cursor := SyncCursor{
		TableName:    "alpha_vantage_data",
		LastSyncedAt: now.Add(-90 * time.Minute),
	}

	assert.Equal(t, 90*time.Minute, cursor.Age(now))
	assert.Equal(t, SyncStatusRecent, cursor.Status(now))
	assert.InDelta(t, 1.5, cursor.HoursSinceSync(now), 0.0001)
}
