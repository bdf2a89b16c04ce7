package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0h 0m 0s"},
		{59 * time.Second, "0h 0m 59s"},
		{61 * time.Second, "0h 1m 1s"},
		{3*time.Hour + 4*time.Minute + 5*time.Second + 900*time.Millisecond, "3h 4m 5s"},
		{49 * time.Hour, "49h 0m 0s"},
		{-time.Second, "0h 0m 0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatUptime(tt.d), tt.d.String())
	}
}

func TestTracker_Uptime(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(Func(func() time.Time { return now }))
	assert.Equal(t, time.Duration(0), tr.Uptime())

	now = now.Add(90 * time.Minute)
	assert.Equal(t, 90*time.Minute, tr.Uptime())
	assert.Equal(t, "1h 30m 0s", FormatUptime(tr.Uptime()))
}

func TestTracker_ClockSkewClampsToZero(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(Func(func() time.Time { return now }))
	now = now.Add(-time.Hour)
	assert.Equal(t, time.Duration(0), tr.Uptime())
}

func TestNewTracker_DefaultsToSystem(t *testing.T) {
	tr := NewTracker(nil)
	assert.WithinDuration(t, time.Now(), tr.StartedAt(), time.Second)
}
