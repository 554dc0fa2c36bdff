package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0ms"},
		{-5 * time.Millisecond, "0ms"},
		{350 * time.Millisecond, "350ms"},
		{999 * time.Millisecond, "999ms"},
		{time.Second, "1.0s"},
		{1240 * time.Millisecond, "1.2s"},
		{65 * time.Second, "65.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0s", FormatUptime(0))
	assert.Equal(t, "42s", FormatUptime(42*time.Second))
	assert.Equal(t, "2m 0s", FormatUptime(2*time.Minute))
	assert.Equal(t, "1h 0m 5s", FormatUptime(time.Hour+5*time.Second))
	assert.Equal(t, "2d 3h 4m 5s", FormatUptime(2*24*time.Hour+3*time.Hour+4*time.Minute+5*time.Second))
}

func TestLoadLocation(t *testing.T) {
	seoul := LoadLocation("")
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, offset := ts.In(seoul).Zone()
	assert.Equal(t, 9*60*60, offset)

	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
}

func TestFormat(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T21:30:00.000+09:00", Format(ts, time.FixedZone("KST", 9*60*60)))
	assert.Equal(t, "2024-03-01T12:30:00.000+00:00", Format(ts, nil))
}
