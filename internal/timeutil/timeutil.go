// Package timeutil formats timestamps and durations for logs and health output.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// DefaultZone is the zone used for log timestamps when none is configured.
const DefaultZone = "Asia/Seoul"

// LogTimeLayout renders a timestamp with millisecond precision and its offset.
const LogTimeLayout = "2006-01-02T15:04:05.000-07:00"

// LoadLocation resolves an IANA zone name. Hosts without tzdata still get
// Korea Standard Time for the default zone; anything else falls back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultZone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	if name == DefaultZone {
		return time.FixedZone("KST", 9*60*60)
	}
	return time.UTC
}

// Format renders t in loc using LogTimeLayout.
func Format(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(LogTimeLayout)
}

// FormatDuration renders sub-second durations as whole milliseconds ("350ms")
// and longer ones as seconds with one decimal ("1.2s").
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatUptime renders a process uptime as "2d 3h 4m 5s", omitting leading
// zero units.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if days > 0 || hours > 0 || minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}
