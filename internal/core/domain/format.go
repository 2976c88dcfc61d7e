package domain

import (
	"fmt"
	"time"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a size using 1024-based units with one decimal
// place above bytes. Negative sizes render as "-".
func FormatBytes(n int64) string {
	if n < 0 {
		return "-"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", n, byteUnits[0])
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}

// FormatTimestamp renders an RFC 3339 timestamp in local time, or returns
// the input unchanged when it cannot be parsed
func FormatTimestamp(ts string, layout string) string {
	if ts == "" {
		return "—"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format(layout)
}
