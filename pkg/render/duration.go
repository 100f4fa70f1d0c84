package render

import (
	"fmt"
	"math"
	"time"
)

// FormatDuration formats elapsed seconds for display in a job end line.
//
//	< 10s   two decimals    "0.42s"
//	< 60s   one decimal     "12.3s"
//	< 1h    "1min 5s"
//	else    "2h 3min 4s"
func FormatDuration(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	// Values that would round up to the next unit are promoted first, so
	// 9.999 never prints as "10.00s" and 59.96 never as "60.0s".
	switch {
	case seconds < 9.995:
		return fmt.Sprintf("%.2fs", seconds)
	case seconds < 59.95:
		return fmt.Sprintf("%.1fs", seconds)
	}

	total := int64(math.Round(seconds))
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	if hours == 0 {
		return fmt.Sprintf("%dmin %ds", minutes, secs)
	}
	return fmt.Sprintf("%dh %dmin %ds", hours, minutes, secs)
}

// FormatElapsed formats a time.Duration with FormatDuration.
func FormatElapsed(d time.Duration) string {
	return FormatDuration(d.Seconds())
}
