package usage

import (
	"fmt"
	"time"
)

// FormatDuration renders foreground milliseconds as "1h 30m", "2m 5s" or "45s".
func FormatDuration(millis int64) string {
	seconds := millis / 1000
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// DayWindow returns [local midnight, now).
func DayWindow(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now
}
