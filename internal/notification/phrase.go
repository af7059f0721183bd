package notification

import (
	"fmt"
	"time"
)

// Phrase describes how long ago notification was created
func Phrase(ts time.Time, now time.Time) string {
	seconds := int64(now.Sub(ts) / time.Second)

	switch {
	case seconds > 2*24*3600:
		return "a few days ago"
	case seconds > 24*3600:
		return "yesterday"
	case seconds > 3600:
		return "a few hours ago"
	case seconds > 1800:
		return "Half an hour ago"
	case seconds > 60:
		return fmt.Sprintf("%d minutes ago", seconds/60)
	default:
		return "Just now"
	}
}
