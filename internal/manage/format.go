package manage

import (
	"fmt"
	"time"
)

// RelativeTime renders how long ago ts was, coarsened to the largest whole
// unit: "3d ago", "5h ago", "12m ago", or "Just now".
func RelativeTime(ts, now time.Time) string {
	diff := now.Sub(ts)
	minutes := int(diff / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd ago", days)
	case hours > 0:
		return fmt.Sprintf("%dh ago", hours)
	case minutes > 0:
		return fmt.Sprintf("%dm ago", minutes)
	default:
		return "Just now"
	}
}

// CountLabel renders the history size the way the list header shows it.
func CountLabel(n int) string {
	if n == 1 {
		return "1 video tracked"
	}
	return fmt.Sprintf("%d videos tracked", n)
}
