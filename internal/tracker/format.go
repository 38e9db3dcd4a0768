package tracker

import (
	"fmt"
	"math"
	"net/url"
)

// FormatTime renders whole seconds as H:MM:SS when at least an hour,
// otherwise M:SS.
func FormatTime(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60

	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// Hostname extracts the host from rawURL, or "" when it does not parse
// as an absolute URL.
func Hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Hostname()
}

// truncSeconds floors a playback field to whole seconds. Infinite values
// (live streams report an infinite duration) become 0.
func truncSeconds(v float64) int64 {
	if math.IsInf(v, 0) || math.IsNaN(v) || v < 0 {
		return 0
	}
	return int64(math.Floor(v))
}
