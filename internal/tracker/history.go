package tracker

import "github.com/runnerr0/playmark/internal/storage"

// DefaultHistoryLimit caps the persisted history length.
const DefaultHistoryLimit = 100

// IsTracked reports whether url is opted in, either explicitly through the
// tracked set or implicitly by already having a history record.
func IsTracked(url string, tracked []string, history []storage.HistoryRecord) bool {
	for _, u := range tracked {
		if u == url {
			return true
		}
	}
	return indexOf(history, url) >= 0
}

func indexOf(history []storage.HistoryRecord, url string) int {
	for i := range history {
		if history[i].URL == url {
			return i
		}
	}
	return -1
}

// Upsert places rec at the front of history, replacing any record with the
// same URL, and truncates the result to limit entries. A non-empty stored
// title survives the replacement.
func Upsert(history []storage.HistoryRecord, rec storage.HistoryRecord, limit int) []storage.HistoryRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	out := make([]storage.HistoryRecord, 0, len(history)+1)
	if i := indexOf(history, rec.URL); i >= 0 {
		if existing := history[i].Title; existing != "" {
			rec.Title = existing
		}
		out = append(out, rec)
		out = append(out, history[:i]...)
		out = append(out, history[i+1:]...)
	} else {
		out = append(out, rec)
		out = append(out, history...)
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WithoutURL returns urls minus every occurrence of url.
func WithoutURL(urls []string, url string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != url {
			out = append(out, u)
		}
	}
	return out
}
