package storage

import (
	"encoding/json"
	"fmt"
	"time"
)

// Keys persisted by playmark. No other keys are accepted by the store.
const (
	KeyTrackedURLs  = "trackedURLs"
	KeyVideoHistory = "videoHistory"
)

// Values maps store keys to their JSON-encoded values.
type Values map[string]json.RawMessage

// Change describes a committed write to a single key.
type Change struct {
	Key     string
	Value   json.RawMessage
	Version int64
}

// Listener receives change notifications after a write commits.
type Listener func(Change)

// UpdateFunc computes the keys to write from the current values. Returning
// a nil or empty map writes nothing.
type UpdateFunc func(current Values) (Values, error)

// HistoryRecord is one persisted playback snapshot for a page URL.
type HistoryRecord struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	CurrentTime   int64  `json:"currentTime"`
	Duration      int64  `json:"duration"`
	FormattedTime string `json:"formattedTime"`
	Timestamp     int64  `json:"timestamp"` // unix milliseconds
	Hostname      string `json:"hostname"`
}

// WrittenAt returns Timestamp as a time.Time.
func (r HistoryRecord) WrittenAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// State is the decoded form of both persisted keys.
type State struct {
	TrackedURLs []string
	History     []HistoryRecord
}

// DecodeState decodes whichever keys are present in v. Absent keys decode
// to empty slices.
func DecodeState(v Values) (State, error) {
	st := State{TrackedURLs: []string{}, History: []HistoryRecord{}}
	if raw, ok := v[KeyTrackedURLs]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.TrackedURLs); err != nil {
			return State{}, fmt.Errorf("decode %s: %w", KeyTrackedURLs, err)
		}
		if st.TrackedURLs == nil {
			st.TrackedURLs = []string{}
		}
	}
	if raw, ok := v[KeyVideoHistory]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &st.History); err != nil {
			return State{}, fmt.Errorf("decode %s: %w", KeyVideoHistory, err)
		}
		if st.History == nil {
			st.History = []HistoryRecord{}
		}
	}
	return st, nil
}

// EncodeHistory encodes a history list for storage. A nil list encodes as [].
func EncodeHistory(history []HistoryRecord) (json.RawMessage, error) {
	if history == nil {
		history = []HistoryRecord{}
	}
	return json.Marshal(history)
}

// EncodeTrackedURLs encodes the tracked set for storage. A nil set encodes as [].
func EncodeTrackedURLs(urls []string) (json.RawMessage, error) {
	if urls == nil {
		urls = []string{}
	}
	return json.Marshal(urls)
}

// DecodeHistory decodes a single videoHistory value, as delivered in a Change.
func DecodeHistory(raw json.RawMessage) ([]HistoryRecord, error) {
	st, err := DecodeState(Values{KeyVideoHistory: raw})
	if err != nil {
		return nil, err
	}
	return st.History, nil
}
