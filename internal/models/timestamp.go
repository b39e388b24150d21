package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

var wallClockLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// UTCTime inbound device timestamp.
//
// Devices report local wall-clock time with inconsistent zone suffixes, so the
// wall-clock fields are kept as written and the result is marked UTC. Unix
// seconds are absolute and converted as-is.
type UTCTime struct {
	time.Time
}

// ParseUTCTime parses a device timestamp, see UTCTime.
func ParseUTCTime(s string) (time.Time, error) {
	for _, layout := range wallClockLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
	}

	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// UnmarshalJSON accepts a date-time string, unix seconds or null.
func (t *UTCTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}

	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := ParseUTCTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON always encodes in UTC
func (t UTCTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
