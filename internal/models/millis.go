package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Millis is a timestamp in milliseconds since the Unix epoch.
// Remote payloads carry it as a number, a numeric string or an ISO-8601 string.
type Millis int64

// Now returns the current time in milliseconds.
func Now() Millis {
	return Millis(time.Now().UnixMilli())
}

// FromTime converts t to milliseconds.
func FromTime(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

// Time converts m back to a time.Time.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(m), 10), nil
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return m.parseString(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", data)
	}
	*m = Millis(int64(f))
	return nil
}

func (m *Millis) parseString(s string) error {
	if s == "" {
		*m = 0
		return nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		*m = Millis(int64(n))
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", s)
	}
	*m = FromTime(t)
	return nil
}

// ParseISO returns the millisecond value of an ISO-8601 date string, or 0.
func ParseISO(s string) Millis {
	var m Millis
	if err := m.parseString(s); err != nil {
		return 0
	}
	return m
}
