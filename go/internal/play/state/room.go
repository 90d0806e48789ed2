package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ID is an opaque identifier pushed by the server. Servers send both strings
// and numbers; both decode to the same textual form.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Timestamp accepts ISO-8601 strings and epoch milliseconds.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := parseTimestamp(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("start time must be a string or epoch millis: %w", err)
	}
	ms, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("parse epoch millis %s: %w", n, err)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}

// localLayouts are ISO-8601 forms without a zone; they are read as local
// time, the way browsers read them.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return parsed, nil
	}
	for _, layout := range localLayouts {
		if local, lerr := time.ParseInLocation(layout, s, time.Local); lerr == nil {
			return local, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse start time %q: %w", s, err)
}

// RoomInfo is the body of a ROOM_INFO push. Absent fields leave the
// mirrored state unchanged; null clears it.
type RoomInfo struct {
	PlayerID  *ID        `json:"playerId"`
	RoomID    *ID        `json:"roomId"`
	StartTime *Timestamp `json:"startTime"`
	Players   *int       `json:"players"`

	present map[string]bool
}

// DecodeRoomInfo parses a ROOM_INFO payload. The payload may also arrive as
// a JSON string holding the object.
func DecodeRoomInfo(data json.RawMessage) (RoomInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return RoomInfo{}, fmt.Errorf("unmarshal room info string: %w", err)
		}
		data = json.RawMessage(inner)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return RoomInfo{}, fmt.Errorf("unmarshal room info: %w", err)
	}

	var info RoomInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return RoomInfo{}, fmt.Errorf("unmarshal room info: %w", err)
	}
	info.present = make(map[string]bool, len(fields))
	for k := range fields {
		info.present[k] = true
	}
	return info, nil
}

func (r RoomInfo) has(field string) bool {
	return r.present[field]
}
