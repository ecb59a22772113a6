package bridge

import (
	"encoding/json"
	"fmt"
)

// Device represents a lighting device known to the bridge, discovered or
// manually registered.
type Device struct {
	ID           string       `json:"id"`
	IP           string       `json:"ip,omitempty"`
	ModelNumber  string       `json:"model_number,omitempty"`
	DeviceType   string       `json:"device_type,omitempty"`
	Description  string       `json:"description,omitempty"`
	Enabled      bool         `json:"enabled"`
	Manual       bool         `json:"manual"`
	Discovered   bool         `json:"discovered"`
	Configured   bool         `json:"configured"`
	Offline      bool         `json:"offline"`
	Stale        bool         `json:"stale"`
	Capabilities Capabilities `json:"capabilities"`
	LEDCount     int          `json:"led_count,omitempty"`
	LengthMeters float64      `json:"length_meters,omitempty"`
	SegmentCount int          `json:"segment_count,omitempty"`
	LastSeen     string       `json:"last_seen,omitempty"`
	FirstSeen    string       `json:"first_seen,omitempty"`
}

// Capabilities describes what a device can do.
type Capabilities struct {
	Color       bool `json:"color"`
	Brightness  bool `json:"brightness"`
	Temperature bool `json:"temperature"`
}

// Mapping binds a span of DMX channels to a device.
// Range mappings cover Length consecutive channels with one field each
// (Fields); discrete mappings bind a single channel to one Field.
type Mapping struct {
	ID          int      `json:"id"`
	DeviceID    string   `json:"device_id"`
	Universe    int      `json:"universe"`
	Channel     int      `json:"channel"`
	Length      int      `json:"length"`
	MappingType string   `json:"mapping_type"`
	Fields      []string `json:"fields,omitempty"`
	Field       string   `json:"field,omitempty"`
}

// ChannelMapEntry is one slot in the bridge's channel map, keyed by
// universe in ChannelMap.
type ChannelMapEntry struct {
	DeviceID  string `json:"device_id"`
	Channel   int    `json:"channel"`
	Length    int    `json:"length"`
	MappingID int    `json:"mapping_id"`
}

// ChannelMap is the bridge's full channel assignment, universe number
// (as a string key, per the wire format) to its entries.
type ChannelMap map[string][]ChannelMapEntry

// LogEntry is one log record from the bridge, either fetched over REST or
// pushed through the log stream. Any JSON keys beyond the four well-known
// ones land in Extra, stringified.
type LogEntry struct {
	Timestamp string
	Level     string
	Logger    string
	Message   string
	Extra     map[string]string
}

// UnmarshalJSON splits the wire object into the known fields and Extra.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.Extra = nil
	for key, value := range raw {
		switch key {
		case "timestamp":
			e.Timestamp, _ = value.(string)
		case "level":
			e.Level, _ = value.(string)
		case "logger":
			e.Logger, _ = value.(string)
		case "message":
			e.Message, _ = value.(string)
		default:
			if e.Extra == nil {
				e.Extra = make(map[string]string)
			}
			e.Extra[key] = stringifyJSONValue(value)
		}
	}
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON: the four well-known fields
// go out under their lowercase wire keys and Extra keys are flattened back
// into the top-level object.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, 4+len(e.Extra))
	raw["timestamp"] = e.Timestamp
	raw["level"] = e.Level
	raw["logger"] = e.Logger
	raw["message"] = e.Message
	for key, value := range e.Extra {
		switch key {
		case "timestamp", "level", "logger", "message":
		default:
			raw[key] = value
		}
	}
	return json.Marshal(raw)
}

// stringifyJSONValue renders an arbitrary decoded JSON value as display text.
// Nested objects and arrays are re-encoded as compact JSON.
func stringifyJSONValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		// Keep integers free of a trailing ".0"
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

// LogsPage is the bridge's response to GET /logs.
type LogsPage struct {
	Logs   []LogEntry `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// SearchResult is the bridge's response to GET /logs/search.
type SearchResult struct {
	Logs  []LogEntry `json:"logs"`
	Count int        `json:"count"`
}

// Event is one system event pushed through the event stream. Data is kept
// untyped; event names are the bridge's contract, not ours.
type Event struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Health is the bridge's response to GET /health.
type Health struct {
	Status     string               `json:"status"`
	Subsystems map[string]Subsystem `json:"subsystems,omitempty"`
}

// Subsystem is the health of one bridge subsystem.
type Subsystem struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the bridge considers itself healthy.
func (h Health) OK() bool {
	return h.Status == "ok" || h.Status == "healthy"
}

// Status is the bridge's metrics snapshot from GET /status. The bridge is
// free to add sections, so it stays an open map of section name to fields.
type Status map[string]any

// Section returns one status section as a map, or nil when absent or not
// an object.
func (s Status) Section(name string) map[string]any {
	section, _ := s[name].(map[string]any)
	return section
}

// Int digs an integer out of a status section. Returns 0 when missing.
func (s Status) Int(section, key string) int {
	m := s.Section(section)
	if m == nil {
		return 0
	}
	value, ok := m[key].(float64)
	if !ok {
		return 0
	}
	return int(value)
}

// CommandResult is the bridge's acknowledgement of a device test or
// command submission.
type CommandResult struct {
	Status   string `json:"status"`
	DeviceID string `json:"device_id"`
}

// ReloadResult is the bridge's acknowledgement of POST /reload.
type ReloadResult struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}
