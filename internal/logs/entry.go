package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"clmeval/internal/logging"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      string
	Level     string
	Message   string
	Component string
	RunID     string
	Model     string
	Folder    string
	// Fields holds the remaining attributes rendered as strings.
	Fields map[string]string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// ParseEntry decodes a JSON log line. Lines that are not JSON objects are
// reported as not ok.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Entry{}, false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	take := func(key string) string {
		v, ok := raw[key]
		if !ok {
			return ""
		}
		delete(raw, key)
		return stringify(v)
	}
	e := Entry{
		Time:      take("ts"),
		Level:     take("level"),
		Message:   take("msg"),
		Component: take(logging.FieldComponent),
		RunID:     take(logging.FieldRunID),
		Model:     take(logging.FieldModel),
		Folder:    take(logging.FieldFolder),
	}
	if len(raw) > 0 {
		e.Fields = make(map[string]string, len(raw))
		for k, v := range raw {
			e.Fields[k] = stringify(v)
		}
	}
	return e, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// Filter narrows entries. Zero fields match everything; RunID matches by
// prefix so short ids from the history table work.
type Filter struct {
	RunID    string
	Model    string
	MinLevel string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.RunID != "" && !strings.HasPrefix(e.RunID, f.RunID) {
		return false
	}
	if f.Model != "" && e.Model != f.Model {
		return false
	}
	if floor, ok := levelRank[strings.ToLower(f.MinLevel)]; ok {
		if rank, known := levelRank[e.Level]; known && rank < floor {
			return false
		}
	}
	return true
}

// Format renders an entry on one line: time, level, subject, message, then
// remaining fields sorted by key.
func Format(e Entry) string {
	var b strings.Builder
	if e.Time != "" {
		b.WriteString(e.Time)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(e.Level))
	if e.Component != "" {
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	if subject := strings.Trim(e.Model+"/"+e.Folder, "/"); subject != "" {
		b.WriteString(subject)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, e.Fields[k])
	}
	return b.String()
}
