package connectors

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/xtctx/internal/core/domain"
)

// millisThreshold separates epoch seconds from epoch milliseconds.
const millisThreshold = 10_000_000_000

var commonRoles = map[string]domain.Role{
	"user":      domain.RoleUser,
	"human":     domain.RoleUser,
	"assistant": domain.RoleAssistant,
	"system":    domain.RoleSystem,
	"tool":      domain.RoleTool,
}

// NormalizeRole maps a tool-specific role to the fixed role set. extra is
// consulted before the common names. Unknown roles become system.
func NormalizeRole(value string, extra map[string]domain.Role) domain.Role {
	key := strings.ToLower(strings.TrimSpace(value))
	if r, ok := extra[key]; ok {
		return r
	}
	if r, ok := commonRoles[key]; ok {
		return r
	}
	return domain.RoleSystem
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp coerces a decoded JSON or SQL value to a UTC time.
// Numbers above 1e10 are epoch milliseconds, smaller ones epoch seconds.
// Numeric strings follow the same rule. Anything unparseable is the zero
// time, which no checkpoint ever accepts.
func ParseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case float64:
		return fromEpoch(t)
	case int64:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}
		}
		return fromEpoch(f)
	case []byte:
		return ParseTimestamp(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f)
		}
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC()
			}
		}
	}
	return time.Time{}
}

func fromEpoch(f float64) time.Time {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return time.Time{}
	}
	if f > millisThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// String returns the first string value found under keys.
func String(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			return s
		}
	}
	return ""
}

// Value returns the first non-nil value found under keys.
func Value(obj map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Object returns obj[key] when it is a JSON object.
func Object(obj map[string]any, key string) map[string]any {
	m, _ := obj[key].(map[string]any)
	return m
}

// Objects returns the JSON objects in obj[key], ignoring other elements.
func Objects(obj map[string]any, key string) ([]map[string]any, bool) {
	arr, ok := obj[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

// Bool accepts JSON booleans and the string "true".
func Bool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

// Scalar renders a decoded scalar as a string. Other values render empty.
func Scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	}
	return ""
}

// Text flattens message content that is either a string or an array of
// content blocks. Blocks contribute their "text" field, or a string
// "content" field for tool results.
func Text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			switch b := el.(type) {
			case string:
				parts = append(parts, b)
			case map[string]any:
				if s := String(b, "text"); s != "" {
					parts = append(parts, s)
					continue
				}
				if s := Text(b["content"]); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
