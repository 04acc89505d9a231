package token

import (
	"encoding/json"
	"strconv"
)

// Claims is the key/value payload carried by a token. Values round-trip through
// JSON, so numbers decode as float64 and nested objects as map[string]any.
type Claims map[string]any

// Clone returns a shallow copy; a nil receiver yields an empty map.
func (c Claims) Clone() Claims {
	out := make(Claims, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// SID returns the session id claim, or "" when absent.
func (c Claims) SID() string {
	return c.String(KeySID)
}

// String returns the claim under key rendered as a string. Numeric JSON values
// are formatted without a fractional part when they are whole.
func (c Claims) String(key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Bool reports whether key holds a truthy value.
func (c Claims) Bool(key string) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return false
	}
}

// Has reports whether key is present.
func (c Claims) Has(key string) bool {
	_, ok := c[key]
	return ok
}
