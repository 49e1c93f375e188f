// Package payload implements the schemaless metadata map attached to every
// vector: an unordered field name to JSON-like value mapping with typed
// accessors, modeled on polarisdb-core's Payload type.
package payload

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Payload is a mapping from field name to a JSON-like value (string,
// float64, bool, nil, []any, map[string]any). Field order is not
// observable.
type Payload map[string]any

// New returns an empty payload.
func New() Payload { return make(Payload) }

// FromMap wraps an existing map without copying.
func FromMap(m map[string]any) Payload {
	if m == nil {
		return New()
	}
	return Payload(m)
}

// Clone returns a shallow copy; nested values (arrays, objects) are shared.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// With sets a field and returns the payload for chaining.
func (p Payload) With(key string, value any) Payload {
	p[key] = value
	return p
}

// Get returns the raw value for key and whether it was present.
func (p Payload) Get(key string) (any, bool) {
	v, ok := p[key]
	return v, ok
}

// GetString returns key's value as a string, if present and string-typed.
func (p Payload) GetString(key string) (string, bool) {
	v, ok := p[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetFloat64 returns key's value as a float64, accepting any numeric
// representation a JSON decode may have produced (float64 or int-family).
func (p Payload) GetFloat64(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	return asFloat64(v)
}

// GetInt64 returns key's value truncated to an int64, if numeric.
func (p Payload) GetInt64(key string) (int64, bool) {
	f, ok := p.GetFloat64(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// GetBool returns key's value as a bool, if present and bool-typed.
func (p Payload) GetBool(key string) (bool, bool) {
	v, ok := p[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// GetArray returns key's value as a slice, if present and array-typed.
func (p Payload) GetArray(key string) ([]any, bool) {
	v, ok := p[key]
	if !ok {
		return nil, false
	}
	a, ok := v.([]any)
	return a, ok
}

// Remove deletes key, returning the previous value if any.
func (p Payload) Remove(key string) (any, bool) {
	v, ok := p[key]
	delete(p, key)
	return v, ok
}

// Has reports whether key is present, regardless of value (including nil).
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// MarshalJSON and UnmarshalJSON route through goccy/go-json's encoder so
// callers treating Payload as map[string]any get identical wire output to
// encoding/json while the collection's own (de)serialization paths benefit
// from go-json's lower allocation count on the hot insert/recovery paths.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any(p))
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*p = m
	return nil
}

// Equal reports structural equality between two JSON-like values, used by
// filter eq/ne evaluation. Cross-type comparisons are false, not an error,
// per the tagged-sum-type design in the source specification.
func Equal(a, b any) bool {
	af, aIsNum := asFloat64(a)
	bf, bIsNum := asFloat64(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// CanonicalString renders a value as the canonical, type-preserving string
// used to key the bitmap inverted index: strings as themselves, numbers in
// their textual decimal form, bools as "true"/"false", null as "null".
func CanonicalString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	default:
		if f, ok := asFloat64(v); ok {
			return formatNumber(f)
		}
		return fmt.Sprintf("%v", v)
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
