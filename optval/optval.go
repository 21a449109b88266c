// Package optval provides the discriminated option-value type and the
// string-keyed option map shared by the preprocessor driver and its
// transformation steps.
package optval

import "strconv"

// Kind identifies which field of a Value is meaningful.
type Kind int

const (
	// KindBool holds a boolean payload.
	KindBool Kind = iota
	// KindInt holds a signed 32-bit integer payload.
	KindInt
	// KindFloat holds a 64-bit IEEE float payload.
	KindFloat
	// KindChar holds a single-rune payload.
	KindChar
	// KindString holds a UTF-8 string payload.
	KindString
)

// Value is a discriminated union holding exactly one of bool, int32,
// float64, rune or string. The zero Value is a KindBool false.
type Value struct {
	kind Kind
	b    bool
	i    int32
	f    float64
	c    rune
	s    string
}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs a signed 32-bit integer Value.
func Int(i int32) Value { return Value{kind: KindInt, i: i} }

// Float constructs a 64-bit float Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Char constructs a single-character Value.
func Char(c rune) Value { return Value{kind: KindChar, c: c} }

// String constructs a UTF-8 string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind reports which payload is meaningful.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean payload; false if v is not KindBool.
func (v Value) AsBool() bool { return v.kind == KindBool && v.b }

// AsInt returns the int32 payload; 0 if v is not KindInt.
func (v Value) AsInt() int32 {
	if v.kind == KindInt {
		return v.i
	}
	return 0
}

// AsFloat returns the float64 payload; 0 if v is not KindFloat.
func (v Value) AsFloat() float64 {
	if v.kind == KindFloat {
		return v.f
	}
	return 0
}

// AsChar returns the rune payload; 0 if v is not KindChar.
func (v Value) AsChar() rune {
	if v.kind == KindChar {
		return v.c
	}
	return 0
}

// AsString returns the string payload; "" if v is not KindString.
func (v Value) AsString() string {
	if v.kind == KindString {
		return v.s
	}
	return ""
}

// String renders v the way the CLI's verbose diagnostic channel does: one
// line per option, stringified per its tag.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindChar:
		return string(v.c)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// Map is a string-keyed collection of Values, unique by key, insertion
// order irrelevant. It is built by the CLI layer before Preprocessor.Process
// is invoked and is treated as read-only for the lifetime of one pipeline
// run.
type Map map[string]Value

// Bool returns the boolean value stored at key, or def if the key is absent
// or holds a different kind.
func (m Map) Bool(key string, def bool) bool {
	if v, ok := m[key]; ok && v.kind == KindBool {
		return v.b
	}
	return def
}

// Int returns the int32 value stored at key, or def if the key is absent or
// holds a different kind.
func (m Map) Int(key string, def int32) int32 {
	if v, ok := m[key]; ok && v.kind == KindInt {
		return v.i
	}
	return def
}

// Float returns the float64 value stored at key, or def if the key is
// absent or holds a different kind.
func (m Map) Float(key string, def float64) float64 {
	if v, ok := m[key]; ok && v.kind == KindFloat {
		return v.f
	}
	return def
}

// Char returns the rune value stored at key, or def if the key is absent or
// holds a different kind.
func (m Map) Char(key string, def rune) rune {
	if v, ok := m[key]; ok && v.kind == KindChar {
		return v.c
	}
	return def
}

// String returns the string value stored at key, or def if the key is
// absent or holds a different kind.
func (m Map) String(key string, def string) string {
	if v, ok := m[key]; ok && v.kind == KindString {
		return v.s
	}
	return def
}

// Set stores v at key, overwriting any existing value.
func (m Map) Set(key string, v Value) { m[key] = v }

// Keys returns the option keys in an unspecified order, for diagnostic
// enumeration only.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
