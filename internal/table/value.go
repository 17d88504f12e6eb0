package table

import (
	"math"
	"strconv"
	"time"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	Missing Kind = iota
	String
	Number
	Time
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Time:
		return "time"
	default:
		return "missing"
	}
}

// DateLayout is used when a Time value is rendered as text.
const DateLayout = "2006-01-02"

// Value is a single typed cell. The zero Value is Missing.
type Value struct {
	kind Kind
	s    string
	f    float64
	t    time.Time
}

// Null returns a Missing value.
func Null() Value { return Value{} }

// Str wraps a string. Use Null for absent data; an empty string is still a String.
func Str(s string) Value { return Value{kind: String, s: s} }

// Num wraps a float. NaN is stored as Missing.
func Num(f float64) Value {
	if math.IsNaN(f) {
		return Value{}
	}
	return Value{kind: Number, f: f}
}

// At wraps a time. The zero time is stored as Missing.
func At(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	return Value{kind: Time, t: t}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsMissing() bool { return v.kind == Missing }
func (v Value) IsNumber() bool  { return v.kind == Number }

// Float returns the numeric payload. Strings are not coerced.
func (v Value) Float() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	return v.f, true
}

// Time returns the time payload.
func (v Value) Time() (time.Time, bool) {
	if v.kind != Time {
		return time.Time{}, false
	}
	return v.t, true
}

// Text returns the string payload.
func (v Value) Text() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

// String renders the value for grouping keys and export. Missing renders as "".
func (v Value) String() string {
	switch v.kind {
	case String:
		return v.s
	case Number:
		return FormatNumber(v.f)
	case Time:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 {
			return v.t.Format(DateLayout)
		}
		return v.t.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case String:
		return v.s == o.s
	case Number:
		return v.f == o.f
	case Time:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// FormatNumber renders integral floats without a fractional part ("930", not "930.0").
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
