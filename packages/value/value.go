package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Member is a single key/value pair of a mapping.
type Member struct {
	Key   string
	Value Value
}

// Value is a node of the Value Tree. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	text    string
	items   []Value
	members []Member
}

// NullValue returns the null value.
func NullValue() Value {
	return Value{}
}

// BoolOf returns a bool value.
func BoolOf(b bool) Value {
	return Value{kind: Bool, boolean: b}
}

// IntOf returns a number value holding an integer.
func IntOf(i int64) Value {
	return Value{kind: Number, number: float64(i), text: strconv.FormatInt(i, 10)}
}

// FloatOf returns a number value. NaN and infinities are rejected by the JSON
// encoder, so callers should not construct them.
func FloatOf(f float64) Value {
	return Value{kind: Number, number: f, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NumberFromText parses a numeric literal and keeps the literal as the
// textual form of the number. Literals beyond float64 range are clamped to
// the largest finite magnitude.
func NumberFromText(s string) (Value, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return Value{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if err == nil && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return Value{}, fmt.Errorf("invalid number %q", s)
	}
	if math.IsInf(f, 0) {
		f = math.Copysign(math.MaxFloat64, f)
	}
	return Value{kind: Number, number: f, text: s}, nil
}

// StringOf returns a string value.
func StringOf(s string) Value {
	return Value{kind: String, text: s}
}

// SequenceOf returns a sequence holding items in order.
func SequenceOf(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Sequence, items: items}
}

// MappingOf returns a mapping holding members in order. A repeated key
// replaces the earlier member in place.
func MappingOf(members ...Member) Value {
	v := Value{kind: Mapping, members: make([]Member, 0, len(members))}
	for _, m := range members {
		v.members = setMember(v.members, m.Key, m.Value)
	}
	return v
}

func setMember(members []Member, key string, val Value) []Member {
	for i := range members {
		if members[i].Key == key {
			members[i].Value = val
			return members
		}
	}
	return append(members, Member{Key: key, Value: val})
}

// With returns a copy of the mapping v with key set to val. It panics if v
// is not a mapping.
func (v Value) With(key string, val Value) Value {
	if v.kind != Mapping {
		panic("value: With called on " + v.kind.String())
	}
	members := make([]Member, len(v.members), len(v.members)+1)
	copy(members, v.members)
	return Value{kind: Mapping, members: setMember(members, key, val)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

// IsScalar reports whether v is null, bool, number or string.
func (v Value) IsScalar() bool {
	return v.kind != Sequence && v.kind != Mapping
}

// Bool returns the payload of a bool value.
func (v Value) Bool() bool { return v.boolean }

// Float returns the payload of a number value.
func (v Value) Float() float64 { return v.number }

// Int returns the number as an int64 when its literal is an integer.
func (v Value) Int() (int64, bool) {
	if v.kind != Number {
		return 0, false
	}
	i, err := strconv.ParseInt(v.text, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// Str returns the payload of a string value.
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}
	return v.text
}

// Items returns the elements of a sequence.
func (v Value) Items() []Value { return v.items }

// Members returns the members of a mapping in insertion order.
func (v Value) Members() []Member { return v.members }

// Len returns the number of elements of a sequence or members of a mapping.
func (v Value) Len() int {
	switch v.kind {
	case Sequence:
		return len(v.items)
	case Mapping:
		return len(v.members)
	default:
		return 0
	}
}

// Get returns the member of a mapping named key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Mapping {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Index returns the i-th element of a sequence.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Sequence || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Text returns the textual form used for interpolation: strings are
// returned raw, numbers as their literal, containers as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.boolean)
	case Number, String:
		return v.text
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return fmt.Sprintf("<%s>", v.kind)
		}
		return string(data)
	}
}

// String renders v for messages: strings are quoted, everything else is
// compact JSON.
func (v Value) String() string {
	if v.kind == String {
		return strconv.Quote(v.text)
	}
	return v.Text()
}

// Equal reports whether a and b are structurally equal. Numbers compare by
// value and mapping member order is ignored.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.boolean == b.boolean
	case Number:
		return NumbersEqual(a, b)
	case String:
		return a.text == b.text
	case Sequence:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Mapping:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			other, ok := b.Get(m.Key)
			if !ok || !Equal(m.Value, other) {
				return false
			}
		}
		return true
	}
	return false
}

// NumbersEqual compares two numbers by value. Integers are compared exactly
// so large identifiers do not collapse under float64 rounding.
func NumbersEqual(a, b Value) bool {
	if ai, ok := a.Int(); ok {
		if bi, ok := b.Int(); ok {
			return ai == bi
		}
	}
	return a.number == b.number
}

// Compare orders two numbers, returning -1, 0 or 1.
func Compare(a, b Value) int {
	if NumbersEqual(a, b) {
		return 0
	}
	if ai, ok := a.Int(); ok {
		if bi, ok := b.Int(); ok {
			if ai < bi {
				return -1
			}
			return 1
		}
	}
	if a.number < b.number {
		return -1
	}
	return 1
}
