package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// ParseJSON decodes a JSON document into a Value Tree, keeping object
// members in document order.
func ParseJSON(data []byte) (Value, error) {
	if !gjson.ValidBytes(data) {
		return Value{}, fmt.Errorf("invalid JSON document")
	}
	return fromResult(gjson.ParseBytes(data))
}

func fromResult(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.Null:
		return NullValue(), nil
	case gjson.False:
		return BoolOf(false), nil
	case gjson.True:
		return BoolOf(true), nil
	case gjson.Number:
		return NumberFromText(r.Raw)
	case gjson.String:
		return StringOf(r.Str), nil
	}

	var err error
	if r.IsArray() {
		items := []Value{}
		r.ForEach(func(_, elem gjson.Result) bool {
			var item Value
			item, err = fromResult(elem)
			items = append(items, item)
			return err == nil
		})
		if err != nil {
			return Value{}, err
		}
		return SequenceOf(items...), nil
	}

	out := MappingOf()
	r.ForEach(func(key, elem gjson.Result) bool {
		var item Value
		item, err = fromResult(elem)
		out.members = setMember(out.members, key.Str, item)
		return err == nil
	})
	if err != nil {
		return Value{}, err
	}
	return out, nil
}

// MarshalJSON encodes v, keeping mapping members in insertion order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Indent returns v as indented JSON, used for human-facing diffs.
func (v Value) Indent() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return v.Text()
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return string(data)
	}
	return out.String()
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case Number:
		if json.Valid([]byte(v.text)) {
			buf.WriteString(v.text)
		} else {
			buf.WriteString(strconv.FormatFloat(v.number, 'g', -1, 64))
		}
	case String:
		return encodeString(buf, v.text)
	case Sequence:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Mapping:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode %s", v.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// FromAny converts decoded Go data (as produced by encoding/json, TOML or
// YAML decoders) into a Value Tree. Map keys are sorted because Go maps
// carry no order.
func FromAny(in any) (Value, error) {
	switch x := in.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return x, nil
	case bool:
		return BoolOf(x), nil
	case int:
		return IntOf(int64(x)), nil
	case int8:
		return IntOf(int64(x)), nil
	case int16:
		return IntOf(int64(x)), nil
	case int32:
		return IntOf(int64(x)), nil
	case int64:
		return IntOf(x), nil
	case uint8:
		return IntOf(int64(x)), nil
	case uint16:
		return IntOf(int64(x)), nil
	case uint32:
		return IntOf(int64(x)), nil
	case uint64:
		return NumberFromText(strconv.FormatUint(x, 10))
	case float32:
		return finite(float64(x))
	case float64:
		return finite(x)
	case json.Number:
		return NumberFromText(x.String())
	case string:
		return StringOf(x), nil
	case time.Time:
		return StringOf(x.Format(time.RFC3339Nano)), nil
	case []any:
		items := make([]Value, 0, len(x))
		for i, elem := range x {
			item, err := FromAny(elem)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return SequenceOf(items...), nil
	case []map[string]any:
		items := make([]Value, 0, len(x))
		for i, elem := range x {
			item, err := FromAny(elem)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, item)
		}
		return SequenceOf(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, 0, len(keys))
		for _, k := range keys {
			item, err := FromAny(x[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			members = append(members, Member{Key: k, Value: item})
		}
		return MappingOf(members...), nil
	case fmt.Stringer:
		return StringOf(x.String()), nil
	default:
		return Value{}, fmt.Errorf("unsupported type %T", in)
	}
}

func finite(f float64) (Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, fmt.Errorf("number %v has no JSON representation", f)
	}
	return FloatOf(f), nil
}
