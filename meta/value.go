// Package meta holds the grouped key/value documents that metadata tools
// such as exiftool produce for a media file, e.g. {"Time": {"DateTimeOriginal": ...}}.
package meta

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind is the type of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindMap
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	default:
		return "null"
	}
}

// Value is a node of a metadata document. The zero Value is Null. Values are
// never modified in place; With returns a copy.
type Value struct {
	kind Kind
	str  string
	num  json.Number
	obj  map[string]Value
	arr  []Value
}

// Null is the empty value returned by every failed lookup.
var Null = Value{}

// String returns a string Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a number Value from its decimal text.
func Number(n json.Number) Value {
	return Value{kind: KindNumber, num: n}
}

// Map returns a map Value. The map is copied.
func Map(m map[string]Value) Value {
	obj := make(map[string]Value, len(m))
	for k, v := range m {
		obj[k] = v
	}
	return Value{kind: KindMap, obj: obj}
}

// FromAny converts the output of a JSON decoder (or any similar tree of
// maps, slices, strings and numbers) into a Value. Unknown types become Null.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return String(strconv.FormatBool(t))
	case json.Number:
		return Number(t)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Null
		}
		return Number(json.Number(strconv.FormatFloat(t, 'f', -1, 64)))
	case float32:
		return FromAny(float64(t))
	case int:
		return Number(json.Number(strconv.Itoa(t)))
	case int64:
		return Number(json.Number(strconv.FormatInt(t, 10)))
	case uint32:
		return Number(json.Number(strconv.FormatUint(uint64(t), 10)))
	case uint64:
		return Number(json.Number(strconv.FormatUint(t, 10)))
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = FromAny(e)
		}
		return Value{kind: KindMap, obj: obj}
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = FromAny(e)
		}
		return Value{kind: KindArray, arr: arr}
	default:
		return Null
	}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Get walks the map keys in path. Any missing key or non-map step yields Null.
func (v Value) Get(path ...string) Value {
	cur := v
	for _, key := range path {
		if cur.kind != KindMap {
			return Null
		}
		next, ok := cur.obj[key]
		if !ok {
			return Null
		}
		cur = next
	}
	return cur
}

// Text returns the string held by a String value.
func (v Value) Text() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Int64 returns a Number value that is integral and fits in an int64.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if i, err := v.num.Int64(); err == nil {
		return i, true
	}
	f, err := v.num.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Uint32 returns a Number value that is integral, non-negative and fits in 32 bits.
func (v Value) Uint32() (uint32, bool) {
	i, ok := v.Int64()
	if !ok || i < 0 || i > math.MaxUint32 {
		return 0, false
	}
	return uint32(i), true
}

// Float64 returns the value of a Number.
func (v Value) Float64() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := v.num.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

// Keys returns the sorted keys of a Map value.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of elements of an Array or entries of a Map.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.obj)
	}
	return 0
}

// Index returns element i of an Array, or Null.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Null
	}
	return v.arr[i]
}

// StringField looks up doc[group][field] as a string.
func (v Value) StringField(group, field string) (string, bool) {
	return v.Get(group, field).Text()
}

// NumberField looks up doc[group][field] as an unsigned 32-bit integer.
// Strings holding digits do not count.
func (v Value) NumberField(group, field string) (uint32, bool) {
	return v.Get(group, field).Uint32()
}

// FloatField looks up doc[group][field] as a float. Unlike NumberField it
// also accepts a string holding a plain decimal number.
func (v Value) FloatField(group, field string) (float64, bool) {
	val := v.Get(group, field)
	if f, ok := val.Float64(); ok {
		return f, true
	}
	s, ok := val.Text()
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// With returns a copy of the document with doc[group][field] set to val.
// A non-map document or group is replaced by a map.
func (v Value) With(group, field string, val Value) Value {
	root := make(map[string]Value, v.Len()+1)
	if v.kind == KindMap {
		for k, e := range v.obj {
			root[k] = e
		}
	}
	old := root[group]
	grp := make(map[string]Value, old.Len()+1)
	if old.kind == KindMap {
		for k, e := range old.obj {
			grp[k] = e
		}
	}
	grp[field] = val
	root[group] = Value{kind: KindMap, obj: grp}
	return Value{kind: KindMap, obj: root}
}

// WithKey returns a copy of a map document with the top-level key set to val.
func (v Value) WithKey(key string, val Value) Value {
	obj := make(map[string]Value, v.Len()+1)
	if v.kind == KindMap {
		for k, e := range v.obj {
			obj[k] = e
		}
	}
	obj[key] = val
	return Value{kind: KindMap, obj: obj}
}

// Interface converts the value back into plain Go types, with numbers as json.Number.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindMap:
		m := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			m[k] = e.Interface()
		}
		return m
	case KindArray:
		a := make([]any, len(v.arr))
		for i, e := range v.arr {
			a[i] = e.Interface()
		}
		return a
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}
