package packr

import (
	"fmt"
	"regexp"
)

// Kind identifies which scalar or container a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat  // 32-bit-intent fixed point (FLOAT16/FLOAT32 tier)
	KindDouble // full 64-bit IEEE-754
	KindString
	KindMAC
	KindBinary
	KindArray
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindMAC:
		return "mac"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Field is a name/value pair inside an object, in encounter order.
type Field struct {
	Name  string
	Value *Value
}

// Value is the logical value-tree adapter PACKR accepts and produces.
// The JSON tokenizer/emitter that translates to/from this tree is an
// external collaborator; PACKR only knows this shape.
type Value struct {
	kind Kind

	b     bool
	i     int64
	f     float64
	s     string
	mac   [6]byte
	bin   []byte
	arr   []*Value
	obj   []Field
}

var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2})([:-])([0-9A-Fa-f]{2})([:-])([0-9A-Fa-f]{2})([:-])([0-9A-Fa-f]{2})([:-])([0-9A-Fa-f]{2})([:-])([0-9A-Fa-f]{2})$`)

// Null returns the null value.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(v bool) *Value { return &Value{kind: KindBool, b: v} }

// Int returns an integer value.
func Int(v int64) *Value { return &Value{kind: KindInt, i: v} }

// Float returns a 32-bit-intent floating point value, routed through the
// FLOAT16/FLOAT32 fixed-point tiers on encode.
func Float(v float64) *Value { return &Value{kind: KindFloat, f: v} }

// Double returns a full-precision floating point value, always emitted as
// DOUBLE on encode.
func Double(v float64) *Value { return &Value{kind: KindDouble, f: v} }

// Str returns a string value. If s matches the MAC address pattern
// (colon- or dash-separated hex octets), ParseMACString is used to
// recognize it during encoding; callers may also construct a MAC value
// explicitly with MAC.
func Str(v string) *Value { return &Value{kind: KindString, s: v} }

// MAC returns a MAC address value from 6 raw bytes.
func MAC(addr [6]byte) *Value { return &Value{kind: KindMAC, mac: addr} }

// ParseMACString parses "AA:BB:CC:DD:EE:FF" or "AA-BB-CC-DD-EE-FF" into a
// MAC value. It returns ok=false if s does not match the pattern.
func ParseMACString(s string) (*Value, bool) {
	m := macPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	var addr [6]byte
	octets := []string{m[1], m[3], m[5], m[7], m[9], m[11]}
	for i, oc := range octets {
		var b byte
		if _, err := fmt.Sscanf(oc, "%02x", &b); err != nil {
			return nil, false
		}
		addr[i] = b
	}
	return &Value{kind: KindMAC, mac: addr}, true
}

// Bin returns a binary (opaque byte) value.
func Bin(v []byte) *Value { return &Value{kind: KindBinary, bin: v} }

// Arr returns an array value.
func Arr(values ...*Value) *Value { return &Value{kind: KindArray, arr: values} }

// Obj returns an object value from ordered fields.
func Obj(fields ...Field) *Value { return &Value{kind: KindObject, obj: fields} }

// F builds a Field, for use with Obj.
func F(name string, v *Value) Field { return Field{Name: name, Value: v} }

// Kind returns the value's kind.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// MACString renders a MAC value as colon-separated uppercase hex.
func (v *Value) MACString() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		v.mac[0], v.mac[1], v.mac[2], v.mac[3], v.mac[4], v.mac[5])
}

// Get returns the field named key from an object value, or nil.
func (v *Value) Get(key string) *Value {
	if v == nil || v.kind != KindObject {
		return nil
	}
	for _, f := range v.obj {
		if f.Name == key {
			return f.Value
		}
	}
	return nil
}

// Len returns the number of elements/fields for array/object values.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// At returns the element at index i of an array value.
func (v *Value) At(i int) *Value {
	if v == nil || v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return nil
	}
	return v.arr[i]
}

// Keys returns an object value's field names in encounter order.
func (v *Value) Keys() []string {
	if v == nil || v.kind != KindObject {
		return nil
	}
	names := make([]string, len(v.obj))
	for i, f := range v.obj {
		names[i] = f.Name
	}
	return names
}

// AsBool returns the boolean payload of a KindBool value.
func (v *Value) AsBool() (bool, error) {
	if v == nil || v.kind != KindBool {
		return false, fmt.Errorf("packr: value is not bool, got %s", v.Kind())
	}
	return v.b, nil
}

// AsInt returns the integer payload of a KindInt value.
func (v *Value) AsInt() (int64, error) {
	if v == nil || v.kind != KindInt {
		return 0, fmt.Errorf("packr: value is not int, got %s", v.Kind())
	}
	return v.i, nil
}

// AsFloat returns the numeric payload of a KindFloat or KindDouble value.
func (v *Value) AsFloat() (float64, error) {
	if v == nil || (v.kind != KindFloat && v.kind != KindDouble) {
		return 0, fmt.Errorf("packr: value is not float, got %s", v.Kind())
	}
	return v.f, nil
}

// AsString returns the string payload of a KindString value.
func (v *Value) AsString() (string, error) {
	if v == nil || v.kind != KindString {
		return "", fmt.Errorf("packr: value is not string, got %s", v.Kind())
	}
	return v.s, nil
}

// AsBinary returns the byte payload of a KindBinary value.
func (v *Value) AsBinary() ([]byte, error) {
	if v == nil || v.kind != KindBinary {
		return nil, fmt.Errorf("packr: value is not binary, got %s", v.Kind())
	}
	return v.bin, nil
}
