package state

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Type names accepted by Type specs. A spec is a comma-separated list of
// these, e.g. "undefined, string".
const (
	TypeUndefined = "undefined"
	TypeNull      = "null"
	TypeString    = "string"
	TypeNumber    = "number"
	TypeInteger   = "integer"
	TypeBoolean   = "boolean"
	TypeObject    = "object"
	TypeArray     = "array"
	TypeAny       = "any"
)

var knownTypes = map[string]bool{
	TypeUndefined: true,
	TypeNull:      true,
	TypeString:    true,
	TypeNumber:    true,
	TypeInteger:   true,
	TypeBoolean:   true,
	TypeObject:    true,
	TypeArray:     true,
	TypeAny:       true,
}

// ParseTypeSpec splits and validates a comma-separated type spec.
func ParseTypeSpec(spec string) ([]string, error) {
	var types []string
	for _, part := range strings.Split(spec, ",") {
		name := strings.TrimSpace(strings.ToLower(part))
		if name == "" {
			continue
		}
		if !knownTypes[name] {
			return nil, fmt.Errorf("unknown type %q in spec %q", name, spec)
		}
		types = append(types, name)
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("empty type spec %q", spec)
	}
	return types, nil
}

// TypeName returns the most specific type name for v.
func TypeName(v any) string {
	if v == nil {
		return TypeNull
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return TypeString
	case reflect.Bool:
		return TypeBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger
	case reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Slice, reflect.Array:
		return TypeArray
	case reflect.Map, reflect.Struct:
		return TypeObject
	case reflect.Pointer:
		if rv.IsNil() {
			return TypeNull
		}
		return TypeName(rv.Elem().Interface())
	default:
		return rv.Kind().String()
	}
}

// isType reports whether v satisfies the named type.
func isType(v any, name string) bool {
	actual := TypeName(v)
	switch name {
	case TypeAny:
		return true
	case TypeUndefined, TypeNull:
		return actual == TypeNull
	case TypeNumber:
		return actual == TypeNumber || actual == TypeInteger
	case TypeInteger:
		if actual == TypeInteger {
			return true
		}
		f, ok := toFloat(v)
		return ok && actual == TypeNumber && f == math.Trunc(f) && !math.IsInf(f, 0)
	default:
		return actual == name
	}
}

// toFloat converts any numeric kind to float64.
func toFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// number holds a numeric value exactly in one of three forms.
type number struct {
	kind reflect.Kind // reflect.Int64, reflect.Uint64 or reflect.Float64
	i    int64
	u    uint64
	f    float64
}

func toNumber(v any) (number, bool) {
	if v == nil {
		return number{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: reflect.Int64, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return number{kind: reflect.Uint64, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) {
			return number{}, false
		}
		return number{kind: reflect.Float64, f: f}, true
	default:
		return number{}, false
	}
}

// integral returns n as an exact integer. It fails for floats with a
// fractional part or outside the int64/uint64 range.
func (n number) integral() (number, bool) {
	if n.kind != reflect.Float64 {
		return n, true
	}
	f := n.f
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return n, false
	}
	switch {
	case f >= -(1<<63) && f < 1<<63:
		return number{kind: reflect.Int64, i: int64(f)}, true
	case f >= 0 && f < 1<<64:
		return number{kind: reflect.Uint64, u: uint64(f)}, true
	default:
		return n, false
	}
}

// equal compares n and m without rounding integers through float64.
func (n number) equal(m number) bool {
	if n.kind == reflect.Float64 && m.kind == reflect.Float64 {
		return n.f == m.f
	}
	a, ok := n.integral()
	if !ok {
		return false
	}
	b, ok := m.integral()
	if !ok {
		return false
	}
	switch {
	case a.kind == reflect.Int64 && b.kind == reflect.Int64:
		return a.i == b.i
	case a.kind == reflect.Uint64 && b.kind == reflect.Uint64:
		return a.u == b.u
	case a.kind == reflect.Int64:
		return a.i >= 0 && uint64(a.i) == b.u
	default:
		return b.i >= 0 && uint64(b.i) == a.u
	}
}

// fromFloat converts the bound f to the numeric kind of like. Integer kinds
// round toward the inside of the range: up for a lower bound, down for an
// upper one. A bound the kind cannot hold is returned as float64.
func fromFloat(f float64, like any, lower bool) any {
	t := reflect.TypeOf(like)
	r := math.Floor(f)
	if lower {
		r = math.Ceil(f)
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if r < -(1<<63) || r >= 1<<63 {
			return f
		}
		n := int64(r)
		if reflect.Zero(t).OverflowInt(n) {
			return f
		}
		return reflect.ValueOf(n).Convert(t).Interface()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if r < 0 || r >= 1<<64 {
			return f
		}
		n := uint64(r)
		if reflect.Zero(t).OverflowUint(n) {
			return f
		}
		return reflect.ValueOf(n).Convert(t).Interface()

	case reflect.Float32:
		if reflect.Zero(t).OverflowFloat(f) {
			return f
		}
		n := float32(f)
		switch {
		case lower && float64(n) < f:
			n = math.Nextafter32(n, float32(math.Inf(1)))
		case !lower && float64(n) > f:
			n = math.Nextafter32(n, float32(math.Inf(-1)))
		}
		return reflect.ValueOf(n).Convert(t).Interface()

	default:
		return f
	}
}
