package state

import (
	"fmt"
	"strings"
)

// Kind tags a Validator variant.
type Kind int

const (
	// KindTypeCheck rejects values whose runtime type is not allowed.
	KindTypeCheck Kind = iota + 1

	// KindRange clamps (or, when strict, rejects) numbers outside [Min, Max].
	KindRange

	// KindProtect marks the cell write-only to outside readers.
	KindProtect

	// KindPersist marks the cell as written through to a KV backend.
	KindPersist
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindTypeCheck:
		return "type"
	case KindRange:
		return "range"
	case KindProtect:
		return "protect"
	case KindPersist:
		return "persist"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Validator is one stage of a cell's pipeline. Only the fields relevant to
// Kind are set.
type Validator struct {
	Kind Kind

	// Types lists allowed type names (KindTypeCheck).
	Types []string

	// Min and Max bound the value (KindRange). Nil means unbounded.
	Min *float64
	Max *float64

	// Strict rejects out-of-range values instead of clamping (KindRange).
	Strict bool
}

// TypeCheck builds a type validator from a comma-separated spec.
func TypeCheck(spec string) (Validator, error) {
	types, err := ParseTypeSpec(spec)
	if err != nil {
		return Validator{}, err
	}
	return Validator{Kind: KindTypeCheck, Types: types}, nil
}

// Range builds a range validator. Pass nil for an open bound.
func Range(min, max *float64, strict bool) Validator {
	return Validator{Kind: KindRange, Min: min, Max: max, Strict: strict}
}

// Apply runs the validator against v, returning the (possibly clamped)
// value or a *ValidationError.
func (v Validator) Apply(value any) (any, error) {
	switch v.Kind {
	case KindTypeCheck:
		for _, name := range v.Types {
			if isType(value, name) {
				return value, nil
			}
		}
		return nil, &ValidationError{
			Value:  value,
			Reason: fmt.Sprintf("expected %s, got %s", strings.Join(v.Types, ", "), TypeName(value)),
		}

	case KindRange:
		return v.applyRange(value)

	case KindProtect, KindPersist:
		return value, nil

	default:
		return nil, fmt.Errorf("unknown validator kind %v", v.Kind)
	}
}

func (v Validator) applyRange(value any) (any, error) {
	// Unset values pass through; type checks decide whether nil is allowed
	if value == nil {
		return nil, nil
	}

	f, ok := toFloat(value)
	if !ok {
		return nil, &ValidationError{
			Value:  value,
			Reason: fmt.Sprintf("expected number, got %s", TypeName(value)),
		}
	}

	if v.Min != nil && f < *v.Min {
		if v.Strict {
			return nil, &ValidationError{Value: value, Reason: v.describe(f)}
		}
		return v.clamp(*v.Min, value, true), nil
	}
	if v.Max != nil && f > *v.Max {
		if v.Strict {
			return nil, &ValidationError{Value: value, Reason: v.describe(f)}
		}
		return v.clamp(*v.Max, value, false), nil
	}
	return value, nil
}

// clamp converts bound to the kind of value. When rounding pushes the result
// past the opposite bound (no integer fits the range), the bound itself is
// returned as float64.
func (v Validator) clamp(bound float64, value any, lower bool) any {
	out := fromFloat(bound, value, lower)
	f, _ := toFloat(out)
	if (v.Min != nil && f < *v.Min) || (v.Max != nil && f > *v.Max) {
		return bound
	}
	return out
}

func (v Validator) describe(f float64) string {
	switch {
	case v.Min != nil && v.Max != nil:
		return fmt.Sprintf("%g outside range %g - %g", f, *v.Min, *v.Max)
	case v.Min != nil:
		return fmt.Sprintf("%g < %g", f, *v.Min)
	default:
		return fmt.Sprintf("%g > %g", f, *v.Max)
	}
}
