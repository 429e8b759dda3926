// Package value defines the typed values that flow through every stage of
// the compiler and the virtual machine.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the static or runtime type of a value.
type Kind int

const (
	Invalid Kind = iota
	Int
	Float
	Bool
	String
)

// Name returns the source-level name of the kind.
func (k Kind) Name() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case String:
		return "string"
	default:
		return "invalid"
	}
}

func (k Kind) String() string {
	return k.Name()
}

// IsNumeric tells if the kind takes part in arithmetic.
func (k Kind) IsNumeric() bool {
	return k == Int || k == Float
}

// ParseKind maps a type name to a kind. Both "string" and "str" are
// accepted.
func ParseKind(name string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int":
		return Int, true
	case "float":
		return Float, true
	case "bool":
		return Bool, true
	case "string", "str":
		return String, true
	default:
		return Invalid, false
	}
}

// Value is a single typed scalar.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	B    bool
	S    string
}

// NewInt creates an int value.
func NewInt(v int64) Value {
	return Value{Kind: Int, I: v}
}

// NewFloat creates a float value.
func NewFloat(v float64) Value {
	return Value{Kind: Float, F: v}
}

// NewBool creates a bool value.
func NewBool(v bool) Value {
	return Value{Kind: Bool, B: v}
}

// NewString creates a string value.
func NewString(v string) Value {
	return Value{Kind: String, S: v}
}

// Zero returns the default value of the kind. Unset variables read as this.
func Zero(k Kind) Value {
	switch k {
	case Float:
		return NewFloat(0)
	case Bool:
		return NewBool(false)
	case String:
		return NewString("")
	default:
		return NewInt(0)
	}
}

// IsValid tells if the value carries a kind.
func (v Value) IsValid() bool {
	return v.Kind != Invalid
}

// IsZero tells if the value equals the zero value of its kind.
func (v Value) IsZero() bool {
	switch v.Kind {
	case Int:
		return v.I == 0
	case Float:
		return v.F == 0
	case Bool:
		return !v.B
	case String:
		return v.S == ""
	default:
		return true
	}
}

// AsFloat widens numeric values to float64.
func (v Value) AsFloat() float64 {
	if v.Kind == Int {
		return float64(v.I)
	}

	return v.F
}

// Coerce converts v to kind k where the language allows an implicit
// conversion (int to float). Other combinations are returned unchanged.
func Coerce(v Value, k Kind) Value {
	if k == Float && v.Kind == Int {
		return NewFloat(float64(v.I))
	}

	return v
}

// String formats the value the way PRINT shows it. Floats always carry a
// fractional part so that 3.0 and 3 stay distinguishable.
func (v Value) String() string {
	switch v.Kind {
	case Int:
		return strconv.FormatInt(v.I, 10)
	case Float:
		s := strconv.FormatFloat(v.F, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case Bool:
		return strconv.FormatBool(v.B)
	case String:
		return v.S
	default:
		return "<invalid>"
	}
}

// Literal formats the value as it appears in listings. Strings are quoted.
func (v Value) Literal() string {
	if v.Kind == String {
		return strconv.Quote(v.S)
	}

	return v.String()
}

// Parse reads a value of kind k from text, as INPUT does.
func Parse(k Kind, text string) (Value, error) {
	text = strings.TrimRight(text, "\r\n")

	switch k {
	case Int:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse int %q: %w", text, err)
		}
		return NewInt(i), nil
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("parse float %q: %w", text, err)
		}
		return NewFloat(f), nil
	case Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("parse bool %q: %w", text, err)
		}
		return NewBool(b), nil
	case String:
		return NewString(text), nil
	default:
		return Value{}, fmt.Errorf("cannot parse value of kind %s", k)
	}
}
