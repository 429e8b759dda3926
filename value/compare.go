package value

// Ordering is the relation CMP records between two values.
type Ordering int

const (
	Less Ordering = iota
	Equal
	Greater
	// Unordered means the values differ but have no order (bools).
	Unordered
)

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "unordered"
	}
}

// Compare orders a against b. Ints and floats compare numerically with
// each other, strings lexically, bools only by equality.
func Compare(a, b Value) (Ordering, error) {
	switch {
	case a.Kind == Int && b.Kind == Int:
		return order(a.I < b.I, a.I == b.I), nil
	case a.Kind.IsNumeric() && b.Kind.IsNumeric():
		x, y := a.AsFloat(), b.AsFloat()
		return order(x < y, x == y), nil
	case a.Kind == String && b.Kind == String:
		return order(a.S < b.S, a.S == b.S), nil
	case a.Kind == Bool && b.Kind == Bool:
		if a.B == b.B {
			return Equal, nil
		}
		return Unordered, nil
	default:
		return Unordered, mismatch("cmp", a, b)
	}
}

func order(less, equal bool) Ordering {
	switch {
	case less:
		return Less
	case equal:
		return Equal
	default:
		return Greater
	}
}
