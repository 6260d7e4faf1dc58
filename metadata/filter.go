package metadata

import (
	"fmt"
)

// Operator identifies a filter comparison.
type Operator string

// Supported filter operators.
const (
	OpEqual        Operator = "$eq"
	OpGreaterThan  Operator = "$gt"
	OpGreaterEqual Operator = "$gte"
	OpLessThan     Operator = "$lt"
	OpLessEqual    Operator = "$lte"
)

// ErrInvalidFilter indicates an unknown operator or malformed condition.
type ErrInvalidFilter struct {
	Field    string
	Operator string
}

func (e *ErrInvalidFilter) Error() string {
	return fmt.Sprintf("invalid filter on field %q: unknown operator %q", e.Field, e.Operator)
}

// Filter is a single field condition.
type Filter struct {
	Key      string
	Operator Operator
	Value    any
}

// FilterSet is a conjunction of filters (AND logic).
type FilterSet struct {
	Filters []Filter
}

// Empty returns true if the set contains no conditions.
func (fs *FilterSet) Empty() bool {
	return fs == nil || len(fs.Filters) == 0
}

// ParseFilterSet parses the filter DSL consumed by search operations.
//
// Each entry maps a field name to either a literal (exact match) or an
// object with exactly one comparison operator:
//
//	{"category": "tech", "year": {"$gte": 2020}}
//
// Unknown operators fail with ErrInvalidFilter.
func ParseFilterSet(raw map[string]any) (*FilterSet, error) {
	if len(raw) == 0 {
		return &FilterSet{}, nil
	}

	fs := &FilterSet{Filters: make([]Filter, 0, len(raw))}
	for key, cond := range raw {
		obj, ok := cond.(map[string]any)
		if !ok {
			fs.Filters = append(fs.Filters, Filter{Key: key, Operator: OpEqual, Value: cond})
			continue
		}
		for op, val := range obj {
			switch Operator(op) {
			case OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual:
				fs.Filters = append(fs.Filters, Filter{Key: key, Operator: Operator(op), Value: val})
			default:
				return nil, &ErrInvalidFilter{Field: key, Operator: op}
			}
		}
	}
	return fs, nil
}

// Matches checks if the provided metadata matches this filter.
func (f *Filter) Matches(doc Metadata) bool {
	value, exists := doc[f.Key]
	if !exists {
		return false
	}

	switch f.Operator {
	case OpEqual:
		return compareEqual(value, f.Value)
	case OpGreaterThan:
		return compareNumeric(value, f.Value, func(a, b float64) bool { return a > b })
	case OpGreaterEqual:
		return compareNumeric(value, f.Value, func(a, b float64) bool { return a >= b })
	case OpLessThan:
		return compareNumeric(value, f.Value, func(a, b float64) bool { return a < b })
	case OpLessEqual:
		return compareNumeric(value, f.Value, func(a, b float64) bool { return a <= b })
	default:
		return false
	}
}

// Matches checks if the provided metadata matches all filters in the set.
func (fs *FilterSet) Matches(doc Metadata) bool {
	if fs == nil {
		return true
	}
	for i := range fs.Filters {
		if !fs.Filters[i].Matches(doc) {
			return false
		}
	}
	return true
}

// EqualityFilters returns the subset of exact-match conditions.
// These can be served from the inverted index; comparisons cannot.
func (fs *FilterSet) EqualityFilters() []Filter {
	if fs == nil {
		return nil
	}
	var out []Filter
	for _, f := range fs.Filters {
		if f.Operator == OpEqual {
			out = append(out, f)
		}
	}
	return out
}

func compareEqual(a, b any) bool {
	af, aNum := asFloat64(a)
	bf, bNum := asFloat64(b)
	if aNum && bNum {
		return af == bf
	}
	if aNum != bNum {
		return false
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !compareEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func compareNumeric(a, b any, cmp func(a, b float64) bool) bool {
	af, aNum := asFloat64(a)
	bf, bNum := asFloat64(b)
	if !aNum || !bNum {
		return false
	}
	return cmp(af, bf)
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
