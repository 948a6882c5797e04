package matchengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrPropertyMissing signals that a filter's key is absent from the property
// bag and the operator needs the value to decide. It is a soft signal, not a
// hard failure: group evaluation treats it as "filter does not match", super
// condition evaluation treats it as "fall through to normal groups".
var ErrPropertyMissing = errors.New("matchengine: property not found")

// MatchProperty evaluates a single property filter against a property bag.
//
// Absence asymmetry: is_not_set and is_not match when the key is missing
// (absence counts as "not equal to anything"); every other operator reports
// ErrPropertyMissing. Callers that pass explicit overrides must merge them
// into properties first, making the value fully known.
func MatchProperty(filter PropertyFilter, properties map[string]any) (bool, error) {
	value, present := properties[filter.Key]

	if !present {
		switch filter.Operator {
		case OperatorIsNotSet, OperatorIsNot:
			return true, nil
		default:
			return false, ErrPropertyMissing
		}
	}

	switch filter.Operator {
	case OperatorIsSet:
		return true, nil

	case OperatorIsNotSet:
		return false, nil

	case OperatorExact:
		return anyOf(filter.Value, func(want any) bool {
			return looselyEqual(value, want)
		}), nil

	case OperatorIsNot:
		return !anyOf(filter.Value, func(want any) bool {
			return looselyEqual(value, want)
		}), nil

	case OperatorIContains:
		return anyOf(filter.Value, func(want any) bool {
			return strings.Contains(strings.ToLower(stringify(value)), strings.ToLower(stringify(want)))
		}), nil

	case OperatorNotIContains:
		return !anyOf(filter.Value, func(want any) bool {
			return strings.Contains(strings.ToLower(stringify(value)), strings.ToLower(stringify(want)))
		}), nil

	case OperatorRegex, OperatorNotRegex:
		matched, err := regexAnyOf(filter.Value, stringify(value))
		if err != nil {
			return false, err
		}
		if filter.Operator == OperatorNotRegex {
			return !matched, nil
		}
		return matched, nil

	case OperatorGT:
		return compareOrdered(value, scalar(filter.Value)) > 0, nil
	case OperatorGTE:
		return compareOrdered(value, scalar(filter.Value)) >= 0, nil
	case OperatorLT:
		return compareOrdered(value, scalar(filter.Value)) < 0, nil
	case OperatorLTE:
		return compareOrdered(value, scalar(filter.Value)) <= 0, nil

	default:
		// Unknown operators are definitional errors; the caller logs and
		// treats the filter as not matching.
		return false, fmt.Errorf("matchengine: unknown operator %q", filter.Operator)
	}
}

// anyOf applies pred to each candidate in value. A list value means "any of";
// a scalar is a one-element list.
func anyOf(value any, pred func(any) bool) bool {
	for _, candidate := range valueList(value) {
		if pred(candidate) {
			return true
		}
	}
	return false
}

// regexAnyOf matches subject against every pattern in value. An invalid
// pattern aborts with an error so one bad filter fails closed, not open.
func regexAnyOf(value any, subject string) (bool, error) {
	for _, candidate := range valueList(value) {
		re, err := regexp.Compile(stringify(candidate))
		if err != nil {
			return false, fmt.Errorf("matchengine: invalid regex %q: %w", stringify(candidate), err)
		}
		if re.MatchString(subject) {
			return true, nil
		}
	}
	return false, nil
}

// looselyEqual implements the exact/is_not coercion contract:
// boolean-likes compare as booleans, then numeric-looking values compare
// numerically ("307" == 307), then case-sensitive strings.
func looselyEqual(a, b any) bool {
	aBool, aIsBool := asBool(a)
	bBool, bIsBool := asBool(b)
	if aIsBool || bIsBool {
		return aIsBool && bIsBool && aBool == bBool
	}

	aNum, aIsNum := asNumber(a)
	bNum, bIsNum := asNumber(b)
	if aIsNum || bIsNum {
		return aIsNum && bIsNum && aNum == bNum
	}

	return stringify(a) == stringify(b)
}

// compareOrdered compares numerically when both sides parse as numbers,
// otherwise falls back to ordered string comparison.
func compareOrdered(a, b any) int {
	aNum, aOK := asNumber(a)
	bNum, bOK := asNumber(b)
	if aOK && bOK {
		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

// valueList normalizes a filter value into a slice of candidates.
func valueList(value any) []any {
	switch v := value.(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// scalar unwraps a one-element list into its element; used by the ordering
// operators which compare against a single bound.
func scalar(value any) any {
	list := valueList(value)
	if len(list) == 0 {
		return nil
	}
	return list[0]
}

// asBool reports whether v is boolean-like: a bool, or the strings
// "true"/"false" in any case.
func asBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// asNumber reports whether v is numeric-looking and its float64 form.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// stringify renders a property or filter value for string-based operators.
// Floats that carry an integral value render without a fractional part so
// that 307.0 and "307" compare as the same text.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case json.Number:
		return s.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}
