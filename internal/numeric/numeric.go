// Package numeric turns loosely typed input (form fields, JSON values, text
// columns) into decimal.Decimal. Values that do not describe a finite number
// are reported as invalid instead of leaking NaN or Inf into calculations.
package numeric

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Parse returns the decimal value of v and whether v was a usable number.
// Accepted: decimal.Decimal, the builtin int/uint/float kinds, json.Number
// and numeric strings (surrounding whitespace ignored).
func Parse(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, false
		}
		return *x, true
	case float64:
		return fromFloat(x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint:
		return fromString(strconv.FormatUint(uint64(x), 10))
	case uint32:
		return decimal.NewFromInt(int64(x)), true
	case uint64:
		return fromString(strconv.FormatUint(x, 10))
	case json.Number:
		return fromString(string(x))
	case string:
		return fromString(x)
	case []byte:
		return fromString(string(x))
	default:
		return decimal.Zero, false
	}
}

// Coerce is Parse with invalid input collapsed to zero.
func Coerce(v any) decimal.Decimal {
	d, _ := Parse(v)
	return d
}

// NonNegative coerces v and clamps negatives to zero.
func NonNegative(v any) decimal.Decimal {
	d := Coerce(v)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func fromString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
