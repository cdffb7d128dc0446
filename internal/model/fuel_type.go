package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// FuelType is the canonical key for a fuel grade ("Petrol", "Diesel", "XP95").
// Values coming from the database, forms, or JSON may be numeric or carry
// stray spacing and casing; NormalizeFuelType is the single place that folds
// them, so maps keyed by FuelType never hold two spellings of one grade.
type FuelType string

// NormalizeFuelType converts v to its canonical FuelType.
//   - numbers are rendered without a trailing ".0" (1 and "1" collide)
//   - whitespace is trimmed and runs collapsed to one space
//   - short all-caps words (HSD, CNG) are kept; other words are title-cased
func NormalizeFuelType(v any) FuelType {
	var s string
	switch x := v.(type) {
	case nil:
		return ""
	case FuelType:
		s = string(x)
	case string:
		s = x
	case float64:
		s = strings.TrimSuffix(fmt.Sprintf("%g", x), ".0")
	case float32:
		s = fmt.Sprintf("%g", x)
	case fmt.Stringer:
		s = x.String()
	default:
		s = fmt.Sprint(x)
	}
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = canonicalWord(w)
	}
	return FuelType(strings.Join(words, " "))
}

func canonicalWord(w string) string {
	if len(w) <= 4 && isUpperOrDigit(w) {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func isUpperOrDigit(w string) bool {
	for _, r := range w {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

func (f FuelType) String() string { return string(f) }

// Scan normalizes on the way out of the database.
func (f *FuelType) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		*f = NormalizeFuelType(string(v))
	default:
		*f = NormalizeFuelType(v)
	}
	return nil
}

func (f FuelType) Value() (driver.Value, error) {
	return string(NormalizeFuelType(string(f))), nil
}

// UnmarshalJSON accepts both strings and numbers.
func (f *FuelType) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("fuel type: %w", err)
	}
	switch v := raw.(type) {
	case nil:
		*f = ""
	case string:
		*f = NormalizeFuelType(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return fmt.Errorf("fuel type: %w", err)
		}
		*f = NormalizeFuelType(n)
	default:
		return fmt.Errorf("fuel type: unsupported JSON value %s", b)
	}
	return nil
}
