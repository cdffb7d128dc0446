package numeric

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Lenient is a JSON value that accepts a number, a numeric string, or junk.
// Junk decodes without error and leaves Valid false, so handlers can apply
// their own fallback (zero, or the previous value).
type Lenient struct {
	Raw   any
	Value decimal.Decimal
	Valid bool
}

func (l *Lenient) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		*l = Lenient{}
		return nil
	}
	l.Raw = raw
	l.Value, l.Valid = Parse(raw)
	return nil
}

func (l Lenient) MarshalJSON() ([]byte, error) {
	if !l.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(l.Value)
}

// Or returns the parsed value, or fallback when the input was not a number.
func (l Lenient) Or(fallback decimal.Decimal) decimal.Decimal {
	if !l.Valid {
		return fallback
	}
	return l.Value
}
