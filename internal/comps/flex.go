package comps

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// The provider is inconsistent about leaf types: the same field shows up as
// a number, a numeric string, "N/A" or null depending on the endpoint. These
// decoders never return an error; anything they cannot read is left unknown.

// flexString accepts a string or a number and keeps its text.
type flexString struct {
	s  string
	ok bool
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	*f = flexString{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if json.Unmarshal(b, &s) != nil {
			return nil
		}
		if s = strings.TrimSpace(s); s != "" {
			*f = flexString{s: s, ok: true}
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*f = flexString{s: string(b), ok: true}
	}
	return nil
}

func (f flexString) field() Field[string] {
	if !f.ok {
		return Field[string]{}
	}
	return Known(f.s)
}

// flexNumber accepts a JSON number or a numeric string such as "$1,250,000".
type flexNumber struct {
	d  decimal.Decimal
	ok bool
}

func (f *flexNumber) UnmarshalJSON(b []byte) error {
	*f = flexNumber{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	text := string(b)
	if b[0] == '"' {
		var s string
		if json.Unmarshal(b, &s) != nil {
			return nil
		}
		text = cleanNumeric(s)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}
	*f = flexNumber{d: d, ok: true}
	return nil
}

func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	return strings.ReplaceAll(s, ",", "")
}

func (f flexNumber) decimal() decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: f.d, Valid: f.ok}
}

func (f flexNumber) float() Field[float64] {
	if !f.ok {
		return Field[float64]{}
	}
	return Known(f.d.InexactFloat64())
}

// integer is unknown for fractional values and for values outside int range.
func (f flexNumber) integer() Field[int] {
	if !f.ok || !f.d.Equal(f.d.Truncate(0)) {
		return Field[int]{}
	}
	v := f.d.IntPart()
	if !decimal.NewFromInt(v).Equal(f.d) || int64(int(v)) != v {
		return Field[int]{}
	}
	return Known(int(v))
}

// flexPresence reads loosely typed flags like "pool": absent or null is
// unknown, false/""/"no"/0 is false, any other value means the feature exists.
type flexPresence struct {
	v  bool
	ok bool
}

func (f *flexPresence) UnmarshalJSON(b []byte) error {
	*f = flexPresence{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case 't':
		*f = flexPresence{v: true, ok: true}
	case 'f':
		*f = flexPresence{v: false, ok: true}
	case '"':
		var s string
		_ = json.Unmarshal(b, &s)
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "no", "n", "false", "0", "none":
			*f = flexPresence{v: false, ok: true}
		default:
			*f = flexPresence{v: true, ok: true}
		}
	case '[':
		*f = flexPresence{v: string(b) != "[]", ok: true}
	case '{':
		*f = flexPresence{v: string(b) != "{}", ok: true}
	default:
		d, err := decimal.NewFromString(string(b))
		*f = flexPresence{v: err != nil || !d.IsZero(), ok: true}
	}
	return nil
}

func (f flexPresence) field() Field[bool] {
	if !f.ok {
		return Field[bool]{}
	}
	return Known(f.v)
}

// firstString returns the first known value in priority order.
func firstString(vals ...flexString) flexString {
	for _, v := range vals {
		if v.ok {
			return v
		}
	}
	return flexString{}
}

func firstNumber(vals ...flexNumber) flexNumber {
	for _, v := range vals {
		if v.ok {
			return v
		}
	}
	return flexNumber{}
}

func firstPresence(vals ...flexPresence) flexPresence {
	for _, v := range vals {
		if v.ok {
			return v
		}
	}
	return flexPresence{}
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
