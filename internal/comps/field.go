package comps

import (
	"encoding/json"
	"fmt"
)

// Unknown is how an absent value renders as text.
const Unknown = "N/A"

// Field is an optional value. The zero Field is unknown, which keeps
// "absent" apart from a legitimate zero.
type Field[T comparable] struct {
	val T
	ok  bool
}

func Known[T comparable](v T) Field[T] { return Field[T]{val: v, ok: true} }

// Get returns the value and whether it is known.
func (f Field[T]) Get() (T, bool) { return f.val, f.ok }

func (f Field[T]) Known() bool { return f.ok }

// Or returns the value, or def when unknown.
func (f Field[T]) Or(def T) T {
	if !f.ok {
		return def
	}
	return f.val
}

// Equal reports whether both fields are known and hold the same value.
func (f Field[T]) Equal(o Field[T]) bool {
	return f.ok && o.ok && f.val == o.val
}

func (f Field[T]) String() string {
	if !f.ok {
		return Unknown
	}
	return fmt.Sprint(f.val)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.val)
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Field[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Known(v)
	return nil
}
