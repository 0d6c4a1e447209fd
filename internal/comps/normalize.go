package comps

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a response body is not a JSON object.
var ErrMalformedPayload = errors.New("comps: malformed payload")

// Normalize flattens a raw valuation response using DefaultLimits.
func Normalize(raw []byte) (Normalized, error) {
	return NormalizeWithLimits(raw, DefaultLimits)
}

// NormalizeWithLimits detects the payload shape and maps it to a Normalized
// record, keeping at most lim comparables per category. Missing or
// unreadable fields become unknown; only a non-object root is an error.
func NormalizeWithLimits(raw []byte, lim Limits) (Normalized, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return Normalized{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if root == nil {
		return Normalized{}, fmt.Errorf("%w: null document", ErrMalformedPayload)
	}
	lim = lim.orDefault()

	switch DetectShape(root) {
	case ShapeMLS:
		return mapMLS(raw, lim), nil
	case ShapeDetails:
		return mapDetails(raw, lim), nil
	default:
		return mapUnrecognized(root), nil
	}
}

// DetectShape picks the payload layout by its discriminating root key. A key
// whose value is not an object (null, a message string) does not count, so
// such a body falls through to the error envelope check.
func DetectShape(root map[string]json.RawMessage) Shape {
	if isObject(root["mlsData"]) {
		return ShapeMLS
	}
	if isObject(root["Details"]) {
		return ShapeDetails
	}
	return ShapeUnrecognized
}

func empty(shape Shape) Normalized {
	return Normalized{
		Shape:   shape,
		Sold:    []ComparableRecord{},
		Pending: []ComparableRecord{},
		Active:  []ComparableRecord{},
	}
}

func mapUnrecognized(root map[string]json.RawMessage) Normalized {
	n := empty(ShapeUnrecognized)
	if b, ok := root["error"]; ok {
		var msg flexString
		_ = json.Unmarshal(b, &msg)
		n.EnvelopeError = msg.s
	}
	return n
}

// decodeLenient fills v from an already validated object. Type mismatches
// are skipped by encoding/json and the flex types never fail, so whatever
// could be read is kept.
func decodeLenient(b []byte, v any) {
	_ = json.Unmarshal(b, v)
}

// comparables decodes up to limit items of a raw list, skipping entries
// that are not objects.
func comparables(items []json.RawMessage, limit int, cat Category, conv func(json.RawMessage, Category) ComparableRecord) []ComparableRecord {
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]ComparableRecord, 0, len(items))
	for _, it := range items {
		if !isObject(it) {
			continue
		}
		out = append(out, conv(it, cat))
	}
	return out
}
