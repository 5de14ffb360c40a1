// Package pagination implements opaque cursor pagination over a composite
// ordering. A cursor is the base64 of a JSON object whose keys are exactly
// the active sort fields plus "id" as tiebreaker; it anchors the comparison
// for the next page and does not need to resolve to a row that still exists.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// timeLayout is fixed-width so encoded timestamps compare chronologically
// as plain strings after a decode round-trip.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Cursor holds the sort-field values of the last-seen row.
type Cursor map[string]interface{}

// EncodeCursor serializes a cursor to its opaque wire form.
func EncodeCursor(c Cursor) string {
	if len(c) == 0 {
		return ""
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeCursor parses an opaque cursor. A malformed cursor is a hard error;
// callers must never fall back to page one when a cursor was supplied.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if len(c) == 0 {
		return nil, ErrInvalidCursor
	}
	return c, nil
}

// normalize coerces a sort-key value to one of the comparable wire types
// (float64 or string), matching what a JSON round-trip produces.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return ""
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case time.Time:
		return x.UTC().Format(timeLayout)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.UTC().Format(timeLayout)
	case string:
		return x
	case bool:
		if x {
			return float64(1)
		}
		return float64(0)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// compareValues returns -1, 0 or 1 for two normalized sort-key values.
func compareValues(a, b interface{}) int {
	na, nb := normalize(a), normalize(b)

	fa, aNum := na.(float64)
	fb, bNum := nb.(float64)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}

	sa := fmt.Sprintf("%v", na)
	sb := fmt.Sprintf("%v", nb)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	default:
		return 0
	}
}
