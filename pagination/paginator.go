package pagination

import (
	"fmt"
	"sort"
	"strings"
)

// OrderField is one component of a composite ordering. The last field of any
// ordering must be a unique column (we always use "id") so the full tuple is
// totally ordered and pages stay stable under duplicated leading values.
type OrderField struct {
	Field string
	Desc  bool
}

// ValueFunc extracts the sort-key value of an item for one ordering field.
type ValueFunc[T any] func(item T, field string) interface{}

// Page is one slice of a candidate list plus look-ahead metadata.
type Page[T any] struct {
	Items       []T
	HasNextPage bool
	// EndCursor anchors the next page at the last returned item.
	EndCursor string
}

// CursorFor encodes the cursor identifying item under the given ordering.
func CursorFor[T any](item T, ordering []OrderField, value ValueFunc[T]) string {
	c := make(Cursor, len(ordering))
	for _, of := range ordering {
		c[of.Field] = normalize(value(item, of.Field))
	}
	return EncodeCursor(c)
}

// compareItems orders two items lexicographically under the composite ordering.
func compareItems[T any](a, b T, ordering []OrderField, value ValueFunc[T]) int {
	for _, of := range ordering {
		cmp := compareValues(value(a, of.Field), value(b, of.Field))
		if cmp == 0 {
			continue
		}
		if of.Desc {
			return -cmp
		}
		return cmp
	}
	return 0
}

// Sort sorts items in place under the composite ordering.
func Sort[T any](items []T, ordering []OrderField, value ValueFunc[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		return compareItems(items[i], items[j], ordering, value) < 0
	})
}

// after reports whether item sorts strictly after the cursor tuple. The
// comparison walks the ordering fields lexicographically, so it stays correct
// when leading sort fields carry duplicate values.
func after[T any](item T, ordering []OrderField, cur Cursor, value ValueFunc[T]) (bool, error) {
	for _, of := range ordering {
		cv, ok := cur[of.Field]
		if !ok {
			return false, fmt.Errorf("%w: missing field %q", ErrInvalidCursor, of.Field)
		}
		cmp := compareValues(value(item, of.Field), cv)
		if cmp == 0 {
			continue
		}
		if of.Desc {
			return cmp < 0, nil
		}
		return cmp > 0, nil
	}
	return false, nil
}

// Paginate slices one page out of a sorted candidate list. It considers every
// row strictly after the cursor tuple, keeps limit rows and uses one
// look-ahead row to detect whether a next page exists. A nil cursor starts at
// the beginning.
func Paginate[T any](items []T, ordering []OrderField, value ValueFunc[T], cur Cursor, limit int) (Page[T], error) {
	page := Page[T]{Items: []T{}}

	start := 0
	if cur != nil {
		start = len(items)
		for i, item := range items {
			ok, err := after(item, ordering, cur, value)
			if err != nil {
				return page, err
			}
			if ok {
				start = i
				break
			}
		}
	}

	rest := items[start:]
	if len(rest) > limit {
		page.Items = rest[:limit]
		page.HasNextPage = true
	} else {
		page.Items = rest
	}
	if n := len(page.Items); n > 0 {
		page.EndCursor = CursorFor(page.Items[n-1], ordering, value)
	}
	return page, nil
}

// Condition builds the SQL "continue after cursor" predicate for a store-side
// ordered query: a disjunction of conjunctions, never a single-field
// inequality. column maps an ordering field to its SQL column name.
func Condition(ordering []OrderField, cur Cursor, column func(field string) string) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	for i, of := range ordering {
		cv, ok := cur[of.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: missing field %q", ErrInvalidCursor, of.Field)
		}

		var parts []string
		for j := 0; j < i; j++ {
			pv := cur[ordering[j].Field]
			parts = append(parts, fmt.Sprintf("%s = ?", column(ordering[j].Field)))
			args = append(args, pv)
		}
		op := ">"
		if of.Desc {
			op = "<"
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", column(of.Field), op))
		args = append(args, cv)

		clauses = append(clauses, "("+strings.Join(parts, " AND ")+")")
	}

	return "(" + strings.Join(clauses, " OR ") + ")", args, nil
}
