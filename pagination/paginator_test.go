package pagination

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rankedRow struct {
	ID    string
	Score float64
}

var rankedOrdering = []OrderField{
	{Field: "score", Desc: true},
	{Field: "id"},
}

func rankedValue(r rankedRow, field string) interface{} {
	if field == "score" {
		return r.Score
	}
	return r.ID
}

// ---- Paginate ----------------------------------------------------------------

func TestPaginate_FirstPageAndLookahead(t *testing.T) {
	rows := []rankedRow{
		{ID: "a", Score: 30},
		{ID: "b", Score: 20},
		{ID: "c", Score: 10},
	}

	page, err := Paginate(rows, rankedOrdering, rankedValue, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "a", page.Items[0].ID)
	assert.Equal(t, "b", page.Items[1].ID)
	assert.NotEmpty(t, page.EndCursor)
}

func TestPaginate_ExactFitHasNoNextPage(t *testing.T) {
	rows := []rankedRow{
		{ID: "a", Score: 30},
		{ID: "b", Score: 20},
	}

	page, err := Paginate(rows, rankedOrdering, rankedValue, nil, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasNextPage)
}

// Walking every page must visit every row exactly once, even when the leading
// sort value is heavily duplicated.
func TestPaginate_FullTraversalNoDuplicatesNoOmissions(t *testing.T) {
	var rows []rankedRow
	for i := 0; i < 25; i++ {
		rows = append(rows, rankedRow{
			ID:    fmt.Sprintf("row-%02d", i),
			Score: float64(i % 4), // many ties on the leading field
		})
	}
	Sort(rows, rankedOrdering, rankedValue)

	seen := make(map[string]int)
	var cur Cursor
	pages := 0
	for {
		page, err := Paginate(rows, rankedOrdering, rankedValue, cur, 7)
		require.NoError(t, err)
		for _, r := range page.Items {
			seen[r.ID]++
		}
		pages++
		require.Less(t, pages, 10, "traversal did not terminate")
		if !page.HasNextPage {
			break
		}
		cur, err = DecodeCursor(page.EndCursor)
		require.NoError(t, err)
	}

	assert.Len(t, seen, 25)
	for id, n := range seen {
		assert.Equal(t, 1, n, "row %s visited %d times", id, n)
	}
	assert.Equal(t, 4, pages)
}

// A cursor pointing at a row that has since disappeared still anchors the
// page correctly: pagination compares against the tuple, not the row.
func TestPaginate_CursorRowDeleted(t *testing.T) {
	rows := []rankedRow{
		{ID: "a", Score: 30},
		{ID: "b", Score: 20},
		{ID: "c", Score: 10},
	}
	Sort(rows, rankedOrdering, rankedValue)

	cur, err := DecodeCursor(CursorFor(rows[0], rankedOrdering, rankedValue))
	require.NoError(t, err)

	// Drop the anchor row before requesting the next page.
	remaining := rows[1:]
	page, err := Paginate(remaining, rankedOrdering, rankedValue, cur, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "b", page.Items[0].ID)
	assert.Equal(t, "c", page.Items[1].ID)
}

func TestPaginate_CursorMissingFieldIsInvalid(t *testing.T) {
	rows := []rankedRow{{ID: "a", Score: 1}}
	_, err := Paginate(rows, rankedOrdering, rankedValue, Cursor{"score": 1.0}, 5)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestPaginate_EmptyInput(t *testing.T) {
	page, err := Paginate(nil, rankedOrdering, rankedValue, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasNextPage)
	assert.Empty(t, page.EndCursor)
}

// ---- Condition ---------------------------------------------------------------

func TestCondition_DisjunctionOfConjunctions(t *testing.T) {
	cur := Cursor{"score": 12.0, "id": "row-9"}

	cond, args, err := Condition(rankedOrdering, cur, func(f string) string { return f })
	require.NoError(t, err)
	assert.Equal(t, "((score < ?) OR (score = ? AND id > ?))", cond)
	require.Len(t, args, 3)
	assert.Equal(t, 12.0, args[0])
	assert.Equal(t, 12.0, args[1])
	assert.Equal(t, "row-9", args[2])
}

func TestCondition_MissingFieldIsInvalid(t *testing.T) {
	_, _, err := Condition(rankedOrdering, Cursor{"id": "x"}, func(f string) string { return f })
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
