package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorTable(t *testing.T) {
	cases := map[string]string{
		"equals":               "equal",
		"contains":             "contains",
		"dateIs":               "date_equal",
		"dateIsNot":            "date_not_equal",
		"dateBefore":           "date_before",
		"dateAfter":            "date_after",
		"startsWith":           "startsWith",
		"date_before_or_equal": "date_before_or_equal",
	}
	for in, want := range cases {
		assert.Equal(t, want, Operator(in), in)
	}
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse("", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Page)
	assert.Equal(t, 5, s.Rows)
	assert.False(t, s.Descending())
	assert.Empty(t, s.Conditions())

	s, err = Parse(`{}`, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Rows)
}

func TestParseFullSearch(t *testing.T) {
	raw := `{"page":2,"rows":10,"sortField":"name","sortOrder":-1,
		"filters":{
			"name":{"constraints":[{"value":"Dell","matchMode":"contains"},{"value":null,"matchMode":"equals"}]},
			"brand":{"constraints":[{"value":"HP","matchMode":"equals"}]}
		}}`
	s, err := Parse(raw, 5)
	require.NoError(t, err)
	assert.Equal(t, 20, s.Offset())
	assert.True(t, s.Descending())
	assert.Equal(t, "name", s.SortField)
	assert.Equal(t, []Condition{
		{Field: "brand", Operator: OpEqual, Value: "HP"},
		{Field: "name", Operator: OpContains, Value: "Dell"},
	}, s.Conditions())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse(`{"page":`, 5)
	require.ErrorIs(t, err, ErrInvalidSearch)
}

func TestWithDoesNotMutateReceiver(t *testing.T) {
	base, err := Parse(`{"filters":{"status":{"constraints":[{"value":1,"matchMode":"equals"}]}}}`, 5)
	require.NoError(t, err)
	extended := base.With("status", OpEmpty, nil)
	assert.Len(t, base.Conditions(), 1)
	assert.Equal(t, []Condition{
		{Field: "status", Operator: OpEqual, Value: float64(1)},
		{Field: "status", Operator: OpEmpty},
	}, extended.Conditions())
}

func TestWindow(t *testing.T) {
	s := Search{Page: 1, Rows: 5}
	start, end := s.Window(7)
	assert.Equal(t, 5, start)
	assert.Equal(t, 7, end)

	start, end = Search{Page: 3, Rows: 5}.Window(7)
	assert.Equal(t, 7, start)
	assert.Equal(t, 7, end)

	start, end = All().Window(7)
	assert.Equal(t, 0, start)
	assert.Equal(t, 7, end)
}
