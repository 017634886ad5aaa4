package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_Comma(t *testing.T) {
	input := "reviews.text,reviews.rating\ngreat phone,5\nbad battery,2\n"
	table, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"reviews.text", "reviews.rating"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "great phone", table.Rows[0][0])
}

func TestParseCSV_TabFallback(t *testing.T) {
	input := "review_text\trating\ngreat phone\t5\nbad battery\t2\n"
	table, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"review_text", "rating"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "5", table.Rows[0][1])
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "  \n  "},
		{"header only", "text,rating\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseCSV_RaggedRowsTolerated(t *testing.T) {
	input := "text,rating,extra\nshort row,4\nfull row,5,note\n"
	table, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestDetectTextColumn_NamedMatch(t *testing.T) {
	tests := []struct {
		header []string
		want   int
	}{
		{[]string{"id", "reviews.text", "rating"}, 1},
		{[]string{"Review_Text", "stars"}, 0},
		{[]string{"stars", "Comment"}, 1},
	}
	for _, tt := range tests {
		table := &Table{Header: tt.header, Rows: [][]string{make([]string, len(tt.header))}}
		idx, err := table.DetectTextColumn()
		require.NoError(t, err)
		assert.Equal(t, tt.want, idx)
	}
}

func TestDetectTextColumn_LongestCellHeuristic(t *testing.T) {
	table := &Table{
		Header: []string{"id", "blob", "stars"},
		Rows: [][]string{
			{"1", "this is a fairly long review about a product", "5"},
			{"2", "another long review body with plenty of words in it", "3"},
		},
	}
	idx, err := table.DetectTextColumn()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestDetectTextColumn_NoCandidate(t *testing.T) {
	table := &Table{
		Header: []string{"id", "stars"},
		Rows:   [][]string{{"1", "5"}, {"2", "3"}},
	}
	_, err := table.DetectTextColumn()
	assert.Error(t, err)
}

func TestDetectRatingColumn(t *testing.T) {
	table := &Table{Header: []string{"text", "Stars"}}
	assert.Equal(t, 1, table.DetectRatingColumn())

	table = &Table{Header: []string{"text", "comment"}}
	assert.Equal(t, -1, table.DetectRatingColumn())
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		cell string
		want float64
	}{
		{"5", 5},
		{" 4.5 ", 4.5},
		{"", 0},
		{"five stars", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRating(tt.cell))
	}
}
