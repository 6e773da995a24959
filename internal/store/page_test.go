// ABOUTME: Tests for page-number parsing and page assembly
// ABOUTME: Covers coercion of invalid input and the probe-row next-page check

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{raw: "", want: 1},
		{raw: "1", want: 1},
		{raw: "3", want: 3},
		{raw: " 7 ", want: 7},
		{raw: "2.9", want: 2},
		{raw: "0", want: 1},
		{raw: "-4", want: 1},
		{raw: "0.5", want: 1},
		{raw: "abc", want: 1},
		{raw: "NaN", want: 1},
		{raw: "Inf", want: 1},
		{raw: "-Inf", want: 1},
		{raw: "1e3", want: 1000},
		{raw: "1e300", want: 2147483647},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePage(tt.raw))
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	assert.Equal(t, SortPopular, ParseSortOrder("popular"))
	assert.Equal(t, SortPopular, ParseSortOrder(" Popular "))
	assert.Equal(t, SortNewest, ParseSortOrder("newest"))
	assert.Equal(t, SortNewest, ParseSortOrder(""))
	assert.Equal(t, SortNewest, ParseSortOrder("likes"))
	assert.Equal(t, "popular", SortPopular.String())
	assert.Equal(t, "newest", SortNewest.String())
}

func TestNewPage(t *testing.T) {
	req := PageRequest{Page: 2, PageSize: 3}

	p := newPage([]int{1, 2, 3, 4}, req)
	assert.Equal(t, []int{1, 2, 3}, p.Items)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = newPage([]int{1, 2, 3}, req)
	assert.Equal(t, []int{1, 2, 3}, p.Items)
	assert.False(t, p.HasNext)

	p = newPage[int](nil, PageRequest{Page: 1, PageSize: 3})
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.False(t, p.HasPrev)
	assert.False(t, p.HasNext)
}

func TestLimitOffset(t *testing.T) {
	limit, offset := PageRequest{Page: 3, PageSize: 5}.limitOffset()
	assert.Equal(t, 6, limit)
	assert.Equal(t, 10, offset)
}
