package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		total     int64
		pages     int
		next      *int
		previous  *int
		hasNext   bool
		hasBefore bool
	}{
		{name: "empty", page: 1, limit: 10, total: 0, pages: 0},
		{name: "single page", page: 1, limit: 10, total: 7, pages: 1},
		{name: "first of three", page: 1, limit: 10, total: 25, pages: 3, next: intPtr(2), hasNext: true},
		{name: "middle", page: 2, limit: 10, total: 25, pages: 3, next: intPtr(3), previous: intPtr(1), hasNext: true, hasBefore: true},
		{name: "last", page: 3, limit: 10, total: 25, pages: 3, previous: intPtr(2), hasBefore: true},
		{name: "exact multiple", page: 2, limit: 5, total: 10, pages: 2, previous: intPtr(1), hasBefore: true},
		{name: "past the end", page: 5, limit: 10, total: 25, pages: 3, previous: intPtr(4), hasBefore: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.limit, tt.total)
			assert.Equal(t, tt.page, p.CurrentPage)
			assert.Equal(t, tt.pages, p.TotalPages)
			assert.Equal(t, tt.hasNext, p.HasNextPage)
			assert.Equal(t, tt.hasBefore, p.HasPreviousPage)
			assert.Equal(t, tt.next, p.NextPage)
			assert.Equal(t, tt.previous, p.PreviousPage)
		})
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		page, limit, offset int
	}{
		{1, 20, 0},
		{3, 20, 40},
		{MaxPage(4), 4, math.MaxInt / 4 * 4},
		{1 << 62, 4, math.MaxInt},
		{1<<62 + 1, 4, math.MaxInt},
		{math.MaxInt, 100, math.MaxInt},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.offset, Offset(tt.page, tt.limit), "page %d limit %d", tt.page, tt.limit)
	}
}

func TestTotalPagesWithHugeLimit(t *testing.T) {
	assert.Equal(t, 1, TotalPages(3, math.MaxInt))
	assert.Equal(t, 0, TotalPages(0, math.MaxInt))
	assert.Equal(t, 3, TotalPages(25, 10))
}

func intPtr(v int) *int { return &v }
