package models

import "math"

type Pagination struct {
	CurrentPage     int  `json:"current_page"`
	TotalPages      int  `json:"total_pages"`
	HasNextPage     bool `json:"has_next_page"`
	HasPreviousPage bool `json:"has_previous_page"`
	NextPage        *int `json:"next_page"`
	PreviousPage    *int `json:"previous_page"`
}

// NewPagination assumes page >= 1 and limit > 0.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := TotalPages(total, limit)

	p := Pagination{
		CurrentPage:     page,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPreviousPage {
		prev := page - 1
		p.PreviousPage = &prev
	}
	return p
}

// TotalPages is ceil(total/limit) without overflowing for large limits.
func TotalPages(total int64, limit int) int {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return int(pages)
}

// Offset is the number of rows to skip for page. It saturates at
// math.MaxInt instead of wrapping, so absurd pages read nothing.
func Offset(page, limit int) int {
	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}

// MaxPage is the largest page whose offset fits in an int.
func MaxPage(limit int) int {
	return math.MaxInt/limit + 1
}

type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
