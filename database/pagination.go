package database

import "inkwell/constants"

type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	Limit        int   `json:"limit"`
	TotalRecords int64 `json:"total_records"`
	TotalPages   int   `json:"total_pages"`
	NextPage     *int  `json:"next_page"`
	PrevPage     *int  `json:"prev_page"`
}

type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// NormalizePage clamps a requested page and size to usable values.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = constants.DEFAULT_PAGE_SIZE
	}
	if limit > constants.MAX_PAGE_SIZE {
		limit = constants.MAX_PAGE_SIZE
	}
	return page, limit
}

func NewPagination(page, limit int, total int64) Pagination {
	page, limit = NormalizePage(page, limit)
	totalPages := int((total + int64(limit) - 1) / int64(limit))

	p := Pagination{
		CurrentPage:  page,
		Limit:        limit,
		TotalRecords: total,
		TotalPages:   totalPages,
	}
	if next := page + 1; next <= totalPages {
		p.NextPage = &next
	}
	if prev := page - 1; prev > 0 {
		p.PrevPage = &prev
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.CurrentPage - 1) * p.Limit
}
