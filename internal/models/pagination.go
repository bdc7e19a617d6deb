package models

// Pagination describes list slicing metadata returned alongside collections.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination normalises page/limit and derives the page count.
func NewPagination(page, limit, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
