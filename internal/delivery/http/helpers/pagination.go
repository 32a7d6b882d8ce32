package helpers

import (
	"fmt"
	"net/http"
	"strconv"

	"eventhub/internal/domain"
)

// Pagination query parameter defaults and limits.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ParsePagination reads from/size (offset style) or page/page_size from the query string.
// from is rounded down to the page containing it. Negative from or non-positive sizes are rejected;
// missing values fall back to defaults and sizes are clamped to MaxPageSize.
func ParsePagination(r *http.Request) (domain.PaginationParams, error) {
	q := r.URL.Query()
	pageSize := DefaultPageSize
	for _, name := range []string{"size", "page_size"} {
		if s := q.Get(name); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 {
				return domain.PaginationParams{}, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, name)
			}
			pageSize = min(v, MaxPageSize)
			break
		}
	}
	page := DefaultPage
	if s := q.Get("from"); s != "" {
		from, err := strconv.Atoi(s)
		if err != nil || from < 0 {
			return domain.PaginationParams{}, fmt.Errorf("%w: from must be zero or positive", domain.ErrValidation)
		}
		page = from/pageSize + 1
	} else if s := q.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return domain.PaginationParams{}, fmt.Errorf("%w: page must be a positive integer", domain.ErrValidation)
		}
		page = v
	}
	return domain.PaginationParams{Page: page, PageSize: pageSize}, nil
}

// PaginationMeta is the pagination metadata included in paginated list responses.
// swagger:model PaginationMeta
type PaginationMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Count    int `json:"count"`
}

// NewPaginationMeta builds PaginationMeta for a page holding count items.
func NewPaginationMeta(params domain.PaginationParams, count int) PaginationMeta {
	return PaginationMeta{
		Page:     params.Page,
		PageSize: params.PageSize,
		Count:    count,
	}
}
