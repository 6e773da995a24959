// ABOUTME: Offset pagination shared by the paginated listings
// ABOUTME: Fetches one extra row to learn whether a next page exists without counting

package store

import (
	"math"
	"strconv"
	"strings"
)

// SortOrder selects listing order.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortPopular
)

func (o SortOrder) String() string {
	if o == SortPopular {
		return "popular"
	}
	return "newest"
}

// ParseSortOrder accepts "newest" or "popular"; anything else is SortNewest.
func ParseSortOrder(s string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(s), "popular") {
		return SortPopular
	}
	return SortNewest
}

// PageRequest asks for one page of a listing. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
	Sort     SortOrder
}

// Page is one page of results.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	HasPrev  bool
	HasNext  bool
}

// ParsePage turns a raw query value into a page number. Anything that is not
// a finite number of at least 1 yields 1; fractions are floored.
func ParsePage(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 1
	}
	f = math.Floor(f)
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// normalize clamps the request to the store's page-size bounds.
func (s *SQLiteStore) normalize(req PageRequest) PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	switch {
	case req.PageSize <= 0:
		req.PageSize = s.pageSize
	case req.PageSize > s.maxPageSize:
		req.PageSize = s.maxPageSize
	}
	return req
}

// limitOffset returns the LIMIT (pageSize+1) and OFFSET for req.
func (req PageRequest) limitOffset() (int, int) {
	return req.PageSize + 1, (req.Page - 1) * req.PageSize
}

// newPage trims the probe row off items and fills in the navigation flags.
func newPage[T any](items []T, req PageRequest) *Page[T] {
	p := &Page[T]{Page: req.Page, PageSize: req.PageSize, HasPrev: req.Page > 1}
	if len(items) > req.PageSize {
		items = items[:req.PageSize]
		p.HasNext = true
	}
	if items == nil {
		items = []T{}
	}
	p.Items = items
	return p
}
