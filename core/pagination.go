package core

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	maxOffset = math.MaxInt32
)

// Page holds pagination query params.
type Page struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

// Clean clamps the page to >= 1 and the limit to [1, max], using def when unset.
func (p *Page) Clean(def, max int) {
	if def <= 0 {
		def = DefaultPageLimit
	}
	if max <= 0 {
		max = MaxPageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = def
	}
	if p.Limit > max {
		p.Limit = max
	}
}

// Offset is capped so that far-away pages stay a valid, empty OFFSET.
func (p Page) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > maxOffset/p.Limit {
		return maxOffset
	}
	return (p.Page - 1) * p.Limit
}

type Paginated[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int, page Page) Paginated[T] {
	if items == nil {
		items = []T{}
	}
	var pages int
	if page.Limit > 0 {
		pages = (total + page.Limit - 1) / page.Limit
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: pages,
	}
}
