package model

// Pagination defaults
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// PageParams are the page/limit query parameters of a list endpoint
type PageParams struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to [1, max], using def when unset
func (p PageParams) Normalize(def, max int) PageParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = def
	}
	if max > 0 && p.Limit > max {
		p.Limit = max
	}
	return p
}

// Offset returns the number of rows to skip
func (p PageParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// PageMeta is the "meta" block of a paged response
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// NewPageMeta computes total pages with ceiling division
func NewPageMeta(total int, p PageParams) PageMeta {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return PageMeta{
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: pages,
	}
}

// HasMore reports whether another page follows
func (m PageMeta) HasMore() bool {
	return m.Page < m.TotalPages
}
