package models

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type PageInput struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}

type PageInfo struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	Total       int64 `json:"total"`
	HasNextPage bool  `json:"has_next_page"`
}

// Normalize clamps page to >= 1 and limit to 1..100 (default 20).
func (p PageInput) Normalize() PageInput {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

func (p PageInput) Offset() int {
	return (p.Page - 1) * p.Limit
}

func NewPageInfo(p PageInput, total int64) PageInfo {
	return PageInfo{
		Page:        p.Page,
		Limit:       p.Limit,
		Total:       total,
		HasNextPage: int64(p.Offset()+p.Limit) < total,
	}
}
