package pagination

import (
	"math"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps Offset within int32 for every allowed limit.
	MaxPage = math.MaxInt32 / MaxLimit
)

// Params is a 1-indexed page request.
type Params struct {
	Page  int
	Limit int
}

// New clamps page to [1, MaxPage] and limit to [1, MaxLimit]; zero limit means DefaultLimit.
func New(page, limit int) Params {
	switch {
	case page < 1:
		page = 1
	case page > MaxPage:
		page = MaxPage
	}
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Parse builds Params from raw query values; unparsable values use defaults.
func Parse(page, limit string) Params {
	p, _ := strconv.Atoi(page)
	l, err := strconv.Atoi(limit)
	if err != nil {
		l = 0
	}
	return New(p, l)
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block returned with every list response.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

func (p Params) Meta(total int64) Meta {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}
