// Package pagination computes page/offset bounds over an already-sliced page of
// results and a known total count.
package pagination

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 25
	MaxPerPage     = 100

	// Gap is yielded by IterPages between non-adjacent runs of page numbers.
	Gap = 0
)

var (
	ErrInvalidPerPage = errors.New("per_page must be a positive integer")
	ErrInvalidNumber  = errors.New("not an integer")
)

// Page is one page of a larger result set. Items holds the already-sliced
// subset; Page never re-slices it.
type Page[T any] struct {
	Items        []T   `json:"items_page"`
	Page         int   `json:"page"`
	PerPage      int   `json:"per_page"`
	TotalEntries int   `json:"total_entries"`
	TotalPages   int   `json:"total_pages"`
	StartIndex   int   `json:"start_index"`
	EndIndex     int   `json:"end_index"`
	HasPrev      bool  `json:"has_prev"`
	HasNext      bool  `json:"has_next"`
	PrevPage     int   `json:"prev_page"`
	NextPage     int   `json:"next_page"`
	Pages        []int `json:"pages"`
}

// New builds a page. Out-of-range page numbers are clamped into
// [1, TotalPages]; a per-page size below 1 is a caller error.
func New[T any](items []T, page, perPage, totalEntries int) (*Page[T], error) {
	if perPage < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPerPage, perPage)
	}
	if totalEntries < 0 {
		totalEntries = 0
	}
	if items == nil {
		items = []T{}
	}

	p := &Page[T]{
		Items:        items,
		PerPage:      perPage,
		TotalEntries: totalEntries,
		TotalPages:   max(1, (totalEntries+perPage-1)/perPage),
	}
	p.Page = max(1, min(page, p.TotalPages))

	if totalEntries > 0 {
		p.StartIndex = (p.Page-1)*perPage + 1
		p.EndIndex = min(p.Page*perPage, totalEntries)
	}

	p.HasPrev = p.Page > 1
	p.HasNext = p.Page < p.TotalPages
	p.PrevPage = p.Page
	if p.HasPrev {
		p.PrevPage = p.Page - 1
	}
	p.NextPage = p.Page
	if p.HasNext {
		p.NextPage = p.Page + 1
	}

	for num := range p.DefaultPages() {
		p.Pages = append(p.Pages, num)
	}
	return p, nil
}

// FromStrings is New with strictly parsed page and per-page values.
// Unparseable input is an error, not a default.
func FromStrings[T any](items []T, page, perPage string, totalEntries int) (*Page[T], error) {
	pageNum, err := parseInt(page)
	if err != nil {
		return nil, fmt.Errorf("page: %w", err)
	}
	perPageNum, err := parseInt(perPage)
	if err != nil {
		return nil, fmt.Errorf("per_page: %w", err)
	}
	return New(items, pageNum, perPageNum, totalEntries)
}

// IterPages yields page numbers for a pager widget: the first leftEdge
// pages, a window around the current page and the last rightEdge pages.
// Non-adjacent runs are separated by exactly one Gap.
func (p *Page[T]) IterPages(leftEdge, leftCurrent, rightCurrent, rightEdge int) iter.Seq[int] {
	return func(yield func(int) bool) {
		last := 0
		for num := 1; num <= p.TotalPages; num++ {
			inWindow := num > p.Page-leftCurrent-1 && num < p.Page+rightCurrent
			if num > leftEdge && !inWindow && num <= p.TotalPages-rightEdge {
				continue
			}
			if last+1 != num {
				if !yield(Gap) {
					return
				}
			}
			if !yield(num) {
				return
			}
			last = num
		}
	}
}

// DefaultPages is IterPages(2, 2, 3, 2).
func (p *Page[T]) DefaultPages() iter.Seq[int] {
	return p.IterPages(2, 2, 3, 2)
}

// Args derives page and per-page from request-style strings. Missing or
// unparseable input falls back to the defaults; parsed values are clamped.
func Args(page, perPage string) (int, int) {
	pageNum, perPageNum := DefaultPage, DefaultPerPage

	var err error
	if strings.TrimSpace(page) != "" {
		if pageNum, err = parseInt(page); err != nil {
			return DefaultPage, DefaultPerPage
		}
	}
	if strings.TrimSpace(perPage) != "" {
		if perPageNum, err = parseInt(perPage); err != nil {
			return DefaultPage, DefaultPerPage
		}
	}

	return max(1, pageNum), max(1, min(perPageNum, MaxPerPage))
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return n, nil
}
