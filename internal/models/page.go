package models

// PageRequest selects a window of a listing. Page is 1-based.
type PageRequest struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip.
func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Page is one window of a listing together with its totals.
type Page[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}

// TotalPages returns the number of pages available at the current limit.
func (p Page[T]) TotalPages() int {
	if p.Limit <= 0 || p.Total == 0 {
		return 0
	}
	return int((p.Total + int64(p.Limit) - 1) / int64(p.Limit))
}

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages()
}

// PrevPage returns the previous page number, or nil on the first page.
func (p Page[T]) PrevPage() *int {
	if !p.HasPrev() {
		return nil
	}
	prev := p.Page - 1
	return &prev
}

// NextPage returns the next page number, or nil on the last page.
func (p Page[T]) NextPage() *int {
	if !p.HasNext() {
		return nil
	}
	next := p.Page + 1
	return &next
}

// VideoSort is a whitelisted ordering for video listings.
type VideoSort struct {
	Field      string
	Descending bool
}

// VideoQuery filters the public video listing.
type VideoQuery struct {
	PageRequest
	Search  string
	OwnerID string
	Sort    VideoSort
}
