package search

// PageSize is the number of professors shown per page (a 3x3 grid).
const PageSize = 9

// Page is one window of a result list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Number     int `json:"page"`
	Size       int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	TotalItems int `json:"total_items"`
}

// HasPrev reports whether an earlier page exists.
func (p Page[T]) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages }

// Paginate returns the 1-indexed page n of items. n is clamped to
// [1, TotalPages]; an empty list yields page 1 with no items.
func Paginate[T any](items []T, n, size int) Page[T] {
	if size <= 0 {
		size = PageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	n = max(1, min(n, pages))

	start := min((n-1)*size, total)
	end := min(start+size, total)
	return Page[T]{
		Items:      items[start:end],
		Number:     n,
		Size:       size,
		TotalPages: pages,
		TotalItems: total,
	}
}
