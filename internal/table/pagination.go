package table

// RowsPerPageOptions are the page sizes offered by every table.
var RowsPerPageOptions = []int{10, 25, 50, 100, 200}

// DefaultRowsPerPage is used when a request names no page size.
const DefaultRowsPerPage = 10

// ValidRowsPerPage reports whether n is one of RowsPerPageOptions.
func ValidRowsPerPage(n int) bool {
	for _, opt := range RowsPerPageOptions {
		if opt == n {
			return true
		}
	}
	return false
}

// PageItem is one pagination button, or a gap.
type PageItem struct {
	Page     int  `json:"page,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
	Current  bool `json:"current,omitempty"`
}

// PageWindow lists the buttons for a pager. The first and last pages always
// show, with one neighbour either side of current. Gaps collapse to an
// ellipsis when there are more than five pages.
func PageWindow(current, total int) []PageItem {
	if total < 1 {
		total = 1
	}
	current = clamp(current, 1, total)

	if total <= 5 {
		items := make([]PageItem, 0, total)
		for p := 1; p <= total; p++ {
			items = append(items, PageItem{Page: p, Current: p == current})
		}
		return items
	}

	items := []PageItem{{Page: 1, Current: current == 1}}
	if current > 3 {
		items = append(items, PageItem{Ellipsis: true})
	}
	for p := max(2, current-1); p <= min(total-1, current+1); p++ {
		items = append(items, PageItem{Page: p, Current: p == current})
	}
	if current < total-2 {
		items = append(items, PageItem{Ellipsis: true})
	}
	return append(items, PageItem{Page: total, Current: current == total})
}

// Pagination is the pager state of a table.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	RowsPerPage int `json:"rowsPerPage"`
	TotalPages  int `json:"totalPages"`
}

// Items returns the pager buttons.
func (p Pagination) Items() []PageItem {
	return PageWindow(p.CurrentPage, p.TotalPages)
}

func (p Pagination) HasPrev() bool { return p.CurrentPage > 1 }
func (p Pagination) HasNext() bool { return p.CurrentPage < p.TotalPages }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
