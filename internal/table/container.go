package table

import "fmt"

// Container mirrors the sort and paging state of a table and forwards each
// change to the owner, which is responsible for refetching.
type Container struct {
	sort        Sort
	currentPage int
	rowsPerPage int

	OnSortChange        func(Sort)
	OnPageChange        func(int)
	OnRowsPerPageChange func(int)
}

// NewContainer seeds the mirrors from initial values.
func NewContainer(initialSort Sort, initialPage, initialRowsPerPage int) *Container {
	if initialPage < 1 {
		initialPage = 1
	}
	if !ValidRowsPerPage(initialRowsPerPage) {
		initialRowsPerPage = DefaultRowsPerPage
	}
	return &Container{
		sort:        initialSort,
		currentPage: initialPage,
		rowsPerPage: initialRowsPerPage,
	}
}

func (c *Container) Sort() Sort { return c.sort }
func (c *Container) CurrentPage() int { return c.currentPage }
func (c *Container) RowsPerPage() int { return c.rowsPerPage }

// SortBy applies a header click.
func (c *Container) SortBy(header string) {
	c.sort = c.sort.Toggle(header)
	if c.OnSortChange != nil {
		c.OnSortChange(c.sort)
	}
}

// GoToPage moves to page. Pages below 1 are ignored.
func (c *Container) GoToPage(page int) {
	if page < 1 || page == c.currentPage {
		return
	}
	c.currentPage = page
	if c.OnPageChange != nil {
		c.OnPageChange(page)
	}
}

// SetRowsPerPage changes the page size and returns to the first page.
func (c *Container) SetRowsPerPage(n int) error {
	if !ValidRowsPerPage(n) {
		return fmt.Errorf("invalid limit %d: must be one of %v", n, RowsPerPageOptions)
	}
	c.rowsPerPage = n
	c.currentPage = 1
	if c.OnRowsPerPageChange != nil {
		c.OnRowsPerPageChange(n)
	}
	return nil
}
