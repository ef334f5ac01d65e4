package table

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Controls replays the table control a user touched through a Toolbar and
// a Container seeded from the current query. Their callbacks rebuild the
// query, so filter, sort and paging rules live in one place.
type Controls struct {
	Toolbar   *Toolbar
	Container *Container
	query     Query
}

// NewControls seeds a toolbar and a container from q.
func NewControls(configs []FilterConfig, q Query) (*Controls, error) {
	c := &Controls{query: q}

	c.Toolbar = NewToolbar(configs, func(st FilterState) {
		c.query = c.query.WithFilters(st)
	})
	if err := c.Toolbar.Load(q.Filters); err != nil {
		return nil, err
	}

	c.Container = NewContainer(q.Sort, q.Page, q.Limit)
	c.Container.OnSortChange = func(s Sort) { c.query.Sort = s }
	c.Container.OnPageChange = func(page int) { c.query = c.query.WithPage(page) }
	c.Container.OnRowsPerPageChange = func(n int) { c.query = c.query.WithRowsPerPage(n) }
	return c, nil
}

// Query returns the query after every applied action.
func (c *Controls) Query() Query { return c.query }

// Apply reads the action parameters of a request:
//
//	sortby=<header>  header click, toggles or resets to asc
//	goto=<page>      page link
//	rows=<n>         rows-per-page select, returns to page 1
//	unset=<key>      removes one filter
//	clear=1          clears every filter and the search
func (c *Controls) Apply(v url.Values) error {
	if header := strings.TrimSpace(v.Get("sortby")); header != "" {
		c.Container.SortBy(header)
	}

	if raw := v.Get("rows"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid limit %q: must be one of %v", raw, RowsPerPageOptions)
		}
		if err := c.Container.SetRowsPerPage(n); err != nil {
			return err
		}
	}

	if raw := v.Get("goto"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return fmt.Errorf("invalid page %q", raw)
		}
		c.Container.GoToPage(page)
	}

	for _, key := range v["unset"] {
		cur, ok := c.Toolbar.Value(key)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFilter, key)
		}
		if err := c.Toolbar.Set(key, EmptyValue(cur.Type)); err != nil {
			return err
		}
	}

	if v.Get("clear") == "1" {
		c.Toolbar.ClearAll()
		c.query = c.query.WithSearch("")
	}
	return nil
}

