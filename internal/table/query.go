package table

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query identifies one page of a table: any field change is a different page.
type Query struct {
	Page    int
	Limit   int
	Sort    Sort
	Search  string
	Filters FilterState
}

// Key returns the cache key tuple
// [entity, page, rowsPerPage, sortHeader, sortOrder, search, ...filters]
// with filters sorted by key and empty filters omitted.
func (q Query) Key(entity string) []string {
	key := []string{
		entity,
		strconv.Itoa(q.Page),
		strconv.Itoa(q.Limit),
		q.Sort.Header,
		string(q.Sort.Order),
		q.Search,
	}
	for _, k := range q.Filters.Keys() {
		if v := q.Filters[k]; !v.IsEmpty() {
			key = append(key, k+"="+v.String())
		}
	}
	return key
}

// CacheKey joins Key into a single string.
func (q Query) CacheKey(entity string) string {
	parts := q.Key(entity)
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "|")
}

// Upstream renders the backend list parameters.
func (q Query) Upstream() url.Values {
	v := q.Filters.Upstream()
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Sort.Header != "" {
		v.Set("sortBy", q.Sort.Header)
		v.Set("sortOrder", string(q.Sort.Order))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// Encode renders the dashboard request parameters that reproduce q.
func (q Query) Encode() url.Values {
	v := q.Filters.Encode()
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Sort.Header != "" {
		v.Set("sort", q.Sort.Header)
		v.Set("dir", string(q.Sort.Order))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// WithPage moves to page.
func (q Query) WithPage(page int) Query {
	if page >= 1 {
		q.Page = page
	}
	return q
}

// WithSort applies a header click and keeps the current page.
func (q Query) WithSort(header string) Query {
	q.Sort = q.Sort.Toggle(header)
	return q
}

// WithFilters replaces the filters and returns to page 1.
func (q Query) WithFilters(s FilterState) Query {
	q.Filters = s.Clone()
	q.Page = 1
	return q
}

// WithSearch replaces the search text and returns to page 1.
func (q Query) WithSearch(search string) Query {
	q.Search = strings.TrimSpace(search)
	q.Page = 1
	return q
}

// WithRowsPerPage changes the page size and returns to page 1.
func (q Query) WithRowsPerPage(n int) Query {
	if ValidRowsPerPage(n) {
		q.Limit = n
	}
	q.Page = 1
	return q
}

// Pagination pairs the query with a known page count.
func (q Query) Pagination(totalPages int) Pagination {
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{CurrentPage: q.Page, RowsPerPage: q.Limit, TotalPages: totalPages}
}

// ParseQuery reads a table request:
// page, limit, sort, dir, search and filter[key] parameters.
// Missing values fall back to page 1, DefaultRowsPerPage and defaultSort.
func ParseQuery(configs []FilterConfig, defaultSort Sort, v url.Values) (Query, error) {
	q := Query{
		Page:   1,
		Limit:  DefaultRowsPerPage,
		Sort:   defaultSort,
		Search: strings.TrimSpace(v.Get("search")),
	}

	if raw := v.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Query{}, fmt.Errorf("invalid page %q", raw)
		}
		q.Page = page
	}

	if raw := v.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || !ValidRowsPerPage(limit) {
			return Query{}, fmt.Errorf("invalid limit %q: must be one of %v", raw, RowsPerPageOptions)
		}
		q.Limit = limit
	}

	if header := strings.TrimSpace(v.Get("sort")); header != "" {
		q.Sort = Sort{Header: header, Order: ParseOrder(v.Get("dir"))}
	}

	filters, err := ParseFilters(configs, v)
	if err != nil {
		return Query{}, err
	}
	q.Filters = filters

	return q, nil
}
