package table

import "strings"

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseOrder reads a direction; anything other than "desc" is ascending.
func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

// Flip returns the opposite direction.
func (o Order) Flip() Order {
	if o == Desc {
		return Asc
	}
	return Desc
}

// Sort is the single active sort column.
type Sort struct {
	Header string `json:"header"`
	Order  Order  `json:"order"`
}

// Toggle returns the sort after clicking header: the same header flips the
// order, a different header starts ascending.
func (s Sort) Toggle(header string) Sort {
	if header == s.Header && s.Header != "" {
		return Sort{Header: header, Order: s.Order.Flip()}
	}
	return Sort{Header: header, Order: Asc}
}

// IndicatorFor returns the arrow shown next to a column header.
func (s Sort) IndicatorFor(header string) string {
	if header != s.Header {
		return ""
	}
	if s.Order == Desc {
		return "▼"
	}
	return "▲"
}
