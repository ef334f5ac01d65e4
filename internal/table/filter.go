// Package table holds the view state behind every dashboard table: the
// filter toolbar, the sort and pagination mirrors, the inline content
// messages, and the query tuple that identifies one page of data.
package table

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// FilterType selects the control and value shape of a filter.
type FilterType string

const (
	FilterDropdown     FilterType = "dropdown"
	FilterDateRange    FilterType = "date-range"
	FilterSingleSelect FilterType = "single-select"
)

// AllValue is the empty value of a single-select filter.
const AllValue = "all"

// DateLayout is the wire format of date-range bounds.
const DateLayout = "2006-01-02"

var (
	ErrUnknownFilter = errors.New("unknown filter")
	ErrFilterShape   = errors.New("filter value does not match filter type")
	ErrInvalidOption = errors.New("value is not an option of this filter")
	ErrInvalidRange  = errors.New("date range start is after end")
)

// Option is one selectable value of a dropdown or single-select filter.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FilterConfig declares one toolbar filter.
type FilterConfig struct {
	Key      string     `json:"key"`
	Label    string     `json:"label"`
	Icon     string     `json:"icon,omitempty"`
	Type     FilterType `json:"type"`
	Options  []Option   `json:"options,omitempty"`
	Multiple bool       `json:"multiple,omitempty"`
}

func (c FilterConfig) hasOption(v string) bool {
	if len(c.Options) == 0 {
		return true
	}
	for _, o := range c.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// DateRange is an inclusive range with optional bounds.
type DateRange struct {
	Start *time.Time `json:"startDate"`
	End   *time.Time `json:"endDate"`
}

// FilterValue is the current value of one filter. Which field is meaningful
// depends on Type.
type FilterValue struct {
	Type   FilterType `json:"type"`
	Values []string   `json:"values,omitempty"`
	Value  string     `json:"value,omitempty"`
	Range  DateRange  `json:"range"`
}

// Selected builds a dropdown value.
func Selected(values ...string) FilterValue {
	return FilterValue{Type: FilterDropdown, Values: append([]string{}, values...)}
}

// Single builds a single-select value.
func Single(value string) FilterValue {
	return FilterValue{Type: FilterSingleSelect, Value: value}
}

// Between builds a date-range value. Either bound may be nil.
func Between(start, end *time.Time) FilterValue {
	return FilterValue{Type: FilterDateRange, Range: DateRange{Start: start, End: end}}
}

// EmptyValue returns the cleared value for a filter type:
// no selections, "all", or an open range.
func EmptyValue(t FilterType) FilterValue {
	switch t {
	case FilterDropdown:
		return FilterValue{Type: t, Values: []string{}}
	case FilterSingleSelect:
		return FilterValue{Type: t, Value: AllValue}
	default:
		return FilterValue{Type: FilterDateRange}
	}
}

// IsEmpty reports whether the value filters nothing.
func (v FilterValue) IsEmpty() bool {
	switch v.Type {
	case FilterDropdown:
		return len(v.Values) == 0
	case FilterSingleSelect:
		return v.Value == "" || v.Value == AllValue
	default:
		return v.Range.Start == nil && v.Range.End == nil
	}
}

// String renders the value in its request encoding.
func (v FilterValue) String() string {
	switch v.Type {
	case FilterDropdown:
		return strings.Join(v.Values, ",")
	case FilterSingleSelect:
		if v.Value == "" {
			return AllValue
		}
		return v.Value
	default:
		return formatDate(v.Range.Start) + "," + formatDate(v.Range.End)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func (v FilterValue) clone() FilterValue {
	out := v
	if v.Values != nil {
		out.Values = append([]string{}, v.Values...)
	}
	return out
}

// validate checks the value against its config.
func (v FilterValue) validate(cfg FilterConfig) error {
	if v.Type != cfg.Type {
		return fmt.Errorf("%w: %s is %s, got %s", ErrFilterShape, cfg.Key, cfg.Type, v.Type)
	}

	switch cfg.Type {
	case FilterDropdown:
		if !cfg.Multiple && len(v.Values) > 1 {
			return fmt.Errorf("%w: %s accepts one value", ErrFilterShape, cfg.Key)
		}
		for _, val := range v.Values {
			if !cfg.hasOption(val) {
				return fmt.Errorf("%w: %s=%q", ErrInvalidOption, cfg.Key, val)
			}
		}
	case FilterSingleSelect:
		if v.Value != AllValue && v.Value != "" && !cfg.hasOption(v.Value) {
			return fmt.Errorf("%w: %s=%q", ErrInvalidOption, cfg.Key, v.Value)
		}
	case FilterDateRange:
		if v.Range.Start != nil && v.Range.End != nil && v.Range.Start.After(*v.Range.End) {
			return fmt.Errorf("%w: %s", ErrInvalidRange, cfg.Key)
		}
	}
	return nil
}

// FilterState maps filter keys to their values.
type FilterState map[string]FilterValue

// NewFilterState returns a state with every config at its empty value.
func NewFilterState(configs []FilterConfig) FilterState {
	state := make(FilterState, len(configs))
	for _, cfg := range configs {
		state[cfg.Key] = EmptyValue(cfg.Type)
	}
	return state
}

// Clone returns a deep copy.
func (s FilterState) Clone() FilterState {
	out := make(FilterState, len(s))
	for k, v := range s {
		out[k] = v.clone()
	}
	return out
}

// Keys returns the filter keys in sorted order.
func (s FilterState) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Upstream renders the non-empty filters as backend list parameters:
// dropdown as key=v1,v2, single-select as key=v, date-range as
// keyStartDate/keyEndDate.
func (s FilterState) Upstream() url.Values {
	out := url.Values{}
	for _, key := range s.Keys() {
		v := s[key]
		if v.IsEmpty() {
			continue
		}
		switch v.Type {
		case FilterDropdown:
			out.Set(key, strings.Join(v.Values, ","))
		case FilterSingleSelect:
			out.Set(key, v.Value)
		case FilterDateRange:
			if v.Range.Start != nil {
				out.Set(key+"StartDate", formatDate(v.Range.Start))
			}
			if v.Range.End != nil {
				out.Set(key+"EndDate", formatDate(v.Range.End))
			}
		}
	}
	return out
}

// Encode renders the non-empty filters in the dashboard's own request
// encoding, filter[key]=value.
func (s FilterState) Encode() url.Values {
	out := url.Values{}
	for _, key := range s.Keys() {
		if v := s[key]; !v.IsEmpty() {
			out.Set("filter["+key+"]", v.String())
		}
	}
	return out
}

// ParseFilters reads filter[key]=value parameters for the given configs.
// Parameters for unknown keys are ignored; malformed values are errors.
func ParseFilters(configs []FilterConfig, q url.Values) (FilterState, error) {
	state := NewFilterState(configs)

	for _, cfg := range configs {
		raw, ok := q["filter["+cfg.Key+"]"]
		if !ok || len(raw) == 0 {
			continue
		}
		v, err := parseValue(cfg, raw[len(raw)-1])
		if err != nil {
			return nil, err
		}
		if err := v.validate(cfg); err != nil {
			return nil, err
		}
		state[cfg.Key] = v
	}
	return state, nil
}

func parseValue(cfg FilterConfig, raw string) (FilterValue, error) {
	raw = strings.TrimSpace(raw)

	switch cfg.Type {
	case FilterDropdown:
		values := []string{}
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		return Selected(values...), nil
	case FilterSingleSelect:
		if raw == "" {
			raw = AllValue
		}
		return Single(raw), nil
	case FilterDateRange:
		startRaw, endRaw, _ := strings.Cut(raw, ",")
		start, err := parseDate(cfg.Key, startRaw)
		if err != nil {
			return FilterValue{}, err
		}
		end, err := parseDate(cfg.Key, endRaw)
		if err != nil {
			return FilterValue{}, err
		}
		return Between(start, end), nil
	}
	return FilterValue{}, fmt.Errorf("%w: %s has type %q", ErrFilterShape, cfg.Key, cfg.Type)
}

func parseDate(key, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s date %q", ErrFilterShape, key, raw)
	}
	return &t, nil
}
