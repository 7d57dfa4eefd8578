package api

import (
	"net/url"
	"slices"
	"strings"
	"unicode"
)

// Order is the tri-state sort direction of a search.
type Order int

const (
	// OrderUnspecified leaves the direction to the service (ascending).
	OrderUnspecified Order = iota
	// OrderAscending asks for ascending order explicitly.
	OrderAscending
	// OrderDescending asks for descending order.
	OrderDescending
)

// Query parameter names understood by GET /users.
const (
	ParamPage       = "page"
	ParamIndex      = "index"
	ParamSortBy     = "sortby"
	ParamDescending = "DESC"
)

var (
	// PageSizes are the accepted page sizes; the first one is the default.
	PageSizes = []string{"10", "20", "50"}
	// SortColumns are the searchable text columns. Results sort by email by default.
	SortColumns = []string{"name", "postcode", "city", "phone", "email"}
)

const defaultSortColumn = "email"

// SearchQuery filters, pages and sorts the user list.
type SearchQuery struct {
	Name     string
	Postcode string
	City     string
	Phone    string
	Email    string
	Page     string
	Index    string
	SortBy   string
	Order    Order
}

// Normalize replaces invalid paging and sorting values with their defaults.
func (q SearchQuery) Normalize() SearchQuery {
	if !slices.Contains(PageSizes, q.Page) {
		q.Page = PageSizes[0]
	}
	if index, ok := leadingIndex(q.Index); ok {
		q.Index = index
	} else {
		q.Index = "0"
	}
	if !slices.Contains(SortColumns, q.SortBy) {
		q.SortBy = defaultSortColumn
	}
	return q
}

// leadingIndex reads the non-negative integer at the start of s, after leading space and an
// optional sign, the way browsers read a page index ("5abc" and "1.5" give 5 and 1). The
// digits are returned without leading zeros.
func leadingIndex(s string) (string, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	negative := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		negative = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}
	digits := strings.TrimLeft(s[:end], "0")
	if digits == "" {
		return "0", true
	}
	if negative {
		return "", false
	}
	return digits, true
}

// Values encodes the query. A descending order is sent as an empty DESC parameter;
// ascending and unspecified orders omit it.
func (q SearchQuery) Values() url.Values {
	v := q.filterValues()
	if q.Page != "" {
		v.Set(ParamPage, q.Page)
	}
	if q.Index != "" {
		v.Set(ParamIndex, q.Index)
	}
	if q.SortBy != "" {
		v.Set(ParamSortBy, q.SortBy)
	}
	if q.Order == OrderDescending {
		v.Set(ParamDescending, "")
	}
	return v
}

func (q SearchQuery) filterValues() url.Values {
	v := url.Values{}
	for key, value := range map[string]string{
		"name":     q.Name,
		"postcode": q.Postcode,
		"city":     q.City,
		"phone":    q.Phone,
		"email":    q.Email,
	} {
		if value != "" {
			v.Set(key, value)
		}
	}
	return v
}

// ParseSearchQuery reads a query string. A DESC key with an empty value selects descending
// order; any other value leaves the order unspecified.
func ParseSearchQuery(v url.Values) SearchQuery {
	q := SearchQuery{
		Name:     v.Get("name"),
		Postcode: v.Get("postcode"),
		City:     v.Get("city"),
		Phone:    v.Get("phone"),
		Email:    v.Get("email"),
		Page:     v.Get(ParamPage),
		Index:    v.Get(ParamIndex),
		SortBy:   v.Get(ParamSortBy),
	}
	if v.Has(ParamDescending) && v.Get(ParamDescending) == "" {
		q.Order = OrderDescending
	}
	return q
}
