package query

import "strings"

// Order is one key of a composite ordering.
type Order struct {
	Field string
	Desc  bool
}

// DefaultSort orders by creation time, newest first.
var DefaultSort = []Order{{Field: "createdAt", Desc: true}}

// ParseSort parses a sort string of the form "[-]field1|[-]field2" into
// a composite ordering evaluated left to right. A leading '-' marks the
// field descending. Empty input yields DefaultSort. Fields absent from
// the allowed set are skipped; if nothing survives, DefaultSort is
// returned so results stay deterministic.
func ParseSort(raw string, allowed ...string) []Order {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort
	}
	var orders []Order
	for _, segment := range strings.Split(raw, "|") {
		if segment == "" {
			continue
		}
		desc := strings.HasPrefix(segment, "-")
		field := strings.TrimPrefix(segment, "-")
		if field == "" || !isAllowedSortField(field, allowed) {
			continue
		}
		orders = append(orders, Order{Field: field, Desc: desc})
	}
	if len(orders) == 0 {
		return DefaultSort
	}
	return orders
}

func isAllowedSortField(field string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, name := range allowed {
		if name == field {
			return true
		}
	}
	return false
}
