package query

import "strconv"

// DefaultPageSize is used when the requested page size does not parse.
const DefaultPageSize = 5

// Page is a 1-based pagination window.
type Page struct {
	Number int
	Size   int
}

// ParsePage normalizes raw pageNumber/pageSize query values. Page
// numbers that are non-numeric or below 1 become 1; non-numeric or
// non-positive sizes become DefaultPageSize.
func ParsePage(pageNumber, pageSize string) Page {
	number, err := strconv.Atoi(pageNumber)
	if err != nil || number < 1 {
		number = 1
	}
	size, err := strconv.Atoi(pageSize)
	if err != nil || size < 1 {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset returns the windowed-read skip. It is never negative.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Limit returns the windowed-read cap.
func (p Page) Limit() int {
	if p.Size < 1 {
		return DefaultPageSize
	}
	return p.Size
}

// Pagination is the response envelope metadata for one page of results.
// TotalPages is ceil(TotalItems/PageSize); zero items means zero pages.
type Pagination struct {
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination builds the envelope for a page and a total item count.
// Requesting a page past the last one is not an error; the caller just
// gets an empty item list alongside this metadata.
func NewPagination(page Page, totalItems int64) Pagination {
	if totalItems < 0 {
		totalItems = 0
	}
	size := int64(page.Limit())
	return Pagination{
		PageNumber: page.Number,
		PageSize:   page.Limit(),
		TotalItems: totalItems,
		TotalPages: (totalItems + size - 1) / size,
	}
}
