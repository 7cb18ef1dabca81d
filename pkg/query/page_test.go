package query

import "testing"

func TestParsePageNormalizesPageNumber(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"0", 1},
		{"-3", 1},
		{"1", 1},
		{"7", 7},
	}
	for _, tc := range cases {
		if got := ParsePage(tc.raw, "5").Number; got != tc.want {
			t.Fatalf("ParsePage(%q) number = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestParsePageNormalizesPageSize(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"", DefaultPageSize},
		{"abc", DefaultPageSize},
		{"0", DefaultPageSize},
		{"-1", DefaultPageSize},
		{"20", 20},
	}
	for _, tc := range cases {
		if got := ParsePage("1", tc.raw).Size; got != tc.want {
			t.Fatalf("ParsePage size(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestPageOffsetNeverNegative(t *testing.T) {
	for page := 1; page <= 10; page++ {
		p := Page{Number: page, Size: 5}
		want := (page - 1) * 5
		if got := p.Offset(); got != want || got < 0 {
			t.Fatalf("offset(page=%d) = %d, want %d", page, got, want)
		}
	}
	if got := (Page{Number: 0, Size: 5}).Offset(); got != 0 {
		t.Fatalf("offset for unnormalized page 0 = %d, want 0", got)
	}
}

func TestNewPaginationTotals(t *testing.T) {
	cases := []struct {
		total     int64
		size      int
		wantPages int64
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{7, 5, 2},
		{10, 5, 2},
		{11, 5, 3},
	}
	for _, tc := range cases {
		env := NewPagination(Page{Number: 1, Size: tc.size}, tc.total)
		if env.TotalPages != tc.wantPages {
			t.Fatalf("totalPages(total=%d, size=%d) = %d, want %d",
				tc.total, tc.size, env.TotalPages, tc.wantPages)
		}
		if env.TotalItems != tc.total {
			t.Fatalf("totalItems = %d, want %d", env.TotalItems, tc.total)
		}
	}
}

func TestNewPaginationPastLastPageIsNotAnError(t *testing.T) {
	env := NewPagination(Page{Number: 9, Size: 5}, 7)
	if env.PageNumber != 9 || env.TotalPages != 2 || env.TotalItems != 7 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}
