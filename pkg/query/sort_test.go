package query

import "testing"

func TestParseSortEmptyInputUsesDefault(t *testing.T) {
	orders := ParseSort("")
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if orders[0].Field != "createdAt" || !orders[0].Desc {
		t.Fatalf("expected createdAt descending, got %+v", orders[0])
	}
}

func TestParseSortCompositeOrdering(t *testing.T) {
	orders := ParseSort("-createdAt|username")
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].Field != "createdAt" || !orders[0].Desc {
		t.Fatalf("expected createdAt descending first, got %+v", orders[0])
	}
	if orders[1].Field != "username" || orders[1].Desc {
		t.Fatalf("expected username ascending second, got %+v", orders[1])
	}
}

func TestParseSortAllowedFields(t *testing.T) {
	orders := ParseSort("-secret|username", "username", "createdAt")
	if len(orders) != 1 {
		t.Fatalf("expected disallowed field to be dropped, got %+v", orders)
	}
	if orders[0].Field != "username" {
		t.Fatalf("expected username order, got %+v", orders[0])
	}
}

func TestParseSortNothingSurvivesFallsBackToDefault(t *testing.T) {
	orders := ParseSort("-secret", "username")
	if len(orders) != 1 || orders[0].Field != "createdAt" || !orders[0].Desc {
		t.Fatalf("expected default ordering, got %+v", orders)
	}
}
