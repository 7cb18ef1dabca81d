package query

import "testing"

func TestParseFilterEmptyInputMatchesEverything(t *testing.T) {
	if f := ParseFilter("", UserFilterSchema); !f.IsEmpty() {
		t.Fatalf("expected empty filter, got %+v", f)
	}
	if f := ParseFilter("   ", UserFilterSchema); !f.IsEmpty() {
		t.Fatalf("expected empty filter for blank input, got %+v", f)
	}
}

func TestParseFilterTextFieldsUseSubstringMatch(t *testing.T) {
	f := ParseFilter("username:bob|email:x", UserFilterSchema)
	if len(f.Constraints) != 2 {
		t.Fatalf("expected 2 constraints, got %d", len(f.Constraints))
	}
	first := f.Constraints[0]
	if first.Field != "username" || first.Value != "bob" || first.Match != MatchSubstring {
		t.Fatalf("unexpected first constraint: %+v", first)
	}
	second := f.Constraints[1]
	if second.Field != "email" || second.Value != "x" || second.Match != MatchSubstring {
		t.Fatalf("unexpected second constraint: %+v", second)
	}
}

func TestParseFilterExactMatchKeys(t *testing.T) {
	f := ParseFilter("answered:true", QuestionFilterSchema)
	if len(f.Constraints) != 1 {
		t.Fatalf("expected 1 constraint, got %d", len(f.Constraints))
	}
	if c := f.Constraints[0]; c.Field != "answered" || c.Value != "true" || c.Match != MatchExact {
		t.Fatalf("unexpected constraint: %+v", c)
	}
}

func TestParseFilterSkipsUnknownKeys(t *testing.T) {
	f := ParseFilter("username:bob|password:oops|role:admin", UserFilterSchema)
	if len(f.Constraints) != 1 {
		t.Fatalf("unknown keys must be dropped, got %+v", f.Constraints)
	}
	if f.Constraints[0].Field != "username" {
		t.Fatalf("expected username constraint, got %+v", f.Constraints[0])
	}
}

func TestParseFilterMalformedSegmentDegrades(t *testing.T) {
	// Segment without ':' is treated as key with empty value.
	f := ParseFilter("username|email:x", UserFilterSchema)
	if len(f.Constraints) != 2 {
		t.Fatalf("expected 2 constraints, got %+v", f.Constraints)
	}
	if f.Constraints[0].Field != "username" || f.Constraints[0].Value != "" {
		t.Fatalf("expected empty-value username constraint, got %+v", f.Constraints[0])
	}
}

func TestParseFilterEmptySegments(t *testing.T) {
	f := ParseFilter("|username:bob||", UserFilterSchema)
	if len(f.Constraints) != 1 {
		t.Fatalf("expected 1 constraint, got %+v", f.Constraints)
	}
}
