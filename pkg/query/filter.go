package query

import "strings"

// Match selects how a filter constraint is compared against a field.
type Match int

const (
	// MatchExact compares the field for equality.
	MatchExact Match = iota
	// MatchSubstring compares with a case-insensitive substring match.
	MatchSubstring
)

// Constraint is a single field comparison. Constraints combine with
// logical AND.
type Constraint struct {
	Field string
	Value string
	Match Match
}

// Filter is a conjunctive predicate over entity fields.
type Filter struct {
	Constraints []Constraint
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return len(f.Constraints) == 0
}

// Schema enumerates the filterable keys of an entity and the match kind
// applied to each. Keys absent from the schema are dropped during
// parsing rather than passed through untyped.
type Schema map[string]Match

// UserFilterSchema covers the filterable user fields. The free-text
// fields use substring matching.
var UserFilterSchema = Schema{
	"username":  MatchSubstring,
	"email":     MatchSubstring,
	"firstName": MatchSubstring,
	"lastName":  MatchSubstring,
}

// QuestionFilterSchema covers the filterable question fields.
var QuestionFilterSchema = Schema{
	"answered": MatchExact,
	"answerer": MatchExact,
}

// ParseFilter parses a compact filter string of the form
// "key1:value1|key2:value2" against a schema. An empty input yields an
// empty filter. Malformed segments never fail the parse: a segment
// without ':' is treated as a key with an empty value, and unknown keys
// are skipped.
func ParseFilter(raw string, schema Schema) Filter {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Filter{}
	}
	var filter Filter
	for _, segment := range strings.Split(raw, "|") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, ":")
		key = strings.TrimSpace(key)
		match, ok := schema[key]
		if !ok {
			continue
		}
		filter.Constraints = append(filter.Constraints, Constraint{
			Field: key,
			Value: value,
			Match: match,
		})
	}
	return filter
}
