package sqlbuilder

import (
	"fmt"
	"strings"
)

// Filter collects WHERE predicates and their bound values. A predicate and
// its value are always appended together, so placeholder numbering follows
// the order of the calls.
type Filter struct {
	offset     int
	predicates []string
	values     []any
}

// NewFilter returns a Filter whose first placeholder is $1.
func NewFilter() *Filter { return &Filter{} }

// NewFilterAfter returns a Filter whose first placeholder is $(n+1), for
// statements that already bind n values before the WHERE clause.
func NewFilterAfter(n int) *Filter { return &Filter{offset: n} }

// Add appends a predicate that binds no value.
func (f *Filter) Add(predicate string) {
	f.predicates = append(f.predicates, predicate)
}

// Addf appends a predicate bound to v. The single %s verb in format is
// replaced by the next placeholder.
func (f *Filter) Addf(format string, v any) {
	f.values = append(f.values, v)
	f.predicates = append(f.predicates, fmt.Sprintf(format, Placeholder(f.offset+len(f.values))))
}

// Predicates returns the predicates in insertion order.
func (f *Filter) Predicates() []string { return append([]string(nil), f.predicates...) }

// Values returns the bound values aligned with their placeholders.
func (f *Filter) Values() []any { return append([]any(nil), f.values...) }

// Empty reports whether no predicate was added.
func (f *Filter) Empty() bool { return len(f.predicates) == 0 }

// Clause returns " WHERE p1 AND p2 …", or "" when no predicate applies.
func (f *Filter) Clause() string {
	if f.Empty() {
		return ""
	}
	return " WHERE " + strings.Join(f.predicates, " AND ")
}
