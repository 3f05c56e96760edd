// Package sqlbuilder assembles the dynamic parts of PostgreSQL statements:
// SET clauses for partial updates and WHERE clauses for list filters.
//
// Every bound value goes through a positional placeholder ($1, $2, …).
// Identifiers never come from the caller: columns are resolved through an
// explicit allow-list before any SQL is produced.
package sqlbuilder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNoData is returned when a partial update carries no fields.
	ErrNoData = errors.New("no data")

	// ErrUnknownField is returned when a patch names a field that is not in
	// the column allow-list.
	ErrUnknownField = errors.New("unknown field")
)

// Placeholder returns the PostgreSQL positional parameter for index n (1-based).
func Placeholder(n int) string { return "$" + strconv.Itoa(n) }

// Columns maps a logical field name to its physical column name.
// It doubles as the allow-list of updatable fields.
type Columns map[string]string

// Patch is an ordered set of field assignments. Fields keep the order in
// which they were first set.
type Patch struct {
	fields []string
	values []any
}

// Set assigns v to field. Setting a field twice keeps its original position.
func (p *Patch) Set(field string, v any) {
	for i, f := range p.fields {
		if f == field {
			p.values[i] = v
			return
		}
	}
	p.fields = append(p.fields, field)
	p.values = append(p.values, v)
}

// Get returns the value assigned to field, if any.
func (p Patch) Get(field string) (any, bool) {
	for i, f := range p.fields {
		if f == field {
			return p.values[i], true
		}
	}
	return nil, false
}

// Clone returns a copy of p that can be modified independently.
func (p Patch) Clone() Patch {
	return Patch{
		fields: append([]string(nil), p.fields...),
		values: append([]any(nil), p.values...),
	}
}

// Len returns the number of fields in the patch.
func (p Patch) Len() int { return len(p.fields) }

// Fields returns the field names in insertion order.
func (p Patch) Fields() []string { return append([]string(nil), p.fields...) }

// Update is a compiled SET clause.
type Update struct {
	// SetCols is the body of the SET clause, e.g. `"first_name"=$1, "age"=$2`.
	SetCols string
	// Values holds one value per assignment, aligned with the placeholders.
	Values []any
}

// NextPlaceholder returns the first placeholder after the SET values, for
// use in the statement's WHERE clause.
func (u Update) NextPlaceholder() string { return Placeholder(len(u.Values) + 1) }

// Args returns the SET values followed by extra.
func (u Update) Args(extra ...any) []any {
	args := make([]any, 0, len(u.Values)+len(extra))
	args = append(args, u.Values...)
	return append(args, extra...)
}

// PartialUpdate compiles p into a SET clause, translating every field through
// cols. It fails with ErrNoData on an empty patch and with ErrUnknownField
// when a field is not allowed.
//
//	{firstName: "Aliya", age: 32} => `"first_name"=$1, "age"=$2`, ["Aliya", 32]
func PartialUpdate(p Patch, cols Columns) (Update, error) {
	if p.Len() == 0 {
		return Update{}, ErrNoData
	}

	assignments := make([]string, 0, p.Len())
	for i, field := range p.fields {
		col, ok := cols[field]
		if !ok || col == "" {
			return Update{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		assignments = append(assignments, quoteIdent(col)+"="+Placeholder(i+1))
	}

	return Update{
		SetCols: strings.Join(assignments, ", "),
		Values:  append([]any(nil), p.values...),
	}, nil
}

// quoteIdent wraps an allow-listed column name in double quotes.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
