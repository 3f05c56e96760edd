package catalog

import (
	"net/url"
	"slices"
	"strconv"

	"jobly/api-service/internal/sqlbuilder"
)

// JobFilter narrows the job list. Zero-valued fields impose no constraint.
type JobFilter struct {
	Title     string // case-insensitive substring
	MinSalary *int   // inclusive lower bound
	HasEquity *bool  // nil: any; true: non-zero equity; false: zero equity
}

// Compile turns f into WHERE predicates. Placeholders are numbered in the
// order minSalary, equity, title.
func (f JobFilter) Compile() *sqlbuilder.Filter {
	w := sqlbuilder.NewFilter()
	if f.MinSalary != nil {
		w.Addf("salary >= %s", *f.MinSalary)
	}
	if f.HasEquity != nil {
		if *f.HasEquity {
			w.Add("equity <> '0.0'")
		} else {
			w.Add("equity = '0.0'")
		}
	}
	if f.Title != "" {
		w.Addf("title ILIKE %s", "%"+f.Title+"%")
	}
	return w
}

// ParseJobFilter reads title, minSalary and hasEquity from a query string.
// Any other parameter, a minSalary that is not a non-negative INTEGER or a
// hasEquity other than "true"/"false" is a client-input error.
func ParseJobFilter(q url.Values) (JobFilter, error) {
	if err := onlyParams(q, "title", "minSalary", "hasEquity"); err != nil {
		return JobFilter{}, err
	}

	var f JobFilter
	f.Title = q.Get("title")

	if q.Has("minSalary") {
		v, err := parseCount("minSalary", q.Get("minSalary"))
		if err != nil {
			return JobFilter{}, err
		}
		f.MinSalary = &v
	}

	if q.Has("hasEquity") {
		switch q.Get("hasEquity") {
		case "true":
			f.HasEquity = ptr(true)
		case "false":
			f.HasEquity = ptr(false)
		default:
			return JobFilter{}, badRequest("hasEquity must be either 'true' or 'false'")
		}
	}
	return f, nil
}

// CompanyFilter narrows the company list. Zero-valued fields impose no constraint.
type CompanyFilter struct {
	Name         string // case-insensitive substring
	MinEmployees *int
	MaxEmployees *int
}

// Compile turns f into WHERE predicates, numbered name, min, max.
func (f CompanyFilter) Compile() *sqlbuilder.Filter {
	w := sqlbuilder.NewFilter()
	if f.Name != "" {
		w.Addf("name ILIKE %s", "%"+f.Name+"%")
	}
	if f.MinEmployees != nil {
		w.Addf("num_employees >= %s", *f.MinEmployees)
	}
	if f.MaxEmployees != nil {
		w.Addf("num_employees <= %s", *f.MaxEmployees)
	}
	return w
}

// ParseCompanyFilter reads name, minEmployees and maxEmployees from a query
// string and rejects a minimum greater than the maximum.
func ParseCompanyFilter(q url.Values) (CompanyFilter, error) {
	if err := onlyParams(q, "name", "minEmployees", "maxEmployees"); err != nil {
		return CompanyFilter{}, err
	}

	var f CompanyFilter
	f.Name = q.Get("name")

	if q.Has("minEmployees") {
		v, err := parseCount("minEmployees", q.Get("minEmployees"))
		if err != nil {
			return CompanyFilter{}, err
		}
		f.MinEmployees = &v
	}
	if q.Has("maxEmployees") {
		v, err := parseCount("maxEmployees", q.Get("maxEmployees"))
		if err != nil {
			return CompanyFilter{}, err
		}
		f.MaxEmployees = &v
	}
	if f.MinEmployees != nil && f.MaxEmployees != nil && *f.MinEmployees > *f.MaxEmployees {
		return CompanyFilter{}, badRequest("minEmployees cannot be greater than maxEmployees")
	}
	return f, nil
}

// maxInt4 is the largest value of a PostgreSQL INTEGER column.
const maxInt4 = 1<<31 - 1

// parseCount parses a non-negative integer that fits the INTEGER columns it
// is compared against.
func parseCount(param, s string) (int, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v < 0 {
		return 0, badRequest("%s must be an integer between 0 and %d", param, maxInt4)
	}
	return int(v), nil
}

func onlyParams(q url.Values, allowed ...string) error {
	var unknown []string
	for k := range q {
		if !slices.Contains(allowed, k) {
			unknown = append(unknown, "unknown query parameter "+strconv.Quote(k))
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return &ValidationError{Msg: "invalid query", Details: unknown}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
