package sqlbuilder_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"jobly/api-service/internal/sqlbuilder"
)

func TestFilter_Empty(t *testing.T) {
	f := sqlbuilder.NewFilter()
	if got := f.Clause(); got != "" {
		t.Errorf("Clause() = %q, want empty", got)
	}
	if len(f.Values()) != 0 {
		t.Errorf("Values() = %v, want none", f.Values())
	}
}

func TestFilter_SharedCounter(t *testing.T) {
	f := sqlbuilder.NewFilter()
	f.Addf("salary >= %s", 150000)
	f.Add("equity <> '0.0'")
	f.Addf("title ILIKE %s", "%eng%")

	want := " WHERE salary >= $1 AND equity <> '0.0' AND title ILIKE $2"
	if got := f.Clause(); got != want {
		t.Errorf("Clause() = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]any{150000, "%eng%"}, f.Values()); diff != "" {
		t.Errorf("Values mismatch (-want +got):\n%s", diff)
	}
}

func TestFilter_After(t *testing.T) {
	f := sqlbuilder.NewFilterAfter(2)
	f.Addf("a = %s", 1)
	if diff := cmp.Diff([]string{"a = $3"}, f.Predicates()); diff != "" {
		t.Errorf("Predicates mismatch (-want +got):\n%s", diff)
	}
}
