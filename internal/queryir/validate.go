package queryir

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/buildcfg/internal/ir"
)

// Schema lists the columns of each table a query may read.
type Schema map[string][]string

// ValidationResult lists everything wrong with a query.
type ValidationResult struct {
	Valid    bool
	Problems []string
}

// Err returns the problems as one error, or nil for a valid query.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	errs := make([]error, len(r.Problems))
	for i, p := range r.Problems {
		errs[i] = errors.New(p)
	}
	return fmt.Errorf("invalid query: %w", errors.Join(errs...))
}

// Validate checks query against schema without running it.
// Returns all problems found (does not fail-fast).
//
// Rules:
//  1. The table and every referenced column exist in schema
//  2. At least one column is selected
//  3. Compared values are String or Int
//  4. Limit is not negative
func Validate(query Query, schema Schema) ValidationResult {
	v := &validator{schema: schema, problems: []string{}}
	v.validateQuery(query)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	schema   Schema
	columns  []string
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	columns, ok := v.schema[sel.From]
	if !ok {
		v.addProblem("unknown table %q", sel.From)
		return
	}
	v.columns = columns

	if len(sel.Fields) == 0 {
		v.addProblem("no fields selected")
	}
	for _, f := range sel.Fields {
		v.checkColumn(f)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
	for _, o := range sel.OrderBy {
		v.checkColumn(o.Field)
	}
	if sel.Limit < 0 {
		v.addProblem("negative limit %d", sel.Limit)
	}
}

func (v *validator) checkColumn(field string) {
	if !slices.Contains(v.columns, field) {
		v.addProblem("unknown field %q (known: %v)", field, v.columns)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	v.checkColumn(eq.Field)
	switch eq.Value.(type) {
	case ir.String, ir.Int:
	case nil:
		v.addProblem("field %q compared to nothing", eq.Field)
	default:
		v.addProblem("field %q compared to %T; only strings and integers compare", eq.Field, eq.Value)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
