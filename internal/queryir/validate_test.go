package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildcfg/internal/ir"
)

var testSchema = Schema{
	"evaluations": {"id", "seq", "source", "status", "error_code"},
	"steps":       {"evaluation_id", "seq", "kind"},
}

func TestValidate_ValidQuery(t *testing.T) {
	query := Select{
		From:   "evaluations",
		Fields: []string{"id", "seq"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "source", Value: ir.String("build.cue")},
			Equals{Field: "seq", Value: ir.Int(3)},
		}},
		OrderBy: []Order{{Field: "seq", Desc: true}},
		Limit:   5,
	}

	result := Validate(query, testSchema)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
	assert.NoError(t, result.Err())
}

func TestValidate_PointerVariants(t *testing.T) {
	query := &Select{
		From:   "steps",
		Fields: []string{"kind"},
		Filter: &And{Predicates: []Predicate{
			&Equals{Field: "evaluation_id", Value: ir.String("e-1")},
		}},
	}

	assert.True(t, Validate(query, testSchema).Valid)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		problem string
	}{
		{"nil query", nil, "nil query"},
		{"nil pointer", (*Select)(nil), "nil query"},
		{"unknown table", Select{From: "tasks", Fields: []string{"id"}}, `unknown table "tasks"`},
		{"no fields", Select{From: "evaluations"}, "no fields selected"},
		{"unknown field", Select{From: "evaluations", Fields: []string{"fingerprint"}}, `unknown field "fingerprint"`},
		{"field from other table", Select{From: "steps", Fields: []string{"status"}}, `unknown field "status"`},
		{"unknown filter field", Select{
			From:   "evaluations",
			Fields: []string{"id"},
			Filter: Equals{Field: "script", Value: ir.String("x")},
		}, `unknown field "script"`},
		{"unknown order field", Select{
			From:    "evaluations",
			Fields:  []string{"id"},
			OrderBy: []Order{{Field: "time"}},
		}, `unknown field "time"`},
		{"nil value", Select{
			From:   "evaluations",
			Fields: []string{"id"},
			Filter: Equals{Field: "status"},
		}, "compared to nothing"},
		{"bool value", Select{
			From:   "evaluations",
			Fields: []string{"id"},
			Filter: Equals{Field: "status", Value: ir.Bool(true)},
		}, "only strings and integers compare"},
		{"list value", Select{
			From:   "evaluations",
			Fields: []string{"id"},
			Filter: Equals{Field: "status", Value: ir.Strings("ok")},
		}, "only strings and integers compare"},
		{"nil in and", Select{
			From:   "evaluations",
			Fields: []string{"id"},
			Filter: And{Predicates: []Predicate{nil}},
		}, "nil predicate"},
		{"negative limit", Select{From: "evaluations", Fields: []string{"id"}, Limit: -1}, "negative limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query, testSchema)
			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Problems)
			assert.Contains(t, result.Problems[0], tt.problem)
			assert.ErrorContains(t, result.Err(), tt.problem)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	query := Select{
		From:   "evaluations",
		Fields: []string{"id", "nope"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "status", Value: ir.Bool(false)},
			And{Predicates: []Predicate{
				Equals{Field: "missing", Value: ir.String("x")},
			}},
		}},
		Limit: -2,
	}

	result := Validate(query, testSchema)
	assert.False(t, result.Valid)
	assert.Len(t, result.Problems, 4)
}

func TestValidate_EmptyAndAlwaysHolds(t *testing.T) {
	query := Select{From: "evaluations", Fields: []string{"id"}, Filter: And{}}
	assert.True(t, Validate(query, testSchema).Valid)
}

func TestAllOf(t *testing.T) {
	a := Equals{Field: "status", Value: ir.String("ok")}
	b := Equals{Field: "seq", Value: ir.Int(1)}

	assert.Nil(t, AllOf())
	assert.Nil(t, AllOf(nil, nil))
	assert.Equal(t, a, AllOf(nil, a))
	assert.Equal(t, And{Predicates: []Predicate{a, b}}, AllOf(a, nil, b))
}
