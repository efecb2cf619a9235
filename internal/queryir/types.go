package queryir

import "github.com/roach88/buildcfg/internal/ir"

// Query is a read over the journal.
//
// This is a sealed interface. Select is the only implementation.
type Query interface {
	queryNode()
}

// Predicate is a row filter.
//
// This is a sealed interface. Predicate types:
//   - Equals: column = literal
//   - And: every predicate holds (empty And always holds)
type Predicate interface {
	predicateNode()
}

// Select reads Fields from the table From.
//
// Semantics:
//
//	SELECT <fields> FROM <from> WHERE <filter> ORDER BY <order>, id LIMIT <limit>
//
// Example:
//
//	Select{
//	  From:    "evaluations",
//	  Fields:  []string{"id", "seq", "status"},
//	  Filter:  And{Predicates: []Predicate{
//	    Equals{Field: "source", Value: ir.String("build.cue")},
//	    Equals{Field: "status", Value: ir.String("failed")},
//	  }},
//	  OrderBy: []Order{{Field: "seq", Desc: true}},
//	  Limit:   5,
//	}
//
// Backends always order by id last so that rows with equal sort keys
// come back in the same order every time.
type Select struct {
	From    string    // table name
	Fields  []string  // columns, in result order; never empty
	Filter  Predicate // nil keeps every row
	OrderBy []Order
	Limit   int // 0 means no limit
}

func (Select) queryNode() {}

// Order sorts by one column.
type Order struct {
	Field string
	Desc  bool
}

// Equals holds when the column Field equals Value.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// And holds when every predicate holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// AllOf returns the conjunction of preds, dropping nils. It returns nil
// when nothing is left and the predicate itself when only one is.
func AllOf(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
