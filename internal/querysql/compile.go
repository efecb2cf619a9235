package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/queryir"
)

// Compiler compiles queryir queries to parameterized SQLite SQL.
//
// Every query ends its ORDER BY with the Tiebreaker column so results
// come back in the same order every time. Values are always bound as
// parameters, never interpolated.
type Compiler struct {
	Tiebreaker string
}

// NewCompiler creates a Compiler that breaks ties on id.
func NewCompiler() *Compiler {
	return &Compiler{Tiebreaker: "id"}
}

// Compile converts a query to SQL and its parameters.
// The query is assumed to be valid (see queryir.Validate).
func (c *Compiler) Compile(q queryir.Query) (string, []any, error) {
	switch query := q.(type) {
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil query")
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		if query == nil {
			return "", nil, fmt.Errorf("cannot compile nil query")
		}
		return c.compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *Compiler) compileSelect(q queryir.Select) (string, []any, error) {
	if len(q.Fields) == 0 {
		return "", nil, fmt.Errorf("select from %s: no fields", q.From)
	}

	var b strings.Builder
	var params []any

	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(q.Fields, ", "), q.From)

	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = append(params, whereParams...)
	}

	b.WriteString(" ORDER BY " + c.orderBy(q.OrderBy))

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	return b.String(), params, nil
}

// orderBy renders the sort keys followed by the tiebreaker, unless the
// tiebreaker is already a sort key.
func (c *Compiler) orderBy(order []queryir.Order) string {
	parts := make([]string, 0, len(order)+1)
	tied := false
	for _, o := range order {
		parts = append(parts, c.orderTerm(o))
		if o.Field == c.Tiebreaker {
			tied = true
		}
	}
	if !tied && c.Tiebreaker != "" {
		parts = append(parts, c.orderTerm(queryir.Order{Field: c.Tiebreaker}))
	}
	return strings.Join(parts, ", ")
}

func (c *Compiler) orderTerm(o queryir.Order) string {
	term := o.Field
	if o.Field == c.Tiebreaker {
		// text ids compare bytewise whatever the collation default
		term += " COLLATE BINARY"
	}
	if o.Desc {
		return term + " DESC"
	}
	return term + " ASC"
}

// compilePredicate compiles a predicate to a WHERE fragment.
func (c *Compiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *Compiler) compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func (c *Compiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if _, nested := pred.(queryir.And); nested {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// valueToParam converts a literal to a database/sql parameter.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case nil:
		return nil, fmt.Errorf("missing value")
	default:
		return nil, fmt.Errorf("%T cannot be used as a SQL parameter", v)
	}
}
