package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/queryir"
	"github.com/roach88/buildcfg/internal/querysql"
)

// evaluationFields are the evaluations columns, in scan order.
var evaluationFields = []string{
	"id", "seq", "source", "script_hash", "status",
	"fingerprint", "error_code", "error_message", "snapshot",
}

// JournalSchema lists the tables and columns journal queries may read.
var JournalSchema = queryir.Schema{
	"evaluations": evaluationFields,
}

// ListOptions filters ListEvaluations.
type ListOptions struct {
	Source string            // exact match; empty means any
	Status Status            // empty means any
	Where  queryir.Predicate // extra filter over evaluations columns; nil means none
	Limit  int               // most recent Limit entries; 0 means all
}

// ReadEvaluation retrieves a single evaluation with its steps.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEvaluation(ctx context.Context, id string) (Evaluation, error) {
	evaluations, err := s.selectEvaluations(ctx, queryir.Select{
		From:   "evaluations",
		Fields: evaluationFields,
		Filter: queryir.Equals{Field: "id", Value: ir.String(id)},
	})
	if err != nil {
		return Evaluation{}, err
	}
	if len(evaluations) == 0 {
		return Evaluation{}, sql.ErrNoRows
	}

	ev := evaluations[0]
	ev.Steps, err = s.readSteps(ctx, id)
	if err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

// ListEvaluations returns journal entries without their steps, ordered
// by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListEvaluations(ctx context.Context, opts ListOptions) ([]Evaluation, error) {
	var filters []queryir.Predicate
	if opts.Source != "" {
		filters = append(filters, queryir.Equals{Field: "source", Value: ir.String(opts.Source)})
	}
	if opts.Status != "" {
		filters = append(filters, queryir.Equals{Field: "status", Value: ir.String(string(opts.Status))})
	}
	filters = append(filters, opts.Where)

	q := queryir.Select{
		From:    "evaluations",
		Fields:  evaluationFields,
		Filter:  queryir.AllOf(filters...),
		OrderBy: []queryir.Order{{Field: "seq"}},
	}
	if opts.Limit > 0 {
		// newest Limit entries, still returned oldest first
		q.OrderBy = []queryir.Order{{Field: "seq", Desc: true}}
		q.Limit = opts.Limit
	}

	evaluations, err := s.selectEvaluations(ctx, q)
	if err != nil {
		return nil, err
	}
	if opts.Limit > 0 {
		slices.Reverse(evaluations)
	}
	return evaluations, nil
}

// FindByFingerprint returns every successful evaluation that produced
// the configuration with the given fingerprint, ordered by seq.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]Evaluation, error) {
	return s.selectEvaluations(ctx, queryir.Select{
		From:    "evaluations",
		Fields:  evaluationFields,
		Filter:  queryir.Equals{Field: "fingerprint", Value: ir.String(fingerprint)},
		OrderBy: []queryir.Order{{Field: "seq"}},
	})
}

// CheckWhere reports whether p only references evaluations columns with
// comparable values.
func CheckWhere(p queryir.Predicate) error {
	return queryir.Validate(queryir.Select{
		From:   "evaluations",
		Fields: evaluationFields,
		Filter: p,
	}, JournalSchema).Err()
}

// selectEvaluations validates q, compiles it and scans the rows.
func (s *Store) selectEvaluations(ctx context.Context, q queryir.Select) ([]Evaluation, error) {
	if err := queryir.Validate(q, JournalSchema).Err(); err != nil {
		return nil, err
	}
	query, args, err := querysql.NewCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	return s.queryEvaluations(ctx, query, args...)
}

func (s *Store) queryEvaluations(ctx context.Context, query string, args ...any) ([]Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	evaluations := []Evaluation{}
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		evaluations = append(evaluations, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluations: %w", err)
	}
	return evaluations, nil
}

func (s *Store) readSteps(ctx context.Context, id string) ([]engine.Step, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, detail, origin
		FROM evaluation_steps
		WHERE evaluation_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []engine.Step{}
	for rows.Next() {
		var step engine.Step
		if err := rows.Scan(&step.Seq, &step.Kind, &step.Detail, &step.Origin); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvaluation(row scanner) (Evaluation, error) {
	var ev Evaluation
	var status string
	var fingerprint, snapshot sql.NullString
	if err := row.Scan(
		&ev.ID, &ev.Seq, &ev.Source, &ev.ScriptHash, &status,
		&fingerprint, &ev.ErrorCode, &ev.Error, &snapshot,
	); err != nil {
		return Evaluation{}, err
	}
	ev.Status = Status(status)
	ev.Fingerprint = fingerprint.String
	ev.Snapshot = snapshot.String
	return ev, nil
}
