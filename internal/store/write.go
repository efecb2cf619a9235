package store

import (
	"context"
	"database/sql"
	"fmt"
)

// WriteEvaluation appends ev and its steps in one transaction and
// assigns the next seq.
//
// Returns:
//   - the stored evaluation (with Seq set)
//   - inserted: false if an evaluation with the same id already existed,
//     in which case the existing entry is returned unchanged
//   - error: any error that occurred
func (s *Store) WriteEvaluation(ctx context.Context, ev Evaluation) (Evaluation, bool, error) {
	if ev.ID == "" {
		return Evaluation{}, false, fmt.Errorf("write evaluation: id is empty")
	}
	if ev.Status != StatusOK && ev.Status != StatusFailed {
		return Evaluation{}, false, fmt.Errorf("write evaluation: invalid status %q", ev.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Evaluation{}, false, fmt.Errorf("write evaluation: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM evaluations`).Scan(&seq); err != nil {
		return Evaluation{}, false, fmt.Errorf("write evaluation: next seq: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO evaluations
		(id, seq, source, script_hash, status, fingerprint, error_code, error_message, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		seq,
		ev.Source,
		ev.ScriptHash,
		string(ev.Status),
		nullable(ev.Fingerprint),
		ev.ErrorCode,
		ev.Error,
		nullable(ev.Snapshot),
	)
	if err != nil {
		return Evaluation{}, false, fmt.Errorf("write evaluation: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return Evaluation{}, false, fmt.Errorf("write evaluation: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Conflict - already journaled
		if err := tx.Commit(); err != nil {
			return Evaluation{}, false, fmt.Errorf("write evaluation: commit (existing): %w", err)
		}
		existing, err := s.ReadEvaluation(ctx, ev.ID)
		if err != nil {
			return Evaluation{}, false, err
		}
		return existing, false, nil
	}

	for _, step := range ev.Steps {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO evaluation_steps
			(evaluation_id, seq, kind, detail, origin)
			VALUES (?, ?, ?, ?, ?)
		`,
			ev.ID,
			step.Seq,
			step.Kind,
			step.Detail,
			step.Origin,
		)
		if err != nil {
			return Evaluation{}, false, fmt.Errorf("write evaluation: step %d: %w", step.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Evaluation{}, false, fmt.Errorf("write evaluation: commit: %w", err)
	}

	ev.Seq = seq
	return ev, true, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
