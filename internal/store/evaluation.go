package store

import (
	"fmt"

	"github.com/roach88/buildcfg/internal/engine"
	"github.com/roach88/buildcfg/internal/ir"
)

// Status is the outcome of a journaled evaluation.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Evaluation is one journal entry. Seq is assigned by the store.
// Fingerprint and Snapshot are empty for failed evaluations; ErrorCode
// and Error are empty for successful ones.
type Evaluation struct {
	ID          string        `json:"id"`
	Seq         int64         `json:"seq"`
	Source      string        `json:"source,omitempty"`
	ScriptHash  string        `json:"script_hash"`
	Status      Status        `json:"status"`
	Fingerprint string        `json:"fingerprint,omitempty"`
	ErrorCode   string        `json:"error_code,omitempty"`
	Error       string        `json:"error,omitempty"`
	Snapshot    string        `json:"snapshot,omitempty"` // canonical JSON
	Steps       []engine.Step `json:"steps,omitempty"`
}

// FromResult builds the journal entry of a successful evaluation.
func FromResult(res *engine.Result) (Evaluation, error) {
	snapshot, err := ir.MarshalCanonical(res.Snapshot().CanonicalMap())
	if err != nil {
		return Evaluation{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return Evaluation{
		ID:          res.ID,
		Source:      res.Source,
		ScriptHash:  res.ScriptHash,
		Status:      StatusOK,
		Fingerprint: res.Fingerprint,
		Snapshot:    string(snapshot),
		Steps:       res.Steps,
	}, nil
}

// FromFailure builds the journal entry of an evaluation of script that
// failed with cause.
func FromFailure(id string, script *ir.Script, cause error) (Evaluation, error) {
	hash, err := ir.ScriptHash(script)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		ID:         id,
		Source:     script.Source,
		ScriptHash: hash,
		Status:     StatusFailed,
		ErrorCode:  string(ir.CodeOf(cause)),
		Error:      cause.Error(),
	}, nil
}
