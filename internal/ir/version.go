package ir

// Version constants stamped on evaluation results and journal records.
const (
	// SchemaVersion is the snapshot schema version.
	SchemaVersion = "1"

	// EngineVersion is the evaluator version.
	EngineVersion = "0.3.0"
)
