// Package engine implements the Configuration Evaluator.
//
// An evaluation turns an ir.Script into a finalized (Descriptor, Graph)
// pair in a fixed pipeline:
//
//  1. walk declarations in order: plugins are applied as they appear,
//     everything else is recorded on the descriptor
//  2. verify dependency scopes against the applied plugins: a scope no
//     applied plugin binds fails with UNKNOWN_SCOPE unless strict scopes
//     are turned off (WithStrictScopes), and a managed dependency needs a
//     platform in its scope (MISSING_VERSION)
//  3. materialize the task graph; the task set is closed from here on
//  4. run every recorded task mutation in declaration order, resolving
//     filters against the closed task set
//  5. finalize the descriptor and seal the graph
//
// Evaluation is single-threaded and synchronous. Nothing in it blocks
// or can be cancelled. Any error aborts the whole evaluation and no
// Result is returned.
//
// The Evaluator itself holds only configuration and a read-only plugin
// registry, so one Evaluator may run many evaluations concurrently.
// Dependency resolution is the only blocking step and lives outside the
// pipeline in ResolveDependencies.
package engine
