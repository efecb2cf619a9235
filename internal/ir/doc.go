// Package ir holds the value types shared by every other package of
// buildcfg: dependency coordinates, scopes, repositories, project
// identity, task property values, declarations, error kinds, and the
// canonical JSON used for fingerprints.
//
// ir imports nothing internal. All other packages import ir.
//
// Constraints:
//   - no floats and no nulls in property values
//   - JSON tags use snake_case
//   - identity fields are pointers; nil means "never set"
package ir
