// Package harness provides conformance testing for build descriptors.
//
// The harness evaluates a descriptor with the real evaluator, optionally
// resolves the result against a catalog, and checks assertions on the
// finalized configuration, the evaluation trace or the error code.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: junit_platform
//	description: "The test task runs on the JUnit Platform"
//	descriptor: descriptors/build.hcl
//	plugins:
//	  - plugins
//	catalog: catalog.yaml
//	options:
//	  dependency_policy: highest-version
//	  strict_scopes: true
//	assertions:
//	  - type: task_property
//	    task: test
//	    property: testFramework
//	    value: junit-platform
//	  - type: dependencies
//	    task: compileTestJava
//	    coordinates: ["org.junit.jupiter:junit-jupiter"]
//	  - type: step_order
//	    steps: [apply, dependency, verify, materialize, mutate, finalize]
//
// Paths are relative to the scenario file when loaded with
// LoadScenarioFile or RunSuite.
//
// # Failures
//
// A scenario that expects the evaluation to fail uses an error_code
// assertion:
//
//	assertions:
//	  - type: error_code
//	    code: UNKNOWN_PLUGIN
//
// Any other assertion against a failed evaluation fails, and a failed
// evaluation without an error_code assertion fails the scenario.
//
// # Determinism
//
// Evaluations are stamped with a logical clock and a fixed evaluation id
// (evaluation_id, default "scenario-default"), so two runs of a scenario
// produce byte-identical golden output.
//
// # Golden Files
//
// RunWithGolden compares the canonical JSON of an evaluation against
// testdata/golden/<name>.golden. Run `go test ./internal/harness -update`
// to regenerate them.
package harness
