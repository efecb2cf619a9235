package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/project"
)

// Scenario defines a conformance test scenario.
// A scenario evaluates one descriptor against the built-in plugins plus
// optional plugin catalogs, then asserts on the finalized configuration,
// the evaluation trace or the error that aborted it.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Descriptor is the path of the .cue, .hcl or .star file to evaluate.
	Descriptor string `yaml:"descriptor"`

	// Plugins lists CUE plugin catalog directories loaded on top of the
	// built-in plugins.
	Plugins []string `yaml:"plugins,omitempty"`

	// Catalog is an optional resolver catalog. When set, a successful
	// evaluation is resolved against it.
	Catalog string `yaml:"catalog,omitempty"`

	// Options tune the evaluator's policies.
	Options Options `yaml:"options,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`

	// EvaluationID is an optional fixed evaluation id for deterministic tests.
	// If empty, defaults to "scenario-default".
	EvaluationID string `yaml:"evaluation_id,omitempty"`
}

// Options mirror the evaluator options. Empty fields keep the defaults.
type Options struct {
	DependencyPolicy string `yaml:"dependency_policy,omitempty"`
	IdentityPolicy   string `yaml:"identity_policy,omitempty"`
	StrictScopes     *bool  `yaml:"strict_scopes,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "task_exists": task is present (and of TaskType, if set)
	// - "task_absent": task is not present
	// - "task_property": task property equals Value, or is unset if Absent
	// - "dependencies": coordinates reaching Task through its scopes
	// - "scope": coordinates recorded in Scope
	// - "plugins": applied plugins, in application order
	// - "step_order": step kinds appear in this order
	// - "step_count": step Kind appears exactly Count times
	// - "mutation": the mutation with Filter matched exactly Matched
	// - "error_code": evaluation or resolution failed with Code
	// - "fingerprint": configuration fingerprint equals Fingerprint
	// - "resolved": resolved coordinates of Scope
	Type string `yaml:"type"`

	Task     string `yaml:"task,omitempty"`
	TaskType string `yaml:"task_type,omitempty"`
	Property string `yaml:"property,omitempty"`

	// Value is the expected property value (task_property).
	// Decoded YAML values are converted with ir.FromGo.
	Value any `yaml:"value,omitempty"`

	// Absent expects the property to be unset (task_property).
	Absent bool `yaml:"absent,omitempty"`

	Scope       string   `yaml:"scope,omitempty"`
	Coordinates []string `yaml:"coordinates,omitempty"`
	Plugins     []string `yaml:"plugins,omitempty"`

	// Steps is the expected step kind order (step_order).
	// Kinds don't need to be consecutive.
	Steps []string `yaml:"steps,omitempty"`

	Kind  string `yaml:"kind,omitempty"`
	Count int    `yaml:"count,omitempty"`

	Filter  string   `yaml:"filter,omitempty"`
	Matched []string `yaml:"matched,omitempty"`

	Code        string `yaml:"code,omitempty"`
	Fingerprint string `yaml:"fingerprint,omitempty"`
}

// Assertion type constants.
const (
	AssertTaskExists   = "task_exists"
	AssertTaskAbsent   = "task_absent"
	AssertTaskProperty = "task_property"
	AssertDependencies = "dependencies"
	AssertScope        = "scope"
	AssertPlugins      = "plugins"
	AssertStepOrder    = "step_order"
	AssertStepCount    = "step_count"
	AssertMutation     = "mutation"
	AssertErrorCode    = "error_code"
	AssertFingerprint  = "fingerprint"
	AssertResolved     = "resolved"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, "")
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving descriptor, plugin and catalog paths relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation
	if basePath != "" {
		scenario.Descriptor = resolvePath(basePath, scenario.Descriptor)
		scenario.Catalog = resolvePath(basePath, scenario.Catalog)
		for i, dir := range scenario.Plugins {
			scenario.Plugins[i] = resolvePath(basePath, dir)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Descriptor == "" {
		return fmt.Errorf("descriptor is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, err := os.Stat(s.Descriptor); os.IsNotExist(err) {
		return fmt.Errorf("descriptor file not found: %s", s.Descriptor)
	}
	for _, dir := range s.Plugins {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("plugin directory not found: %s", dir)
		}
	}
	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}

	if s.Options.DependencyPolicy != "" {
		if _, err := project.ParseDependencyPolicy(s.Options.DependencyPolicy); err != nil {
			return fmt.Errorf("options.dependency_policy: %w", err)
		}
	}
	if s.Options.IdentityPolicy != "" {
		if _, err := project.ParseIdentityPolicy(s.Options.IdentityPolicy); err != nil {
			return fmt.Errorf("options.identity_policy: %w", err)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTaskExists, AssertTaskAbsent, AssertDependencies:
		if a.Task == "" {
			return fmt.Errorf("assertions[%d]: task is required for %s", index, a.Type)
		}
	case AssertTaskProperty:
		if a.Task == "" || a.Property == "" {
			return fmt.Errorf("assertions[%d]: task and property are required for task_property", index)
		}
		if a.Absent && a.Value != nil {
			return fmt.Errorf("assertions[%d]: value and absent are mutually exclusive", index)
		}
		if !a.Absent {
			if a.Value == nil {
				return fmt.Errorf("assertions[%d]: value is required for task_property (or set absent)", index)
			}
			if _, err := ir.FromGo(a.Value); err != nil {
				return fmt.Errorf("assertions[%d]: value: %w", index, err)
			}
		}
	case AssertScope, AssertResolved:
		if a.Scope == "" {
			return fmt.Errorf("assertions[%d]: scope is required for %s", index, a.Type)
		}
	case AssertPlugins:
		if len(a.Plugins) == 0 {
			return fmt.Errorf("assertions[%d]: plugins list is required for plugins", index)
		}
	case AssertStepOrder:
		if len(a.Steps) == 0 {
			return fmt.Errorf("assertions[%d]: steps list is required for step_order", index)
		}
	case AssertStepCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for step_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for step_count", index)
		}
	case AssertMutation:
		if a.Filter == "" {
			return fmt.Errorf("assertions[%d]: filter is required for mutation", index)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	case AssertFingerprint:
		if a.Fingerprint == "" {
			return fmt.Errorf("assertions[%d]: fingerprint is required for fingerprint", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
