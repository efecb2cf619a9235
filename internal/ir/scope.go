package ir

import (
	"fmt"
	"regexp"
)

// Scope classifies when and how a dependency is used, and through the
// plugin scope bindings, which tasks consume it.
type Scope string

// Well-known scopes contributed by the built-in plugins.
const (
	ScopeAPI             Scope = "api"
	ScopeCompile         Scope = "compile"
	ScopeCompileOnly     Scope = "compileOnly"
	ScopeRuntimeOnly     Scope = "runtimeOnly"
	ScopeTest            Scope = "test"
	ScopeTestCompileOnly Scope = "testCompileOnly"
	ScopeTestRuntimeOnly Scope = "testRuntimeOnly"
)

// scopeAliases maps alternate spellings to their canonical scope.
var scopeAliases = map[Scope]Scope{
	"implementation":     ScopeCompile,
	"testImplementation": ScopeTest,
}

var scopePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// NormalizeScope resolves aliases such as "implementation".
func NormalizeScope(s Scope) Scope {
	if canonical, ok := scopeAliases[s]; ok {
		return canonical
	}
	return s
}

// ValidateScope checks that s is a well-formed scope tag.
// Whether a plugin binds it is checked by the evaluator.
func ValidateScope(s Scope) error {
	if s == "" {
		return fmt.Errorf("scope is empty")
	}
	if !scopePattern.MatchString(string(s)) {
		return fmt.Errorf("invalid scope %q: must start with a letter and contain only letters, digits, '_' or '-'", s)
	}
	return nil
}

// ScopeBinding states which tasks consume dependencies of a scope.
type ScopeBinding struct {
	Scope     Scope    `json:"scope"`
	Consumers []string `json:"consumers"`
}
