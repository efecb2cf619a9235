package compiler

import (
	"fmt"

	"github.com/roach88/buildcfg/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// Declaration errors (E201-E209)
	ErrInvalidDeclaration     = "E201" // missing or contradictory payload
	ErrMalformedCoordinate    = "E202" // versionless coordinate without managed
	ErrInvalidScope           = "E203" // scope name is not an identifier
	ErrUnknownEffectOp        = "E204" // effect op not understood
	ErrInvalidEffect          = "E205" // effect misses property, value or platform
	ErrUnknownPlugin          = "E206" // applied plugin is not registered
	ErrUnboundScope           = "E207" // no applied plugin binds the scope
	ErrManagedWithoutPlatform = "E208" // managed dependency has no platform in scope

	// Plugin catalog errors (E210-E219)
	ErrUnknownPrerequisite = "E210" // plugin applies an unknown plugin
	ErrDuplicatePlugin     = "E211" // plugin id defined twice
	ErrInvalidTask         = "E212" // task without a name or type
	ErrConflictingTask     = "E213" // one task name with two types
)

// ValidationError represents a static validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Origin  string `json:"origin,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Origin, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// PluginLookup finds plugin definitions by id. *plugin.Registry
// implements it.
type PluginLookup interface {
	Lookup(id string) (ir.PluginDefinition, bool)
}

var validOps = map[string]bool{
	ir.OpSet:         true,
	ir.OpUnset:       true,
	ir.OpAppend:      true,
	ir.OpPrepend:     true,
	ir.OpRemove:      true,
	ir.OpMerge:       true,
	ir.OpUsePlatform: true,
}

// Validate checks a script without evaluating it.
// Returns all errors found (does not fail-fast).
//
// With plugins nil, checks that need plugin definitions (E206, E207)
// are skipped.
func Validate(script *ir.Script, plugins PluginLookup) []ValidationError {
	var errs []ValidationError
	if script == nil {
		return errs
	}

	var bound map[ir.Scope]bool
	if plugins != nil {
		bound = make(map[ir.Scope]bool)
	}
	platforms := make(map[ir.Scope]bool)

	type depRef struct {
		field  string
		scope  ir.Scope
		coord  string
		origin string
	}
	var managed, scoped []depRef

	for i, decl := range script.Declarations {
		field := fmt.Sprintf("declarations[%d]", i)
		add := func(code, f, msg string) {
			errs = append(errs, ValidationError{Field: f, Message: msg, Code: code, Origin: decl.Origin})
		}

		if err := decl.Check(); err != nil {
			code := ErrInvalidDeclaration
			if ir.IsMalformedCoordinate(err) {
				code = ErrMalformedCoordinate
			}
			add(code, field, err.Error())
			continue
		}

		switch decl.Kind {
		case ir.DeclApplyPlugin:
			if plugins == nil {
				continue
			}
			if _, ok := plugins.Lookup(decl.PluginID); !ok {
				add(ErrUnknownPlugin, field+".plugin", fmt.Sprintf("plugin %q is not registered", decl.PluginID))
				continue
			}
			collectBindings(plugins, decl.PluginID, bound, map[string]bool{})

		case ir.DeclAddDependency, ir.DeclAddPlatform:
			dep := decl.Dependency
			if err := ir.ValidateScope(dep.Scope); err != nil {
				add(ErrInvalidScope, field+".scope", err.Error())
				continue
			}
			scope := ir.NormalizeScope(dep.Scope)
			if decl.Kind == ir.DeclAddPlatform {
				platforms[scope] = true
			}
			ref := depRef{field, scope, dep.Coordinate.String(), decl.Origin}
			if dep.Managed {
				managed = append(managed, ref)
			}
			scoped = append(scoped, ref)

		case ir.DeclMutateTasks:
			for j, spec := range decl.Mutation.Effects {
				f := fmt.Sprintf("%s.effects[%d]", field, j)
				if code, msg := checkEffect(spec); code != "" {
					add(code, f, msg)
				}
			}
		}
	}

	// scopes may be bound by a plugin applied after the dependency
	if bound != nil {
		for _, d := range scoped {
			if !bound[d.scope] {
				errs = append(errs, ValidationError{
					Field:   d.field + ".scope",
					Message: fmt.Sprintf("no applied plugin declares scope %q for %s", d.scope, d.coord),
					Code:    ErrUnboundScope,
					Origin:  d.origin,
				})
			}
		}
	}
	for _, d := range managed {
		if !platforms[d.scope] {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: fmt.Sprintf("managed dependency %s has no platform in scope %q", d.coord, d.scope),
				Code:    ErrManagedWithoutPlatform,
				Origin:  d.origin,
			})
		}
	}

	return errs
}

// collectBindings marks the scopes bound by id and its prerequisites.
func collectBindings(plugins PluginLookup, id string, bound map[ir.Scope]bool, seen map[string]bool) {
	if seen[id] {
		return
	}
	seen[id] = true
	def, ok := plugins.Lookup(id)
	if !ok {
		return
	}
	for _, pre := range def.Applies {
		collectBindings(plugins, pre, bound, seen)
	}
	for _, b := range def.Scopes {
		bound[ir.NormalizeScope(b.Scope)] = true
	}
}

func checkEffect(spec ir.EffectSpec) (string, string) {
	if !validOps[spec.Op] {
		return ErrUnknownEffectOp, fmt.Sprintf("unknown effect op %q", spec.Op)
	}
	switch spec.Op {
	case ir.OpUsePlatform:
		if spec.Platform == "" {
			return ErrInvalidEffect, "use_platform needs a platform"
		}
		return "", ""
	case ir.OpUnset:
	default:
		if spec.Value == nil {
			return ErrInvalidEffect, fmt.Sprintf("%s needs a value", spec.Op)
		}
		if _, ok := spec.Value.(ir.Map); spec.Op == ir.OpMerge && !ok {
			return ErrInvalidEffect, fmt.Sprintf("merge needs a map value, got %s", ir.KindOf(spec.Value))
		}
	}
	if spec.Property == "" {
		return ErrInvalidEffect, fmt.Sprintf("%s needs a property", spec.Op)
	}
	return "", ""
}

// ValidatePlugins checks a plugin catalog. known lists ids defined
// elsewhere (the built-ins) that prerequisites may name.
// Returns all errors found (does not fail-fast).
func ValidatePlugins(defs []ir.PluginDefinition, known PluginLookup) []ValidationError {
	var errs []ValidationError
	ids := make(map[string]bool, len(defs))
	for _, def := range defs {
		if ids[def.ID] {
			errs = append(errs, ValidationError{
				Field:   "plugin." + def.ID,
				Message: fmt.Sprintf("plugin %q is defined twice", def.ID),
				Code:    ErrDuplicatePlugin,
			})
		}
		ids[def.ID] = true
	}

	for _, def := range defs {
		field := "plugin." + def.ID
		for _, pre := range def.Applies {
			if ids[pre] {
				continue
			}
			if known != nil {
				if _, ok := known.Lookup(pre); ok {
					continue
				}
			}
			errs = append(errs, ValidationError{
				Field:   field + ".applies",
				Message: fmt.Sprintf("prerequisite %q is not defined", pre),
				Code:    ErrUnknownPrerequisite,
			})
		}

		types := make(map[string]string)
		for _, task := range def.Tasks {
			if task.Name == "" || task.Type == "" {
				errs = append(errs, ValidationError{
					Field:   field + ".tasks",
					Message: "task needs a name and a type",
					Code:    ErrInvalidTask,
				})
				continue
			}
			if prev, ok := types[task.Name]; ok && prev != task.Type {
				errs = append(errs, ValidationError{
					Field:   field + ".tasks." + task.Name,
					Message: fmt.Sprintf("task %q is contributed as %q and %q", task.Name, prev, task.Type),
					Code:    ErrConflictingTask,
				})
			}
			types[task.Name] = task.Type
		}
	}
	return errs
}
