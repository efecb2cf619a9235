package compiler

import (
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/buildcfg/internal/ir"
)

// CompilePlugin parses a CUE value into a plugin definition.
//
// The CUE value should be the plugin struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`plugin: "kotlin-jvm": { ... }`)
//	def, err := CompilePlugin(v.LookupPath(cue.ParsePath(`plugin."kotlin-jvm"`)))
//
// Tasks and scopes are structs keyed by name; their order follows the
// source.
func CompilePlugin(v cue.Value) (ir.PluginDefinition, error) {
	var def ir.PluginDefinition
	if err := v.Err(); err != nil {
		return def, formatCUEError(err)
	}

	// The ID may be quoted in CUE, extract it
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.ID = strings.Trim(labels[len(labels)-1].String(), `"`)
	}
	if def.ID == "" {
		return def, &CompileError{Field: "plugin", Message: "plugin id is required", Pos: v.Pos()}
	}

	desc, err := optionalString(v, "description")
	if err != nil {
		return def, err
	}
	if desc != nil {
		def.Description = *desc
	}

	appliesVal := v.LookupPath(cue.ParsePath("applies"))
	if appliesVal.Exists() {
		err := eachElement(appliesVal, "applies", func(elem cue.Value) error {
			id, err := elem.String()
			if err != nil {
				return formatCUEError(err)
			}
			def.Applies = append(def.Applies, id)
			return nil
		})
		if err != nil {
			return def, err
		}
	}

	def.Tasks, err = parseTasks(v)
	if err != nil {
		return def, err
	}
	def.Scopes, err = parseScopes(v)
	if err != nil {
		return def, err
	}
	return def, nil
}

// CompilePlugins compiles every entry of the top-level plugin struct,
// in source order. A value without one yields no definitions.
func CompilePlugins(v cue.Value) ([]ir.PluginDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	pluginsVal := v.LookupPath(cue.ParsePath("plugin"))
	if !pluginsVal.Exists() {
		return nil, nil
	}
	iter, err := pluginsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []ir.PluginDefinition
	for iter.Next() {
		def, err := CompilePlugin(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// parseTasks extracts task contributions.
//
//	tasks: compileKotlin: {type: "KotlinCompile", properties: {jvmTarget: "17"}}
func parseTasks(v cue.Value) ([]ir.TaskContribution, error) {
	tasksVal := v.LookupPath(cue.ParsePath("tasks"))
	if !tasksVal.Exists() {
		return nil, nil
	}
	iter, err := tasksVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var tasks []ir.TaskContribution
	for iter.Next() {
		name := iter.Label()
		tv := iter.Value()

		typ, err := requiredString(tv, "type")
		if err != nil {
			return nil, err
		}
		task := ir.TaskContribution{Name: name, Type: typ, Properties: ir.Map{}}

		desc, err := optionalString(tv, "description")
		if err != nil {
			return nil, err
		}
		if desc != nil {
			task.Description = *desc
		}

		propsVal := tv.LookupPath(cue.ParsePath("properties"))
		if propsVal.Exists() {
			props, err := toValue(propsVal)
			if err != nil {
				return nil, err
			}
			m, ok := props.(ir.Map)
			if !ok {
				return nil, &CompileError{Field: "tasks." + name + ".properties", Message: "properties must be a struct", Pos: propsVal.Pos()}
			}
			task.Properties = m
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// parseScopes extracts scope bindings.
//
//	scopes: compile: ["compileKotlin"]
func parseScopes(v cue.Value) ([]ir.ScopeBinding, error) {
	scopesVal := v.LookupPath(cue.ParsePath("scopes"))
	if !scopesVal.Exists() {
		return nil, nil
	}
	iter, err := scopesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var bindings []ir.ScopeBinding
	for iter.Next() {
		scope := ir.Scope(iter.Label())
		if err := ir.ValidateScope(scope); err != nil {
			return nil, &CompileError{Field: "scopes", Message: err.Error(), Pos: iter.Value().Pos()}
		}
		binding := ir.ScopeBinding{Scope: ir.NormalizeScope(scope)}
		err := eachElement(iter.Value(), "scopes."+string(scope), func(elem cue.Value) error {
			consumer, err := elem.String()
			if err != nil {
				return formatCUEError(err)
			}
			binding.Consumers = append(binding.Consumers, consumer)
			return nil
		})
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}
