package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/buildcfg/internal/ir"
)

// CompileDescriptor turns a CUE build descriptor into a script.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// Top-level fields are compiled in source order, so a descriptor reads
// the way it evaluates:
//
//	project: {group: "com.example", version: "1.0"}
//	plugins: ["java-library"]
//	repositories: ["mavenCentral"]
//	dependencies: [{scope: "test", coordinate: "org.junit:junit-bom:5.10.0", platform: true}]
//	mutations: [{type: "JavaCompile", effects: [{op: "append", property: "compilerArgs", value: "-Xlint:unchecked"}]}]
//
// Every declaration carries the position of the CUE value it came from.
func CompileDescriptor(v cue.Value) (*ir.Script, error) {
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	script := &ir.Script{Source: v.Pos().Filename()}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		label := iter.Label()
		fv := iter.Value()

		var decls []ir.Declaration
		switch label {
		case "project":
			decls, err = compileProject(fv)
		case "plugins":
			decls, err = compilePluginList(fv)
		case "repositories":
			decls, err = compileRepositories(fv)
		case "dependencies":
			decls, err = compileDependencies(fv, false)
		case "platforms":
			decls, err = compileDependencies(fv, true)
		case "mutations":
			decls, err = compileMutations(fv)
		default:
			return nil, &CompileError{
				Field:   label,
				Message: "unknown descriptor field",
				Pos:     fv.Pos(),
			}
		}
		if err != nil {
			return nil, err
		}
		script.Add(decls...)
	}

	return script, nil
}

func compileProject(v cue.Value) ([]ir.Declaration, error) {
	group, err := optionalString(v, "group")
	if err != nil {
		return nil, err
	}
	version, err := optionalString(v, "version")
	if err != nil {
		return nil, err
	}
	if group == nil && version == nil {
		return nil, &CompileError{
			Field:   "project",
			Message: "project needs a group or a version",
			Pos:     v.Pos(),
		}
	}
	return []ir.Declaration{ir.SetIdentity(group, version).At(origin(v))}, nil
}

// compilePluginList accepts a list of ids or a single id.
func compilePluginList(v cue.Value) ([]ir.Declaration, error) {
	if id, err := v.String(); err == nil {
		return []ir.Declaration{ir.ApplyPlugin(id).At(origin(v))}, nil
	}

	var decls []ir.Declaration
	err := eachElement(v, "plugins", func(elem cue.Value) error {
		id, err := elem.String()
		if err != nil {
			return formatCUEError(err)
		}
		decls = append(decls, ir.ApplyPlugin(id).At(origin(elem)))
		return nil
	})
	return decls, err
}

// compileRepositories accepts well-known names ("mavenCentral") or
// {name, url} structs.
func compileRepositories(v cue.Value) ([]ir.Declaration, error) {
	var decls []ir.Declaration
	err := eachElement(v, "repositories", func(elem cue.Value) error {
		var repo ir.Repository
		if name, err := elem.String(); err == nil {
			repo, err = ir.ParseRepository(name)
			if err != nil {
				return &CompileError{Field: "repositories", Message: err.Error(), Pos: elem.Pos()}
			}
		} else {
			name, err := requiredString(elem, "name")
			if err != nil {
				return err
			}
			url, err := optionalString(elem, "url")
			if err != nil {
				return err
			}
			if url == nil {
				if repo, err = ir.ParseRepository(name); err != nil {
					return &CompileError{Field: "repositories.name", Message: err.Error(), Pos: elem.Pos()}
				}
			} else {
				repo = ir.Repository{Name: name, URL: *url}
			}
		}
		decls = append(decls, ir.AddRepository(repo).At(origin(elem)))
		return nil
	})
	return decls, err
}

// compileDependencies handles both dependency and platform lists. A
// dependency entry with platform: true is a platform too.
func compileDependencies(v cue.Value, platforms bool) ([]ir.Declaration, error) {
	field := "dependencies"
	if platforms {
		field = "platforms"
	}

	var decls []ir.Declaration
	err := eachElement(v, field, func(elem cue.Value) error {
		scope, err := requiredString(elem, "scope")
		if err != nil {
			return err
		}
		text, err := requiredString(elem, "coordinate")
		if err != nil {
			return err
		}
		managed, err := optionalBool(elem, "managed")
		if err != nil {
			return err
		}
		isPlatform, err := optionalBool(elem, "platform")
		if err != nil {
			return err
		}
		isPlatform = isPlatform || platforms

		parse := ir.ParseCoordinate
		if managed {
			parse = ir.ParseManagedCoordinate
		}
		c, err := parse(text)
		if err != nil {
			return &CompileError{Field: field + ".coordinate", Message: err.Error(), Pos: elem.Pos()}
		}

		var decl ir.Declaration
		switch {
		case isPlatform && managed:
			return &CompileError{Field: field, Message: "a platform cannot be managed", Pos: elem.Pos()}
		case isPlatform:
			decl = ir.AddPlatform(c, ir.Scope(scope))
		case managed:
			decl = ir.AddManagedDependency(c, ir.Scope(scope))
		default:
			decl = ir.AddDependency(c, ir.Scope(scope))
		}
		decls = append(decls, decl.At(origin(elem)))
		return nil
	})
	return decls, err
}

func compileMutations(v cue.Value) ([]ir.Declaration, error) {
	var decls []ir.Declaration
	err := eachElement(v, "mutations", func(elem cue.Value) error {
		var filter ir.TaskFilter
		name, err := optionalString(elem, "name")
		if err != nil {
			return err
		}
		typ, err := optionalString(elem, "type")
		if err != nil {
			return err
		}
		if name != nil {
			filter.Name = *name
		}
		if typ != nil {
			filter.Type = *typ
		}
		desc, err := optionalString(elem, "description")
		if err != nil {
			return err
		}

		effectsVal := elem.LookupPath(cue.ParsePath("effects"))
		if !effectsVal.Exists() {
			return &CompileError{Field: "mutations.effects", Message: "mutation effects are required", Pos: elem.Pos()}
		}
		var effects []ir.EffectSpec
		err = eachElement(effectsVal, "mutations.effects", func(ev cue.Value) error {
			spec, err := compileEffect(ev)
			if err != nil {
				return err
			}
			effects = append(effects, spec)
			return nil
		})
		if err != nil {
			return err
		}
		if len(effects) == 0 {
			return &CompileError{Field: "mutations.effects", Message: "at least one effect is required", Pos: effectsVal.Pos()}
		}

		decl := ir.MutateTasks(filter, effects...)
		if desc != nil {
			decl.Mutation.Description = *desc
		}
		decls = append(decls, decl.At(origin(elem)))
		return nil
	})
	return decls, err
}

func compileEffect(v cue.Value) (ir.EffectSpec, error) {
	var spec ir.EffectSpec
	op, err := requiredString(v, "op")
	if err != nil {
		return spec, err
	}
	spec.Op = op

	if p, err := optionalString(v, "property"); err != nil {
		return spec, err
	} else if p != nil {
		spec.Property = *p
	}
	if p, err := optionalString(v, "platform"); err != nil {
		return spec, err
	} else if p != nil {
		spec.Platform = *p
	}

	valueVal := v.LookupPath(cue.ParsePath("value"))
	if valueVal.Exists() {
		spec.Value, err = toValue(valueVal)
		if err != nil {
			return spec, err
		}
	}
	return spec, nil
}

// toValue converts a concrete CUE value to a property value.
// Floats are forbidden: property values are integers, strings, booleans,
// lists and maps only.
func toValue(v cue.Value) (ir.Value, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		out := ir.List{}
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		out := ir.Map{}
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			elem, err := toValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = elem
		}
		return out, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "float values are not allowed, use int or string instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// eachElement calls fn for every element of the list v.
func eachElement(v cue.Value, field string, fn func(cue.Value) error) error {
	if v.IncompleteKind() != cue.ListKind {
		return &CompileError{Field: field, Message: "must be a list", Pos: v.Pos()}
	}
	iter, err := v.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (*string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	s, err := fv.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &s, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// origin renders the position of v as "file:line:col".
func origin(v cue.Value) string {
	return posString(v.Pos())
}

func posString(pos token.Pos) string {
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", posString(e.Pos), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
