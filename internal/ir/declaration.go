package ir

import (
	"fmt"
)

// DeclKind names one input operation of a configuration script.
type DeclKind string

const (
	DeclApplyPlugin   DeclKind = "apply_plugin"
	DeclSetIdentity   DeclKind = "set_identity"
	DeclAddRepository DeclKind = "add_repository"
	DeclAddDependency DeclKind = "add_dependency"
	DeclAddPlatform   DeclKind = "add_platform"
	DeclMutateTasks   DeclKind = "add_task_mutation"
)

// ValidDeclKinds lists every declaration kind.
var ValidDeclKinds = map[DeclKind]bool{
	DeclApplyPlugin:   true,
	DeclSetIdentity:   true,
	DeclAddRepository: true,
	DeclAddDependency: true,
	DeclAddPlatform:   true,
	DeclMutateTasks:   true,
}

// DependencyDecl is the argument of add-dependency and add-platform.
type DependencyDecl struct {
	Coordinate Coordinate `json:"coordinate"`
	Scope      Scope      `json:"scope"`
	Managed    bool       `json:"managed,omitempty"` // version supplied by a platform
}

// MutationDecl is the argument of add-task-mutation.
// Exactly one of Effects and Func is set.
type MutationDecl struct {
	Filter      TaskFilter   `json:"filter"`
	Effects     []EffectSpec `json:"effects,omitempty"`
	Func        Effect       `json:"-"`
	Description string       `json:"description,omitempty"`
}

// Declaration is one recorded input operation. Only the field matching
// Kind is populated. Origin is the source position ("file:line:col").
type Declaration struct {
	Kind   DeclKind `json:"kind"`
	Origin string   `json:"origin,omitempty"`

	PluginID   string          `json:"plugin,omitempty"`
	Group      *string         `json:"group,omitempty"`
	Version    *string         `json:"version,omitempty"`
	Repository *Repository     `json:"repository,omitempty"`
	Dependency *DependencyDecl `json:"dependency,omitempty"`
	Mutation   *MutationDecl   `json:"mutation,omitempty"`
}

// ApplyPlugin builds an apply-plugin declaration.
func ApplyPlugin(id string) Declaration {
	return Declaration{Kind: DeclApplyPlugin, PluginID: id}
}

// SetIdentity builds a set-identity declaration. Nil leaves a field untouched.
func SetIdentity(group, version *string) Declaration {
	return Declaration{Kind: DeclSetIdentity, Group: group, Version: version}
}

// AddRepository builds an add-repository declaration.
func AddRepository(repo Repository) Declaration {
	return Declaration{Kind: DeclAddRepository, Repository: &repo}
}

// AddDependency builds an add-dependency declaration.
func AddDependency(c Coordinate, scope Scope) Declaration {
	return Declaration{Kind: DeclAddDependency, Dependency: &DependencyDecl{Coordinate: c, Scope: scope}}
}

// AddManagedDependency builds an add-dependency declaration whose
// version comes from a platform in the same scope.
func AddManagedDependency(c Coordinate, scope Scope) Declaration {
	return Declaration{Kind: DeclAddDependency, Dependency: &DependencyDecl{Coordinate: c, Scope: scope, Managed: true}}
}

// AddPlatform builds an add-platform declaration.
func AddPlatform(c Coordinate, scope Scope) Declaration {
	return Declaration{Kind: DeclAddPlatform, Dependency: &DependencyDecl{Coordinate: c, Scope: scope}}
}

// MutateTasks builds an add-task-mutation declaration from declarative effects.
func MutateTasks(filter TaskFilter, effects ...EffectSpec) Declaration {
	return Declaration{Kind: DeclMutateTasks, Mutation: &MutationDecl{Filter: filter, Effects: effects}}
}

// MutateTasksFunc builds an add-task-mutation declaration from a function.
func MutateTasksFunc(filter TaskFilter, description string, fn Effect) Declaration {
	return Declaration{Kind: DeclMutateTasks, Mutation: &MutationDecl{Filter: filter, Func: fn, Description: description}}
}

// At returns a copy of d located at origin.
func (d Declaration) At(origin string) Declaration {
	d.Origin = origin
	return d
}

// Check verifies that the payload for Kind is present.
func (d Declaration) Check() error {
	switch d.Kind {
	case DeclApplyPlugin:
		if d.PluginID == "" {
			return NewInvalidDeclaration(d.Kind, "plugin id is empty")
		}
	case DeclSetIdentity:
		if d.Group == nil && d.Version == nil {
			return NewInvalidDeclaration(d.Kind, "neither group nor version given")
		}
	case DeclAddRepository:
		if d.Repository == nil || d.Repository.Name == "" {
			return NewInvalidDeclaration(d.Kind, "repository reference is empty")
		}
	case DeclAddDependency, DeclAddPlatform:
		if d.Dependency == nil {
			return NewInvalidDeclaration(d.Kind, "coordinate is missing")
		}
		if d.Dependency.Scope == "" {
			return NewInvalidDeclaration(d.Kind, "scope is empty")
		}
		if d.Dependency.Coordinate.Versionless() && !d.Dependency.Managed {
			return NewMalformedCoordinate(d.Dependency.Coordinate.String(), "version is required unless the dependency is managed")
		}
		if d.Kind == DeclAddPlatform && d.Dependency.Managed {
			return NewInvalidDeclaration(d.Kind, "platforms cannot be managed")
		}
	case DeclMutateTasks:
		if d.Mutation == nil {
			return NewInvalidDeclaration(d.Kind, "mutation is missing")
		}
		if d.Mutation.Func == nil && len(d.Mutation.Effects) == 0 {
			return NewInvalidDeclaration(d.Kind, "mutation has no effect")
		}
		if d.Mutation.Func != nil && len(d.Mutation.Effects) > 0 {
			return NewInvalidDeclaration(d.Kind, "mutation has both a function and declarative effects")
		}
	default:
		return NewInvalidDeclaration(d.Kind, fmt.Sprintf("unknown declaration kind %q", d.Kind))
	}
	return nil
}

// CanonicalMap renders the serializable part of the declaration.
// Function effects contribute only their description.
func (d Declaration) CanonicalMap() Map {
	m := Map{"kind": String(d.Kind)}
	switch d.Kind {
	case DeclApplyPlugin:
		m["plugin"] = String(d.PluginID)
	case DeclSetIdentity:
		if d.Group != nil {
			m["group"] = String(*d.Group)
		}
		if d.Version != nil {
			m["version"] = String(*d.Version)
		}
	case DeclAddRepository:
		if d.Repository != nil {
			m["repository"] = String(d.Repository.Name)
			if d.Repository.URL != "" {
				m["url"] = String(d.Repository.URL)
			}
		}
	case DeclAddDependency, DeclAddPlatform:
		if d.Dependency != nil {
			m["coordinate"] = String(d.Dependency.Coordinate.String())
			m["scope"] = String(d.Dependency.Scope)
			if d.Dependency.Managed {
				m["managed"] = Bool(true)
			}
		}
	case DeclMutateTasks:
		if d.Mutation != nil {
			m["filter"] = String(d.Mutation.Filter.String())
			effects := make(List, len(d.Mutation.Effects))
			for i, e := range d.Mutation.Effects {
				effects[i] = e.CanonicalMap()
			}
			m["effects"] = effects
			if d.Mutation.Description != "" {
				m["description"] = String(d.Mutation.Description)
			}
		}
	}
	return m
}

// Script is an ordered list of declarations produced by a descriptor surface.
type Script struct {
	Source       string        `json:"source,omitempty"`
	Declarations []Declaration `json:"declarations"`
}

// NewScript builds a script from declarations.
func NewScript(source string, decls ...Declaration) *Script {
	return &Script{Source: source, Declarations: decls}
}

// Add appends declarations.
func (s *Script) Add(decls ...Declaration) {
	s.Declarations = append(s.Declarations, decls...)
}

// CanonicalList renders every declaration for hashing.
func (s *Script) CanonicalList() List {
	out := make(List, len(s.Declarations))
	for i, d := range s.Declarations {
		out[i] = d.CanonicalMap()
	}
	return out
}

// PluginIDs lists the plugin ids applied by the script, in order, with repeats.
func (s *Script) PluginIDs() []string {
	var ids []string
	for _, d := range s.Declarations {
		if d.Kind == DeclApplyPlugin {
			ids = append(ids, d.PluginID)
		}
	}
	return ids
}
