// Package plugin maps plugin ids to the conventions they contribute and
// applies them to a project descriptor.
//
// A Registry is an explicit instance; there is no process-wide registry.
// After population it may be shared read-only by concurrent evaluations.
package plugin

import (
	"slices"
	"sync"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/project"
)

// Registry holds plugin definitions keyed by id.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]ir.PluginDefinition
	// registration order, for Definitions
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]ir.PluginDefinition)}
}

// NewDefaultRegistry creates a registry holding the built-in plugins.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range Builtins() {
		if err := r.Register(def); err != nil {
			// built-ins are static and unique
			panic(err)
		}
	}
	return r
}

// Register adds a definition. It fails with DuplicatePlugin when the id
// is taken, and ConflictingTaskDefinition when the definition itself
// names one task twice with different types.
func (r *Registry) Register(def ir.PluginDefinition) error {
	if def.ID == "" {
		return ir.NewInvalidDeclaration(ir.DeclApplyPlugin, "plugin id is empty")
	}
	seen := make(map[string]string, len(def.Tasks))
	for _, t := range def.Tasks {
		if prev, ok := seen[t.Name]; ok && prev != t.Type {
			return ir.NewConflictingTask(t.Name, prev, def.ID, t.Type, def.ID)
		}
		seen[t.Name] = t.Type
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[def.ID]; ok {
		return ir.NewDuplicatePlugin(def.ID)
	}
	r.defs[def.ID] = cloneDefinition(def)
	r.order = append(r.order, def.ID)
	return nil
}

// Lookup returns a copy of the definition of id.
func (r *Registry) Lookup(id string) (ir.PluginDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[id]
	if !ok {
		return ir.PluginDefinition{}, false
	}
	return cloneDefinition(def), true
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := slices.Clone(r.order)
	slices.Sort(ids)
	return ids
}

// Definitions returns every definition in registration order.
func (r *Registry) Definitions() []ir.PluginDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ir.PluginDefinition, len(r.order))
	for i, id := range r.order {
		out[i] = cloneDefinition(r.defs[id])
	}
	return out
}

// Apply applies id and its prerequisites to d. Any call on a finalized
// descriptor fails with DescriptorFinalized, even for applied plugins.
//
// Prerequisites are applied first, depth-first in listed order. A plugin
// already applied to d is skipped. A plugin whose prerequisites are still
// being applied is treated as applied, so cyclic prerequisite lists
// terminate.
func (r *Registry) Apply(id string, d *project.Descriptor) error {
	return r.apply(id, d, make(map[string]bool))
}

func (r *Registry) apply(id string, d *project.Descriptor, inProgress map[string]bool) error {
	if d.Finalized() {
		return ir.NewDescriptorFinalized("applyPlugin")
	}
	if d.IsApplied(id) || inProgress[id] {
		return nil
	}
	def, ok := r.Lookup(id)
	if !ok {
		return ir.NewUnknownPlugin(id)
	}

	inProgress[id] = true
	for _, pre := range def.Applies {
		if err := r.apply(pre, d, inProgress); err != nil {
			return err
		}
	}

	added, err := d.RecordPlugin(ir.PluginApplication{
		ID:     def.ID,
		Tasks:  def.Tasks,
		Scopes: def.Scopes,
	})
	if err != nil {
		return err
	}
	if added {
		d.Logger().Debug("plugin applied",
			"plugin", def.ID,
			"tasks", len(def.Tasks),
			"scopes", len(def.Scopes))
	}
	return nil
}

func cloneDefinition(def ir.PluginDefinition) ir.PluginDefinition {
	out := def
	out.Applies = slices.Clone(def.Applies)
	out.Tasks = make([]ir.TaskContribution, len(def.Tasks))
	for i, t := range def.Tasks {
		t.Properties = t.Properties.Clone()
		out.Tasks[i] = t
	}
	out.Scopes = make([]ir.ScopeBinding, len(def.Scopes))
	for i, s := range def.Scopes {
		s.Consumers = slices.Clone(s.Consumers)
		out.Scopes[i] = s
	}
	return out
}
