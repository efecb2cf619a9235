// Package project holds the Project Descriptor: the in-memory record of
// a configuration script. It is mutable during the configuration phase
// and read-only after Finalize.
package project

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/buildcfg/internal/ir"
)

// Mutation is a deferred task mutation, run after materialization.
type Mutation struct {
	Filter      ir.TaskFilter
	Effect      ir.Effect
	Description string
	Origin      string
	Seq         int
}

// Option configures a Descriptor.
type Option func(*Descriptor)

// WithDependencyPolicy sets the merge policy for re-declared dependencies.
func WithDependencyPolicy(p DependencyPolicy) Option {
	return func(d *Descriptor) {
		d.depPolicy = p
	}
}

// WithIdentityPolicy sets the policy for re-written identity fields.
func WithIdentityPolicy(p IdentityPolicy) Option {
	return func(d *Descriptor) {
		d.idPolicy = p
	}
}

// WithLogger sets the logger of the evaluation the descriptor belongs
// to. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Descriptor) {
		if l != nil {
			d.logger = l
		}
	}
}

// Descriptor records identity, plugins, repositories, dependencies and
// task mutations. It is not safe for concurrent mutation; after
// Finalize all accessors may be called concurrently.
type Descriptor struct {
	depPolicy DependencyPolicy
	idPolicy  IdentityPolicy
	logger    *slog.Logger

	identity     ir.Identity
	repositories []ir.Repository
	scopes       map[ir.Scope]*scopeSet
	plugins      []ir.PluginApplication
	applied      map[string]int
	mutations    []Mutation
	finalized    bool
}

// New creates an empty descriptor.
func New(opts ...Option) *Descriptor {
	d := &Descriptor{
		depPolicy: DependencyLastWriteWins,
		idPolicy:  IdentityOverwrite,
		logger:    slog.Default(),
		scopes:    make(map[ir.Scope]*scopeSet),
		applied:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Descriptor) checkOpen(op string) error {
	if d.finalized {
		return ir.NewDescriptorFinalized(op)
	}
	return nil
}

// SetIdentity writes the non-nil fields.
func (d *Descriptor) SetIdentity(group, version *string) error {
	if err := d.checkOpen("setIdentity"); err != nil {
		return err
	}
	if d.idPolicy == IdentityReject {
		if err := rejectReassign("group", d.identity.Group, group); err != nil {
			return err
		}
		if err := rejectReassign("version", d.identity.Version, version); err != nil {
			return err
		}
	}
	if group != nil {
		g := *group
		d.identity.Group = &g
	}
	if version != nil {
		v := *version
		d.identity.Version = &v
	}
	return nil
}

func rejectReassign(field string, existing, incoming *string) error {
	if existing == nil || incoming == nil || *existing == *incoming {
		return nil
	}
	return ir.NewIdentityReassigned(field, *existing, *incoming)
}

// AddRepository appends a repository. Duplicates are kept.
func (d *Descriptor) AddRepository(r ir.Repository) error {
	if err := d.checkOpen("addRepository"); err != nil {
		return err
	}
	d.repositories = append(d.repositories, r)
	return nil
}

// AddDependency records c in scope, merging with an existing entry for
// the same (group, name) under the dependency policy.
func (d *Descriptor) AddDependency(c ir.Coordinate, scope ir.Scope) error {
	if err := d.checkOpen("addDependency"); err != nil {
		return err
	}
	if c.Versionless() {
		return ir.NewMalformedCoordinate(c.String(), "version is required unless the dependency is managed")
	}
	return d.record(d.scope(scope).dependencies, ir.NormalizeScope(scope), Dependency{Coordinate: c})
}

// AddManagedDependency records a versionless coordinate whose version
// is supplied by a platform in the same scope. A version on c is
// ignored. A classifier fails with MalformedCoordinate, since a platform
// only manages versions.
func (d *Descriptor) AddManagedDependency(c ir.Coordinate, scope ir.Scope) error {
	if err := d.checkOpen("addDependency"); err != nil {
		return err
	}
	if c.Classifier != "" {
		return ir.NewMalformedCoordinate(c.String(), "managed dependency cannot have a classifier")
	}
	c.Version = ""
	return d.record(d.scope(scope).dependencies, ir.NormalizeScope(scope), Dependency{Coordinate: c, Managed: true})
}

// AddPlatform records a platform (bill of materials) coordinate in scope.
func (d *Descriptor) AddPlatform(c ir.Coordinate, scope ir.Scope) error {
	if err := d.checkOpen("addPlatform"); err != nil {
		return err
	}
	if c.Versionless() {
		return ir.NewMalformedCoordinate(c.String(), "platform version is required")
	}
	return d.record(d.scope(scope).platforms, ir.NormalizeScope(scope), Dependency{Coordinate: c})
}

func (d *Descriptor) record(set *entrySet, scope ir.Scope, dep Dependency) error {
	existing, ok := set.get(dep.Coordinate.Module())
	if !ok {
		set.put(dep)
		return nil
	}
	if existing.Managed || dep.Managed {
		// a managed entry has no version to compare
		if d.depPolicy == DependencyFailOnConflict && existing != dep {
			return ir.NewVersionConflict(scope, existing.Coordinate.String(), dep.Coordinate.String())
		}
		set.put(dep)
		return nil
	}
	kept, err := d.depPolicy.merge(d.logger, scope, existing.Coordinate, dep.Coordinate)
	if err != nil {
		return err
	}
	set.put(Dependency{Coordinate: kept})
	return nil
}

func (d *Descriptor) scope(s ir.Scope) *scopeSet {
	s = ir.NormalizeScope(s)
	set, ok := d.scopes[s]
	if !ok {
		set = newScopeSet()
		d.scopes[s] = set
	}
	return set
}

// AddTaskMutation appends m and assigns its sequence number.
func (d *Descriptor) AddTaskMutation(m Mutation) error {
	if err := d.checkOpen("addTaskMutation"); err != nil {
		return err
	}
	m.Seq = len(d.mutations)
	d.mutations = append(d.mutations, m)
	return nil
}

// RecordPlugin records a plugin application. It returns false, and
// changes nothing, when the plugin is already applied.
func (d *Descriptor) RecordPlugin(app ir.PluginApplication) (bool, error) {
	if err := d.checkOpen("applyPlugin"); err != nil {
		return false, err
	}
	if _, ok := d.applied[app.ID]; ok {
		return false, nil
	}
	d.applied[app.ID] = len(d.plugins)
	d.plugins = append(d.plugins, app)
	return true, nil
}

// Finalize makes the descriptor read-only. It is idempotent.
func (d *Descriptor) Finalize() {
	d.finalized = true
}

// Finalized reports whether Finalize was called.
func (d *Descriptor) Finalized() bool {
	return d.finalized
}

// Logger returns the descriptor's logger. Collaborators working on the
// descriptor (registry, task graph, resolution) log through it.
func (d *Descriptor) Logger() *slog.Logger {
	return d.logger
}

// Identity returns a copy of the project identity.
func (d *Descriptor) Identity() ir.Identity {
	id := ir.Identity{}
	if d.identity.Group != nil {
		id.Group = ir.Ptr(*d.identity.Group)
	}
	if d.identity.Version != nil {
		id.Version = ir.Ptr(*d.identity.Version)
	}
	return id
}

// Repositories returns the repositories in declaration order.
func (d *Descriptor) Repositories() []ir.Repository {
	return slices.Clone(d.repositories)
}

// Scopes lists every scope holding a dependency or platform, sorted.
func (d *Descriptor) Scopes() []ir.Scope {
	out := make([]ir.Scope, 0, len(d.scopes))
	for s, set := range d.scopes {
		if set.dependencies.len() > 0 || set.platforms.len() > 0 {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b ir.Scope) int { return strings.Compare(string(a), string(b)) })
	return out
}

// Dependencies returns the entries of scope in first-declaration order.
func (d *Descriptor) Dependencies(scope ir.Scope) []Dependency {
	set, ok := d.scopes[ir.NormalizeScope(scope)]
	if !ok {
		return nil
	}
	return set.dependencies.list()
}

// Coordinates returns only the coordinates of Dependencies(scope).
func (d *Descriptor) Coordinates(scope ir.Scope) []ir.Coordinate {
	deps := d.Dependencies(scope)
	out := make([]ir.Coordinate, len(deps))
	for i, dep := range deps {
		out[i] = dep.Coordinate
	}
	return out
}

// Platforms returns the platform coordinates of scope.
func (d *Descriptor) Platforms(scope ir.Scope) []ir.Coordinate {
	set, ok := d.scopes[ir.NormalizeScope(scope)]
	if !ok {
		return nil
	}
	entries := set.platforms.list()
	out := make([]ir.Coordinate, len(entries))
	for i, e := range entries {
		out[i] = e.Coordinate
	}
	return out
}

// Plugins returns the applied plugins in application order.
func (d *Descriptor) Plugins() []ir.PluginApplication {
	return slices.Clone(d.plugins)
}

// PluginIDs returns the applied plugin ids in application order.
func (d *Descriptor) PluginIDs() []string {
	ids := make([]string, len(d.plugins))
	for i, p := range d.plugins {
		ids[i] = p.ID
	}
	return ids
}

// AppliedPlugin returns the application of id, if applied.
func (d *Descriptor) AppliedPlugin(id string) (ir.PluginApplication, bool) {
	i, ok := d.applied[id]
	if !ok {
		return ir.PluginApplication{}, false
	}
	return d.plugins[i], true
}

// IsApplied reports whether id was applied.
func (d *Descriptor) IsApplied(id string) bool {
	_, ok := d.applied[id]
	return ok
}

// ScopeBindings merges the scope bindings of every applied plugin.
// Scopes keep the order in which they were first bound; consumers are
// unioned in the same way.
func (d *Descriptor) ScopeBindings() []ir.ScopeBinding {
	var out []ir.ScopeBinding
	index := make(map[ir.Scope]int)
	for _, p := range d.plugins {
		for _, b := range p.Scopes {
			s := ir.NormalizeScope(b.Scope)
			i, ok := index[s]
			if !ok {
				i = len(out)
				index[s] = i
				out = append(out, ir.ScopeBinding{Scope: s})
			}
			for _, c := range b.Consumers {
				if !slices.Contains(out[i].Consumers, c) {
					out[i].Consumers = append(out[i].Consumers, c)
				}
			}
		}
	}
	return out
}

// BindsScope reports whether an applied plugin binds scope.
func (d *Descriptor) BindsScope(scope ir.Scope) bool {
	scope = ir.NormalizeScope(scope)
	for _, b := range d.ScopeBindings() {
		if b.Scope == scope {
			return true
		}
	}
	return false
}

// Mutations returns the recorded mutations in declaration order.
func (d *Descriptor) Mutations() []Mutation {
	return slices.Clone(d.mutations)
}

// Snapshot returns the serializable view of the descriptor.
// Tasks are left empty; the task graph fills them in.
func (d *Descriptor) Snapshot() ir.Snapshot {
	snap := ir.Snapshot{
		Identity:     d.Identity(),
		Repositories: d.Repositories(),
		Plugins:      d.PluginIDs(),
	}
	if snap.Repositories == nil {
		snap.Repositories = []ir.Repository{}
	}
	for _, s := range d.Scopes() {
		snap.Scopes = append(snap.Scopes, ir.ScopeSnapshot{
			Scope:        s,
			Dependencies: d.Coordinates(s),
			Platforms:    d.Platforms(s),
		})
	}
	return snap
}
