package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/buildcfg/internal/effect"
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/platform"
	"github.com/roach88/buildcfg/internal/plugin"
	"github.com/roach88/buildcfg/internal/project"
	"github.com/roach88/buildcfg/internal/taskgraph"
)

// Evaluator runs configuration scripts against a plugin registry.
//
// Thread-safety model:
//   - Evaluate(): safe from any goroutine; each call owns its descriptor and graph
//   - the registry is only read, never written
type Evaluator struct {
	registry     *plugin.Registry
	logger       *slog.Logger
	depPolicy    project.DependencyPolicy
	idPolicy     project.IdentityPolicy
	strictScopes bool
	selector     platform.Selector
	ids          IDGenerator
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDependencyPolicy sets how a re-declared dependency is merged.
// Default: last-write-wins.
func WithDependencyPolicy(p project.DependencyPolicy) Option {
	return func(e *Evaluator) {
		e.depPolicy = p
	}
}

// WithIdentityPolicy sets how a re-written group or version is handled.
// Default: overwrite.
func WithIdentityPolicy(p project.IdentityPolicy) Option {
	return func(e *Evaluator) {
		e.idPolicy = p
	}
}

// WithStrictScopes controls whether dependencies in scopes that no
// applied plugin binds are rejected. Default: true.
func WithStrictScopes(strict bool) Option {
	return func(e *Evaluator) {
		e.strictScopes = strict
	}
}

// WithPlatformSelector sets the selector behind use_platform effects.
// Default: platform.NewStaticSelector().
func WithPlatformSelector(s platform.Selector) Option {
	return func(e *Evaluator) {
		e.selector = s
	}
}

// WithIDGenerator sets the generator for Result.ID. Default: UUIDv7.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Evaluator) {
		e.ids = g
	}
}

// New creates an Evaluator over reg.
func New(reg *plugin.Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		registry:     reg,
		logger:       slog.Default(),
		depPolicy:    project.DependencyLastWriteWins,
		idPolicy:     project.IdentityOverwrite,
		strictScopes: true,
		selector:     platform.NewStaticSelector(),
		ids:          UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the evaluator applies plugins from.
func (e *Evaluator) Registry() *plugin.Registry {
	return e.registry
}

// run is the state of one evaluation.
type run struct {
	e        *Evaluator
	desc     *project.Descriptor
	effects  *effect.Builder
	clock    *Clock
	steps    []Step
	scopeAt  map[ir.Scope]string // first origin per scope
	depAt    map[string]string   // last origin per scope and module
	pluginAt map[string]string   // origin of the declaration that applied a plugin
}

func (r *run) step(kind, detail, origin string) {
	r.steps = append(r.steps, Step{Seq: r.clock.Next(), Kind: kind, Detail: detail, Origin: origin})
}

// Evaluate runs script to completion and returns the finalized
// configuration. Any error aborts the evaluation; no partial Result is
// returned.
func (e *Evaluator) Evaluate(script *ir.Script) (*Result, error) {
	if script == nil {
		return nil, fmt.Errorf("evaluate: script is nil")
	}
	scriptHash, err := ir.ScriptHash(script)
	if err != nil {
		return nil, fmt.Errorf("hash script: %w", err)
	}

	id := e.ids.Generate()
	e.logger.Info("evaluation started",
		"id", id,
		"source", script.Source,
		"declarations", len(script.Declarations))

	r := &run{
		e: e,
		desc: project.New(
			project.WithDependencyPolicy(e.depPolicy),
			project.WithIdentityPolicy(e.idPolicy),
			project.WithLogger(e.logger),
		),
		effects:  effect.NewBuilder(e.selector),
		clock:    NewClock(),
		scopeAt:  make(map[ir.Scope]string),
		depAt:    make(map[string]string),
		pluginAt: make(map[string]string),
	}

	for i, decl := range script.Declarations {
		if err := r.declare(i, decl); err != nil {
			e.logger.Info("evaluation failed", "id", id, "code", ir.CodeOf(err), "error", err)
			return nil, err
		}
	}

	if err := r.verifyScopes(); err != nil {
		e.logger.Info("evaluation failed", "id", id, "code", ir.CodeOf(err), "error", err)
		return nil, err
	}

	graph, err := taskgraph.Materialize(r.desc)
	if err != nil {
		err = r.locateConflict(err)
		e.logger.Info("evaluation failed", "id", id, "code", ir.CodeOf(err), "error", err)
		return nil, err
	}
	r.step("materialize", fmt.Sprintf("%d tasks", graph.Len()), "")

	mutations := r.desc.Mutations()
	reports := make([]taskgraph.MutationReport, 0, len(mutations))
	for _, m := range mutations {
		report, err := graph.Mutate(m)
		if err != nil {
			e.logger.Info("evaluation failed", "id", id, "code", ir.CodeOf(err), "error", err)
			return nil, err
		}
		reports = append(reports, report)
		r.step("mutate", fmt.Sprintf("%s matched %d", report.Filter, len(report.Matched)), m.Origin)
	}

	r.desc.Finalize()
	graph.Seal()
	r.step("finalize", "", "")

	res := &Result{
		ID:         id,
		Source:     script.Source,
		ScriptHash: scriptHash,
		Descriptor: r.desc,
		Graph:      graph,
		Mutations:  reports,
		Steps:      r.steps,
	}
	res.Fingerprint, err = ir.Fingerprint(res.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}

	e.logger.Info("evaluation finished",
		"id", id,
		"plugins", len(r.desc.PluginIDs()),
		"tasks", graph.Len(),
		"mutations", len(reports),
		"fingerprint", res.Fingerprint)
	return res, nil
}

// declare handles one declaration. Errors carry the declaration's origin.
func (r *run) declare(i int, decl ir.Declaration) error {
	if err := decl.Check(); err != nil {
		return ir.Locate(err, decl.Origin)
	}
	r.e.logger.Debug("declaration",
		"index", i,
		"kind", decl.Kind,
		"origin", decl.Origin)

	var err error
	switch decl.Kind {
	case ir.DeclApplyPlugin:
		before := len(r.desc.PluginIDs())
		err = r.e.registry.Apply(decl.PluginID, r.desc)
		for _, id := range r.desc.PluginIDs()[before:] {
			r.pluginAt[id] = decl.Origin
		}
		r.step("apply", decl.PluginID, decl.Origin)

	case ir.DeclSetIdentity:
		err = r.desc.SetIdentity(decl.Group, decl.Version)
		r.step("identity", identityDetail(decl), decl.Origin)

	case ir.DeclAddRepository:
		err = r.desc.AddRepository(*decl.Repository)
		r.step("repository", decl.Repository.Name, decl.Origin)

	case ir.DeclAddDependency:
		dep := decl.Dependency
		if dep.Managed {
			err = r.desc.AddManagedDependency(dep.Coordinate, dep.Scope)
		} else {
			err = r.desc.AddDependency(dep.Coordinate, dep.Scope)
		}
		r.noteScope(dep.Scope, decl.Origin)
		r.depAt[depKey(dep.Scope, dep.Coordinate.Module())] = decl.Origin
		r.step("dependency", string(ir.NormalizeScope(dep.Scope))+" "+dep.Coordinate.String(), decl.Origin)

	case ir.DeclAddPlatform:
		dep := decl.Dependency
		err = r.desc.AddPlatform(dep.Coordinate, dep.Scope)
		r.noteScope(dep.Scope, decl.Origin)
		r.step("platform", string(ir.NormalizeScope(dep.Scope))+" "+dep.Coordinate.String(), decl.Origin)

	case ir.DeclMutateTasks:
		err = r.recordMutation(decl)
		r.step("mutation", decl.Mutation.Filter.String(), decl.Origin)
	}
	if err != nil {
		return ir.Locate(err, decl.Origin)
	}
	return nil
}

func (r *run) recordMutation(decl ir.Declaration) error {
	m := decl.Mutation
	fn := m.Func
	if fn == nil {
		built, err := r.effects.Build(m.Effects)
		if err != nil {
			return err
		}
		fn = built
	}
	return r.desc.AddTaskMutation(project.Mutation{
		Filter:      m.Filter,
		Effect:      fn,
		Description: m.Description,
		Origin:      decl.Origin,
	})
}

func (r *run) noteScope(scope ir.Scope, origin string) {
	scope = ir.NormalizeScope(scope)
	if _, ok := r.scopeAt[scope]; !ok {
		r.scopeAt[scope] = origin
	}
}

// locateConflict attaches the origin of the apply declaration that
// brought in the second of two conflicting plugins.
func (r *run) locateConflict(err error) error {
	var ierr *ir.Error
	if !errors.As(err, &ierr) || ierr.Code != ir.ErrCodeConflictingTaskDefinition {
		return err
	}
	types := make(map[string]string)
	for _, app := range r.desc.Plugins() {
		for _, t := range app.Tasks {
			if t.Name != ierr.Subject {
				continue
			}
			if prev, ok := types[t.Name]; ok && prev != t.Type {
				return ir.Locate(err, r.pluginAt[app.ID])
			}
			types[t.Name] = t.Type
		}
	}
	return err
}

func depKey(scope ir.Scope, m ir.Module) string {
	return string(ir.NormalizeScope(scope)) + " " + m.String()
}

func identityDetail(decl ir.Declaration) string {
	var s string
	if decl.Group != nil {
		s = "group=" + *decl.Group
	}
	if decl.Version != nil {
		if s != "" {
			s += " "
		}
		s += "version=" + *decl.Version
	}
	return s
}
