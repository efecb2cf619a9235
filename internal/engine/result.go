package engine

import (
	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/project"
	"github.com/roach88/buildcfg/internal/resolve"
	"github.com/roach88/buildcfg/internal/taskgraph"
)

// Step is one entry of the evaluation trace.
type Step struct {
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// Result is a finalized configuration. Descriptor and Graph are
// read-only and may be shared between goroutines.
type Result struct {
	ID          string                     `json:"id"`
	Source      string                     `json:"source,omitempty"`
	ScriptHash  string                     `json:"script_hash"`
	Descriptor  *project.Descriptor        `json:"-"`
	Graph       *taskgraph.Graph           `json:"-"`
	Mutations   []taskgraph.MutationReport `json:"mutations"`
	Steps       []Step                     `json:"steps"`
	Fingerprint string                     `json:"fingerprint"`
}

// Snapshot returns the serializable view: the descriptor's identity,
// repositories, plugins and scopes plus the final task states.
func (r *Result) Snapshot() ir.Snapshot {
	snap := r.Descriptor.Snapshot()
	snap.Tasks = r.Graph.Snapshot()
	return snap
}

// DependenciesFor lists the coordinates of every scope bound to task,
// scope by scope in binding order.
func (r *Result) DependenciesFor(task string) []ir.Coordinate {
	var out []ir.Coordinate
	for _, scope := range r.Graph.ScopesOf(task) {
		out = append(out, r.Descriptor.Coordinates(scope)...)
	}
	return out
}

// Request builds the resolver input from the finalized descriptor.
func (r *Result) Request() resolve.Request {
	req := resolve.Request{
		Repositories: r.Descriptor.Repositories(),
		Scopes:       make(map[ir.Scope]resolve.ScopeRequest),
	}
	for _, scope := range r.Descriptor.Scopes() {
		var sr resolve.ScopeRequest
		for _, dep := range r.Descriptor.Dependencies(scope) {
			if dep.Managed {
				sr.Managed = append(sr.Managed, dep.Coordinate)
			} else {
				sr.Dependencies = append(sr.Dependencies, dep.Coordinate)
			}
		}
		sr.Platforms = r.Descriptor.Platforms(scope)
		req.Scopes[scope] = sr
	}
	return req
}
