// Package resolve is the contract with the external dependency resolver,
// plus a catalog-backed implementation used by the CLI and tests.
//
// The evaluator never downloads anything. It hands the finalized
// repository list and per-scope coordinates to a Resolver and surfaces
// its ResolutionFailure unchanged.
package resolve

import (
	"context"
	"slices"
	"strings"

	"github.com/roach88/buildcfg/internal/ir"
)

// Resolver resolves coordinates against an ordered repository list.
// Implementations may block; they must honor ctx.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Resolution, error)
}

// ScopeRequest is the coordinate set of one scope.
// Managed coordinates carry no version; a platform must supply it.
type ScopeRequest struct {
	Dependencies []ir.Coordinate `json:"dependencies"`
	Managed      []ir.Coordinate `json:"managed,omitempty"`
	Platforms    []ir.Coordinate `json:"platforms,omitempty"`
}

// Request is the input of a resolution.
type Request struct {
	Repositories []ir.Repository          `json:"repositories"`
	Scopes       map[ir.Scope]ScopeRequest `json:"scopes"`
}

// SortedScopes returns the requested scopes in lexical order.
func (r Request) SortedScopes() []ir.Scope {
	out := make([]ir.Scope, 0, len(r.Scopes))
	for s := range r.Scopes {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b ir.Scope) int { return strings.Compare(string(a), string(b)) })
	return out
}

// Artifact is one resolved coordinate.
type Artifact struct {
	Requested  ir.Coordinate `json:"requested"`
	Resolved   ir.Coordinate `json:"resolved"`
	Repository string        `json:"repository"`
	Platform   string        `json:"platform,omitempty"` // set when the version came from a platform
}

// Resolution maps each scope to its resolved artifacts.
type Resolution struct {
	Scopes map[ir.Scope][]Artifact `json:"scopes"`
}

// Artifacts returns the artifacts of scope in request order.
func (r *Resolution) Artifacts(scope ir.Scope) []Artifact {
	if r == nil {
		return nil
	}
	return r.Scopes[ir.NormalizeScope(scope)]
}
