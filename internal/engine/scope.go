package engine

import (
	"github.com/roach88/buildcfg/internal/ir"
)

// verifyScopes checks the recorded dependency scopes once every
// declaration has run, so a plugin applied after a dependency still
// binds its scope.
//
// Scopes are checked in sorted order and the first failure wins.
func (r *run) verifyScopes() error {
	for _, scope := range r.desc.Scopes() {
		if r.e.strictScopes && !r.desc.BindsScope(scope) {
			coord := ""
			if deps := r.desc.Dependencies(scope); len(deps) > 0 {
				coord = deps[0].Coordinate.String()
			} else if plats := r.desc.Platforms(scope); len(plats) > 0 {
				coord = plats[0].String()
			}
			return ir.Locate(ir.NewUnknownScope(scope, coord), r.scopeAt[scope])
		}

		if len(r.desc.Platforms(scope)) > 0 {
			continue
		}
		for _, dep := range r.desc.Dependencies(scope) {
			if dep.Managed {
				err := ir.NewMissingVersion(scope, dep.Coordinate.String())
				return ir.Locate(err, r.depAt[depKey(scope, dep.Coordinate.Module())])
			}
		}
	}
	r.step("verify", "scopes", "")
	return nil
}
