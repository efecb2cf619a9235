package engine

import (
	"context"
	"fmt"

	"github.com/roach88/buildcfg/internal/ir"
	"github.com/roach88/buildcfg/internal/resolve"
)

// ResolveDependencies hands the finalized repository list and scope
// coordinates of res to resolver.
//
// A ResolutionFailure and context errors are returned unchanged; any
// other resolver error is wrapped.
func ResolveDependencies(ctx context.Context, res *Result, resolver resolve.Resolver) (*resolve.Resolution, error) {
	if res == nil || res.Descriptor == nil || !res.Descriptor.Finalized() {
		return nil, fmt.Errorf("resolve dependencies: configuration is not finalized")
	}

	req := res.Request()
	res.Descriptor.Logger().Debug("resolving dependencies",
		"id", res.ID,
		"repositories", len(req.Repositories),
		"scopes", len(req.Scopes))

	resolution, err := resolver.Resolve(ctx, req)
	if err != nil {
		if ir.IsResolutionFailure(err) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("resolve dependencies: %w", err)
	}
	return resolution, nil
}
