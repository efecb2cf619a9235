package project

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/roach88/buildcfg/internal/ir"
)

// DependencyPolicy decides what happens when a scope already holds a
// coordinate with the same (group, name).
type DependencyPolicy string

const (
	// DependencyLastWriteWins replaces the recorded coordinate.
	DependencyLastWriteWins DependencyPolicy = "last-write-wins"

	// DependencyHighestVersion keeps whichever version is higher by
	// semver ordering. Unparsable versions fall back to last-write-wins.
	DependencyHighestVersion DependencyPolicy = "highest-version"

	// DependencyFailOnConflict rejects a second, different coordinate.
	DependencyFailOnConflict DependencyPolicy = "fail-on-conflict"
)

// IdentityPolicy decides what happens when an identity field is written twice.
type IdentityPolicy string

const (
	IdentityOverwrite IdentityPolicy = "overwrite"
	IdentityReject    IdentityPolicy = "reject"
)

// ParseDependencyPolicy accepts the policy names used in settings and flags.
func ParseDependencyPolicy(s string) (DependencyPolicy, error) {
	switch p := DependencyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", "last", DependencyLastWriteWins:
		return DependencyLastWriteWins, nil
	case "highest", DependencyHighestVersion:
		return DependencyHighestVersion, nil
	case "fail", DependencyFailOnConflict:
		return DependencyFailOnConflict, nil
	default:
		return "", fmt.Errorf("unknown dependency policy %q (want last-write-wins, highest-version or fail-on-conflict)", s)
	}
}

// ParseIdentityPolicy accepts the policy names used in settings and flags.
func ParseIdentityPolicy(s string) (IdentityPolicy, error) {
	switch p := IdentityPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", IdentityOverwrite:
		return IdentityOverwrite, nil
	case IdentityReject:
		return IdentityReject, nil
	default:
		return "", fmt.Errorf("unknown identity policy %q (want overwrite or reject)", s)
	}
}

// merge decides the coordinate to keep for one module.
func (p DependencyPolicy) merge(logger *slog.Logger, scope ir.Scope, existing, incoming ir.Coordinate) (ir.Coordinate, error) {
	switch p {
	case DependencyFailOnConflict:
		if existing != incoming {
			return existing, ir.NewVersionConflict(scope, existing.String(), incoming.String())
		}
		return existing, nil

	case DependencyHighestVersion:
		cur, errCur := semver.NewVersion(existing.Version)
		next, errNext := semver.NewVersion(incoming.Version)
		if errCur != nil || errNext != nil {
			logger.Warn("version not comparable, keeping last declaration",
				"scope", scope,
				"existing", existing.String(),
				"incoming", incoming.String())
			return incoming, nil
		}
		if next.LessThan(cur) {
			logger.Debug("keeping higher version",
				"scope", scope,
				"kept", existing.String(),
				"dropped", incoming.String())
			return existing, nil
		}
		return incoming, nil

	default:
		return incoming, nil
	}
}
