package resolve

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/buildcfg/internal/ir"
)

// CatalogRepository is the content of one repository in a catalog file.
//
//	modules:
//	  org.junit.jupiter:junit-jupiter: ["5.9.3", "5.10.0"]
//	platforms:
//	  org.junit:junit-bom:5.10.0:
//	    org.junit.jupiter:junit-jupiter: 5.10.0
type CatalogRepository struct {
	// Offline repositories fail every lookup, so a later duplicate can serve.
	Offline   bool                         `yaml:"offline"`
	Modules   map[string][]string          `yaml:"modules"`
	Platforms map[string]map[string]string `yaml:"platforms"`
}

// Catalog is a Resolver backed by a static description of repositories.
type Catalog struct {
	Repositories map[string]CatalogRepository `yaml:"repositories"`

	logger *slog.Logger
}

// LoadCatalog reads a catalog YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML. Unknown fields are errors.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for name, repo := range c.Repositories {
		for platform := range repo.Platforms {
			if _, err := ir.ParseCoordinate(platform); err != nil {
				return nil, fmt.Errorf("repository %s: platform %q: %w", name, platform, err)
			}
		}
	}
	c.logger = slog.Default()
	return &c, nil
}

// WithLogger sets the logger for resolution steps.
func (c *Catalog) WithLogger(l *slog.Logger) *Catalog {
	c.logger = l
	return c
}

// Resolve implements Resolver.
func (c *Catalog) Resolve(ctx context.Context, req Request) (*Resolution, error) {
	res := &Resolution{Scopes: make(map[ir.Scope][]Artifact)}

	for _, scope := range req.SortedScopes() {
		sr := req.Scopes[scope]
		var artifacts []Artifact

		// platforms first: they supply managed versions
		managed := map[ir.Module]Artifact{}
		for _, p := range sr.Platforms {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			a, err := c.resolveOne(req.Repositories, p)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, a)
			for module, version := range c.Repositories[a.Repository].Platforms[a.Resolved.String()] {
				parts := strings.SplitN(module, ir.CoordinateSeparator, 2)
				if len(parts) != 2 {
					continue
				}
				key := ir.Module{Group: parts[0], Name: parts[1]}
				if _, seen := managed[key]; !seen {
					managed[key] = Artifact{
						Resolved: ir.Coordinate{Group: key.Group, Name: key.Name, Version: version},
						Platform: a.Resolved.String(),
					}
				}
			}
		}

		for _, d := range sr.Dependencies {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			a, err := c.resolveOne(req.Repositories, d)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, a)
		}

		for _, m := range sr.Managed {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pinned, ok := managed[m.Module()]
			if !ok {
				return nil, ir.NewResolutionFailure(m.String(),
					fmt.Errorf("no platform in scope %q manages %s", scope, m.Module()))
			}
			a, err := c.resolveOne(req.Repositories, pinned.Resolved)
			if err != nil {
				return nil, err
			}
			a.Requested = m
			a.Platform = pinned.Platform
			artifacts = append(artifacts, a)
		}

		res.Scopes[scope] = artifacts
	}
	return res, nil
}

// resolveOne walks repositories in order; the first that serves c wins.
func (c *Catalog) resolveOne(repos []ir.Repository, coord ir.Coordinate) (Artifact, error) {
	if len(repos) == 0 {
		return Artifact{}, ir.NewResolutionFailure(coord.String(), fmt.Errorf("no repositories declared"))
	}

	var tried []string
	for _, ref := range repos {
		repo, ok := c.Repositories[ref.Name]
		if !ok {
			tried = append(tried, ref.Name+" (unknown)")
			continue
		}
		if repo.Offline {
			c.logger.Debug("repository offline, trying next", "repository", ref.Name, "coordinate", coord.String())
			tried = append(tried, ref.Name+" (offline)")
			continue
		}
		versions, ok := repo.Modules[coord.Module().String()]
		if !ok {
			tried = append(tried, ref.Name)
			continue
		}
		version, err := pickVersion(versions, coord.Version)
		if err != nil {
			tried = append(tried, fmt.Sprintf("%s (%v)", ref.Name, err))
			continue
		}
		c.logger.Debug("coordinate resolved",
			"coordinate", coord.String(),
			"version", version,
			"repository", ref.Name)
		return Artifact{
			Requested:  coord,
			Resolved:   coord.WithVersion(version),
			Repository: ref.Name,
		}, nil
	}
	return Artifact{}, ir.NewResolutionFailure(coord.String(),
		fmt.Errorf("not found in %s", strings.Join(tried, ", ")))
}

// pickVersion returns requested if it is listed, or the highest listed
// version matching requested as a semver constraint.
func pickVersion(available []string, requested string) (string, error) {
	for _, v := range available {
		if v == requested {
			return v, nil
		}
	}
	if !isConstraint(requested) {
		return "", fmt.Errorf("version %s not available", requested)
	}

	constraint, err := semver.NewConstraint(requested)
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", requested, err)
	}

	parsed := make(semver.Collection, 0, len(available))
	for _, raw := range available {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		parsed = append(parsed, v)
	}
	sort.Sort(parsed)
	for i := len(parsed) - 1; i >= 0; i-- {
		if constraint.Check(parsed[i]) {
			return parsed[i].Original(), nil
		}
	}
	return "", fmt.Errorf("no version matches %s", requested)
}

func isConstraint(v string) bool {
	if strings.ContainsAny(v, "^~<>=*|, ") {
		return true
	}
	return strings.HasSuffix(v, ".x") || strings.HasSuffix(v, ".X")
}
