// Package platform is the test-execution platform selector: given a
// platform id it returns the test-task configuration that runs tests on
// that platform. Test execution itself happens elsewhere.
package platform

import (
	"sort"
	"strings"

	"github.com/roach88/buildcfg/internal/ir"
)

// Selector returns the task properties for a test platform.
type Selector interface {
	Select(id string) (ir.Map, error)
}

// StaticSelector serves a fixed table of platforms.
type StaticSelector struct {
	platforms map[string]ir.Map
	aliases   map[string]string
}

// NewStaticSelector returns a selector for the well-known platforms:
// junit-platform (aliases junit5, JUnitPlatform), junit4 and testng.
func NewStaticSelector() *StaticSelector {
	s := &StaticSelector{
		platforms: map[string]ir.Map{},
		aliases:   map[string]string{},
	}
	s.Add("junit-platform", ir.Map{
		"testFramework":  ir.String("junit-platform"),
		"launcher":       ir.String("org.junit.platform:junit-platform-launcher"),
		"includeEngines": ir.List{},
	}, "junit5", "JUnitPlatform")
	s.Add("junit4", ir.Map{
		"testFramework": ir.String("junit4"),
		"launcher":      ir.String("junit:junit"),
	}, "junit")
	s.Add("testng", ir.Map{
		"testFramework":       ir.String("testng"),
		"launcher":            ir.String("org.testng:testng"),
		"useDefaultListeners": ir.Bool(false),
	}, "TestNG")
	return s
}

// Add registers a platform under id and aliases. Lookup is case-insensitive.
func (s *StaticSelector) Add(id string, config ir.Map, aliases ...string) {
	s.platforms[id] = config.Clone()
	s.aliases[strings.ToLower(id)] = id
	for _, a := range aliases {
		s.aliases[strings.ToLower(a)] = id
	}
}

// Select returns a copy of the configuration of id.
func (s *StaticSelector) Select(id string) (ir.Map, error) {
	canonical, ok := s.aliases[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, ir.NewUnknownPlatform(id)
	}
	return s.platforms[canonical].Clone(), nil
}

// IDs lists the canonical platform ids, sorted.
func (s *StaticSelector) IDs() []string {
	ids := make([]string, 0, len(s.platforms))
	for id := range s.platforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
