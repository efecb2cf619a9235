package project

import (
	"github.com/roach88/buildcfg/internal/ir"
)

// Dependency is one recorded entry of a scope.
type Dependency struct {
	Coordinate ir.Coordinate `json:"coordinate"`
	Managed    bool          `json:"managed,omitempty"`
}

// entrySet holds one entry per module, in first-declaration order.
type entrySet struct {
	order    []ir.Module
	byModule map[ir.Module]Dependency
}

func newEntrySet() *entrySet {
	return &entrySet{byModule: make(map[ir.Module]Dependency)}
}

func (s *entrySet) get(m ir.Module) (Dependency, bool) {
	d, ok := s.byModule[m]
	return d, ok
}

// put records d, keeping the original position if the module exists.
func (s *entrySet) put(d Dependency) {
	m := d.Coordinate.Module()
	if _, ok := s.byModule[m]; !ok {
		s.order = append(s.order, m)
	}
	s.byModule[m] = d
}

func (s *entrySet) list() []Dependency {
	out := make([]Dependency, 0, len(s.order))
	for _, m := range s.order {
		out = append(out, s.byModule[m])
	}
	return out
}

func (s *entrySet) len() int {
	return len(s.order)
}

// scopeSet is the per-scope record of dependencies and platforms.
type scopeSet struct {
	dependencies *entrySet
	platforms    *entrySet
}

func newScopeSet() *scopeSet {
	return &scopeSet{dependencies: newEntrySet(), platforms: newEntrySet()}
}
