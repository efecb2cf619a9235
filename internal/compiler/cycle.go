package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/buildcfg/internal/ir"
)

// CycleWarning represents a cycle among plugin prerequisites.
//
// Cycles are warnings, not errors: the registry applies each plugin at
// most once and skips a prerequisite that is already being applied, so
// a cycle terminates. It does make application order depend on which
// plugin of the cycle the descriptor names first.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzePluginCycles performs static cycle analysis on plugin
// prerequisites.
//
// The algorithm:
//  1. Build plugin -> prerequisite graph from Applies
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle warning
//
// Prerequisites outside defs are ignored. Warnings follow the order of
// defs, so output is stable.
func AnalyzePluginCycles(defs []ir.PluginDefinition) []CycleWarning {
	warnings := []CycleWarning{}
	if len(defs) == 0 {
		return warnings
	}

	graph, order := buildPrerequisiteGraph(defs)
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, order))
		}
	}
	return warnings
}

// dependencyGraph maps plugin id -> prerequisite ids.
type dependencyGraph map[string][]string

func buildPrerequisiteGraph(defs []ir.PluginDefinition) (dependencyGraph, []string) {
	graph := make(dependencyGraph)
	var order []string
	for _, def := range defs {
		if _, ok := graph[def.ID]; !ok {
			order = append(order, def.ID)
			graph[def.ID] = []string{}
		}
	}
	for _, def := range defs {
		for _, pre := range def.Applies {
			if _, known := graph[pre]; known {
				graph[def.ID] = append(graph[def.ID], pre)
			}
		}
	}
	return graph, order
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm,
// visiting roots in the given order.
//
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning. The path starts
// at the member declared first.
func cycleSCCToWarning(scc []string, graph dependencyGraph, order []string) CycleWarning {
	if len(scc) == 1 {
		id := scc[0]
		return CycleWarning{
			Path:    []string{id, id},
			Message: fmt.Sprintf("plugin applies itself: %s -> %s", id, id),
			Level:   "warning",
		}
	}

	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}
	start := scc[0]
	for _, id := range order {
		if members[id] {
			start = id
			break
		}
	}

	path := reconstructCyclePath(start, members, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("plugin prerequisite cycle: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges inside the SCC from start until it
// returns to start.
func reconstructCyclePath(start string, members map[string]bool, graph dependencyGraph) []string {
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
