package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/entail/internal/ir"
)

// RecursionGroup is a set of rules that can feed each other.
//
// Recursion is expected in an entailment program (rdfs9 feeds itself
// through rdf:type), so groups are informational. They tell a rule author
// which rules the engine will iterate to a fixpoint together, and a large
// unexpected group usually means a head pattern is more general than
// intended.
type RecursionGroup struct {
	Rules   []string `json:"rules"`   // Members in rule declaration order
	Path    []string `json:"path"`    // One cycle through the group: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "info" for self-recursion, "warning" for mutual recursion
}

// AnalyzeRecursion finds groups of mutually recursive rules.
//
// The algorithm:
//  1. Build a rule → rule dependency graph: a → b when a's head can
//     unify with one of b's body patterns
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, or a single rule that feeds itself
//
// Groups are ordered by the declaration position of their first member.
// A program without recursion returns an empty list.
func AnalyzeRecursion(rs []ir.Rule) []RecursionGroup {
	if len(rs) == 0 {
		return []RecursionGroup{}
	}

	graph, order := buildDependencyGraph(rs)
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}

	groups := []RecursionGroup{}
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			sort.Slice(scc, func(i, j int) bool { return pos[scc[i]] < pos[scc[j]] })
			groups = append(groups, sccToGroup(scc, graph))
		}
	}
	sort.Slice(groups, func(i, j int) bool { return pos[groups[i].Rules[0]] < pos[groups[j].Rules[0]] })
	return groups
}

// dependencyGraph maps rule name → rules whose body its head can feed.
type dependencyGraph map[string][]string

func buildDependencyGraph(rs []ir.Rule) (dependencyGraph, []string) {
	graph := make(dependencyGraph, len(rs))
	order := make([]string, 0, len(rs))
	for _, a := range rs {
		order = append(order, a.Name)
		graph[a.Name] = []string{}
		for _, b := range rs {
			for _, p := range b.Body {
				if mayUnify(a.Head, p) {
					graph[a.Name] = append(graph[a.Name], b.Name)
					break
				}
			}
		}
	}
	return graph, order
}

// mayUnify reports whether some triple could match both patterns, judged
// slot by slot: two bound slots must hold the same term.
func mayUnify(a, b ir.Pattern) bool {
	as, bs := a.Slots(), b.Slots()
	for i := range as {
		if !as[i].IsVar() && !bs[i].IsVar() && as[i].Term != bs[i].Term {
			return false
		}
	}
	return true
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

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Roots are visited in the given order so output is deterministic.
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

		// Root of an SCC: pop it.
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

func sccToGroup(scc []string, graph dependencyGraph) RecursionGroup {
	if len(scc) == 1 {
		name := scc[0]
		return RecursionGroup{
			Rules:   []string{name},
			Path:    []string{name, name},
			Message: fmt.Sprintf("rule %s feeds itself", name),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return RecursionGroup{
		Rules:   scc,
		Path:    path,
		Message: fmt.Sprintf("mutually recursive rules: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && neighbor != current && (!visited[neighbor] || neighbor == start) {
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
