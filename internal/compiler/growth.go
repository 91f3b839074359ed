package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/plexsim/internal/ir"
)

// GrowthWarning reports binding rules that let complexes grow without bound.
//
// Unbounded growth is a warning, not an error: polymerization is often the
// point of a model. The notification depth is what keeps the generated
// network finite, so a model with growth warnings should be run with a
// small depth.
type GrowthWarning struct {
	Path    []string `json:"path"`    // Growth path: ["M.head", "M.head"]
	Rules   []string `json:"rules"`   // Binding rules along the path
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning"
}

// AnalyzeGrowth performs static growth analysis on the dimerize rules.
//
// A node "Mol.site" means "an instance of Mol that joined the complex
// through site". From it, any binding rule on another site of Mol adds a new
// instance, entered through that rule's partner site. A cycle in this graph
// is a chain of bindings that can repeat forever.
//
// The algorithm:
//  1. Build the entry-site graph from the dimerize rules
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a growth warning
//
// A model without cycles returns an empty warning list.
func AnalyzeGrowth(spec *ir.ModelSpec) []GrowthWarning {
	graph, rules := buildGrowthGraph(spec.Rules)
	if len(graph) == 0 {
		return []GrowthWarning{}
	}

	sccs := tarjanSCC(graph)

	var warnings []GrowthWarning
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, growthSCCToWarning(scc, graph, rules))
		}
	}
	// Deterministic order for reports and golden files.
	slices.SortFunc(warnings, func(a, b GrowthWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// growthGraph maps "Mol.entry" -> "Mol'.entry'" nodes reachable by one
// more binding.
type growthGraph map[string][]string

type edge struct{ from, to string }

// buildGrowthGraph constructs the entry-site graph and remembers which rule
// produced each edge.
func buildGrowthGraph(rules []ir.RuleSpec) (growthGraph, map[edge]string) {
	type end struct{ mol, site string }
	type bond struct {
		a, b end
		rule string
	}
	var bonds []bond
	sites := make(map[string][]string) // mol -> sites used by binding rules
	for _, rs := range rules {
		if rs.Kind != ir.RuleDimerize || rs.Left == nil || rs.Right == nil {
			continue
		}
		l := end{rs.Left.Mol, rs.Left.Site}
		r := end{rs.Right.Mol, rs.Right.Site}
		bonds = append(bonds, bond{l, r, rs.Name}, bond{r, l, rs.Name})
		for _, e := range []end{l, r} {
			if !slices.Contains(sites[e.mol], e.site) {
				sites[e.mol] = append(sites[e.mol], e.site)
			}
		}
	}

	graph := make(growthGraph)
	names := make(map[edge]string)
	node := func(e end) string { return e.mol + "." + e.site }
	for _, b := range bonds {
		// Instances entered through b.b.site grow further from their other
		// sites; b itself is the way in.
		to := node(b.b)
		if graph[to] == nil {
			graph[to] = []string{}
		}
		for _, entry := range sites[b.a.mol] {
			if entry == b.a.site {
				continue
			}
			from := node(end{b.a.mol, entry})
			if graph[from] == nil {
				graph[from] = []string{}
			}
			if _, dup := names[edge{from, to}]; dup {
				continue
			}
			graph[from] = append(graph[from], to)
			names[edge{from, to}] = b.rule
		}
	}
	return graph, names
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph growthGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of nodes.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph growthGraph) [][]string {
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

	// Visit nodes in sorted order so SCC member order is stable.
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// growthSCCToWarning converts an SCC to a GrowthWarning.
func growthSCCToWarning(scc []string, graph growthGraph, rules map[edge]string) GrowthWarning {
	slices.Sort(scc)
	var path []string
	if len(scc) == 1 {
		path = []string{scc[0], scc[0]}
	} else {
		path = reconstructCyclePath(scc, graph)
	}

	var names []string
	for i := 0; i+1 < len(path); i++ {
		name := rules[edge{path[i], path[i+1]}]
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return GrowthWarning{
		Path:    path,
		Rules:   names,
		Message: fmt.Sprintf("complexes can grow without bound along %s (rules %s); generation is limited by the notification depth", strings.Join(path, " → "), strings.Join(names, ", ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph growthGraph) []string {
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
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
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
