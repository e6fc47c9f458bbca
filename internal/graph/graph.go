// Package graph builds the module dependency graph and finds cycles in it.
package graph

import (
	"slices"
	"strings"

	"github.com/simonhull/crucible/internal/model"
)

// DependencyGraph represents the dependency relationships between modules
type DependencyGraph struct {
	Nodes  []*Node
	Edges  []*Edge
	Cycles [][]string // Each cycle starts and ends at the same module
	Stats  Stats
}

// Node is a single module in the graph
type Node struct {
	Name           string
	Layer          string
	Degraded       bool // Degraded modules keep their node but have no outgoing edges
	ImportCount    int  // Number of modules this depends on
	DependentCount int  // Number of modules that depend on this
	Depth          int  // Longest dependency chain below this module (0 = leaf)
}

// Edge is a declared dependency between two existing modules
type Edge struct {
	From    string
	To      string
	IsCycle bool // Part of a circular dependency
}

// Dangling is a declared dependency on a module that does not exist
type Dangling struct {
	From string
	To   string
}

// Stats provides summary metrics
type Stats struct {
	Modules    int
	Edges      int
	Cycles     int
	MaxDepth   int
	AvgImports float64
}

// Build creates the graph for every module of p. Dependencies on unknown
// modules are returned separately and never become edges.
func Build(p *model.Project) (*DependencyGraph, []Dangling) {
	g := &DependencyGraph{
		Nodes:  make([]*Node, 0, len(p.Modules())),
		Edges:  make([]*Edge, 0),
		Cycles: make([][]string, 0),
	}

	nodeMap := make(map[string]*Node, len(p.Modules()))
	for _, m := range p.Modules() {
		node := &Node{Name: m.Name, Layer: m.Layer, Degraded: m.Degraded}
		nodeMap[m.Name] = node
		g.Nodes = append(g.Nodes, node)
	}

	var dangling []Dangling
	for _, m := range p.Modules() {
		if m.Degraded {
			continue
		}
		for _, dep := range m.DependencyNames() {
			target, ok := nodeMap[dep]
			if !ok {
				dangling = append(dangling, Dangling{From: m.Name, To: dep})
				continue
			}
			g.Edges = append(g.Edges, &Edge{From: m.Name, To: dep})
			nodeMap[m.Name].ImportCount++
			target.DependentCount++
		}
	}

	g.Cycles = detectCycles(g)
	for _, cycle := range g.Cycles {
		markCycleEdges(g.Edges, cycle)
	}

	inferDepths(g, nodeMap)
	g.Stats = calculateStats(g)

	return g, dangling
}

// adjacency returns sorted successor lists
func (g *DependencyGraph) adjacency() map[string][]string {
	adj := make(map[string][]string, len(g.Nodes))
	for _, edge := range g.Edges {
		adj[edge.From] = append(adj[edge.From], edge.To)
	}
	for from := range adj {
		slices.Sort(adj[from])
	}
	return adj
}

// detectCycles finds circular dependencies using DFS with a recursion
// stack. Every back edge yields one cycle; cycles are rotated to start at
// their smallest module name and deduplicated, so the result does not
// depend on traversal order.
func detectCycles(g *DependencyGraph) [][]string {
	adj := g.adjacency()
	visited := make(map[string]bool, len(g.Nodes))
	onStack := make(map[string]bool, len(g.Nodes))
	seen := make(map[string]bool)
	cycles := make([][]string, 0)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, next := range adj[node] {
			if !visited[next] {
				dfs(next, path)
				continue
			}
			if !onStack[next] {
				continue
			}

			start := slices.Index(path, next)
			cycle := canonical(path[start:])
			key := strings.Join(cycle, "\x00")
			if !seen[key] {
				seen[key] = true
				cycles = append(cycles, cycle)
			}
		}

		onStack[node] = false
	}

	for _, node := range g.Nodes {
		if !visited[node.Name] {
			dfs(node.Name, nil)
		}
	}

	slices.SortFunc(cycles, func(a, b []string) int {
		return strings.Compare(strings.Join(a, " "), strings.Join(b, " "))
	})
	return cycles
}

// canonical rotates members so the smallest name comes first and closes
// the cycle by repeating it at the end.
func canonical(members []string) []string {
	minIdx := 0
	for i, name := range members {
		if name < members[minIdx] {
			minIdx = i
		}
	}

	cycle := make([]string, 0, len(members)+1)
	cycle = append(cycle, members[minIdx:]...)
	cycle = append(cycle, members[:minIdx]...)
	return append(cycle, cycle[0])
}

// markCycleEdges marks edges that are part of a circular dependency
func markCycleEdges(edges []*Edge, cycle []string) {
	for i := 0; i+1 < len(cycle); i++ {
		for _, edge := range edges {
			if edge.From == cycle[i] && edge.To == cycle[i+1] {
				edge.IsCycle = true
			}
		}
	}
}

// inferDepths assigns each module the length of its longest dependency
// chain, ignoring cycle edges.
func inferDepths(g *DependencyGraph, nodeMap map[string]*Node) {
	dependents := make(map[string][]string)
	outDegree := make(map[string]int, len(g.Nodes))
	for _, node := range g.Nodes {
		outDegree[node.Name] = 0
	}
	for _, edge := range g.Edges {
		if edge.IsCycle {
			continue
		}
		dependents[edge.To] = append(dependents[edge.To], edge.From)
		outDegree[edge.From]++
	}

	queue := make([]string, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		if outDegree[node.Name] == 0 {
			queue = append(queue, node.Name)
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		depth := nodeMap[current].Depth

		for _, dependent := range dependents[current] {
			if node := nodeMap[dependent]; node.Depth < depth+1 {
				node.Depth = depth + 1
			}
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}
}

func calculateStats(g *DependencyGraph) Stats {
	stats := Stats{
		Modules: len(g.Nodes),
		Edges:   len(g.Edges),
		Cycles:  len(g.Cycles),
	}
	for _, node := range g.Nodes {
		if node.Depth > stats.MaxDepth {
			stats.MaxDepth = node.Depth
		}
	}
	if stats.Modules > 0 {
		stats.AvgImports = float64(stats.Edges) / float64(stats.Modules)
	}
	return stats
}

// FormatCycle renders a cycle as "a → b → a"
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " → ")
}
