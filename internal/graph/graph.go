// Package graph orders dependency graphs with Kahn's algorithm. Resolve uses
// it to linearize class hierarchies parents-first and to find cycles.
package graph

import (
	"slices"
)

// NodeID indexes a node; callers usually reuse their own dense handles.
type NodeID uint32

// Graph is a dense directed graph. Only present nodes take part in ordering.
type Graph struct {
	Edges   [][]NodeID // Edges[from] = []to
	Indeg   []int      // входящие степени для Kahn (учитывает только присутствующие узлы)
	Present []bool
}

// New allocates a graph with n node slots, none present.
func New(n int) *Graph {
	return &Graph{
		Edges:   make([][]NodeID, n),
		Indeg:   make([]int, n),
		Present: make([]bool, n),
	}
}

// AddNode marks id as present.
func (g *Graph) AddNode(id NodeID) { g.Present[id] = true }

// AddEdge adds from -> to once. Both ends must be present for the edge to
// count towards ordering.
func (g *Graph) AddEdge(from, to NodeID) {
	if slices.Contains(g.Edges[from], to) {
		return
	}
	g.Edges[from] = append(g.Edges[from], to)
	g.Indeg[to]++
}

// Topo is the result of ToposortKahn.
type Topo struct {
	Order   []NodeID   // линейный порядок (только присутствующие узлы)
	Batches [][]NodeID // волны независимых узлов
	Cyclic  bool
	Cycles  []NodeID // узлы, оставшиеся в цикле или зависящие от него
}

// ToposortKahn orders present nodes so that every edge points forward.
// Within a batch nodes are sorted by id, so the order is deterministic.
func ToposortKahn(g *Graph) *Topo {
	nodeCount := len(g.Edges)
	indeg := make([]int, nodeCount)
	for from := range nodeCount {
		if !g.Present[from] {
			continue
		}
		for _, to := range g.Edges[from] {
			if g.Present[to] {
				indeg[to]++
			}
		}
	}

	topo := &Topo{
		Order:   make([]NodeID, 0, nodeCount),
		Batches: make([][]NodeID, 0),
	}

	active := 0
	current := make([]NodeID, 0, nodeCount)
	for i := range nodeCount {
		if !g.Present[i] {
			continue
		}
		active++
		if indeg[i] == 0 {
			current = append(current, NodeID(uint32(i))) //nolint:gosec // i < len(Edges)
		}
	}

	visited := 0
	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]NodeID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, to := range g.Edges[id] {
				if !g.Present[to] {
					continue
				}
				indeg[to]--
				if indeg[to] == 0 {
					next = append(next, to)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		for i := range nodeCount {
			if g.Present[i] && indeg[i] > 0 {
				topo.Cycles = append(topo.Cycles, NodeID(uint32(i))) //nolint:gosec // i < len(Edges)
			}
		}
	}
	return topo
}

// InCycle narrows Topo.Cycles down to the nodes that lie on a cycle, dropping
// nodes that merely depend on one.
func InCycle(g *Graph, candidates []NodeID) []NodeID {
	inSet := make(map[NodeID]bool, len(candidates))
	for _, id := range candidates {
		inSet[id] = true
	}
	var out []NodeID
	for _, start := range candidates {
		if reaches(g, start, start, inSet) {
			out = append(out, start)
		}
	}
	return out
}

func reaches(g *Graph, from, target NodeID, allowed map[NodeID]bool) bool {
	seen := make(map[NodeID]bool)
	stack := slices.Clone(g.Edges[from])
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == target {
			return true
		}
		if seen[n] || !allowed[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.Edges[n]...)
	}
	return false
}
