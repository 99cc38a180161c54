package graph

import (
	"slices"
	"testing"
)

func TestToposortOrdersParentsFirst(t *testing.T) {
	g := New(5)
	for _, id := range []NodeID{1, 2, 3, 4} {
		g.AddNode(id)
	}
	g.AddEdge(1, 2)
	g.AddEdge(1, 3)
	g.AddEdge(3, 4)
	g.AddEdge(1, 2) // дубликат игнорируется

	topo := ToposortKahn(g)
	if topo.Cyclic {
		t.Fatalf("unexpected cycle: %v", topo.Cycles)
	}
	want := []NodeID{1, 2, 3, 4}
	if !slices.Equal(topo.Order, want) {
		t.Fatalf("order = %v, want %v", topo.Order, want)
	}
	if len(topo.Batches) != 3 || !slices.Equal(topo.Batches[1], []NodeID{2, 3}) {
		t.Fatalf("batches = %v", topo.Batches)
	}
}

func TestToposortIgnoresAbsentNodes(t *testing.T) {
	g := New(3)
	g.AddNode(2)
	g.AddEdge(1, 2) // 1 отсутствует
	topo := ToposortKahn(g)
	if topo.Cyclic || !slices.Equal(topo.Order, []NodeID{2}) {
		t.Fatalf("order = %v cyclic=%v", topo.Order, topo.Cyclic)
	}
}

func TestToposortDetectsCycles(t *testing.T) {
	g := New(5)
	for _, id := range []NodeID{1, 2, 3, 4} {
		g.AddNode(id)
	}
	g.AddEdge(1, 2)
	g.AddEdge(2, 1)
	g.AddEdge(2, 3) // 3 зависит от цикла, но сам в нём не лежит

	topo := ToposortKahn(g)
	if !topo.Cyclic {
		t.Fatalf("cycle not detected")
	}
	if !slices.Equal(topo.Cycles, []NodeID{1, 2, 3}) {
		t.Fatalf("cycles = %v", topo.Cycles)
	}
	if got := InCycle(g, topo.Cycles); !slices.Equal(got, []NodeID{1, 2}) {
		t.Fatalf("InCycle = %v", got)
	}
	if !slices.Equal(topo.Order, []NodeID{4}) {
		t.Fatalf("acyclic part = %v", topo.Order)
	}
}

func TestSelfLoop(t *testing.T) {
	g := New(2)
	g.AddNode(1)
	g.AddEdge(1, 1)
	topo := ToposortKahn(g)
	if !topo.Cyclic || !slices.Equal(InCycle(g, topo.Cycles), []NodeID{1}) {
		t.Fatalf("self loop must be a cycle: %+v", topo)
	}
}
