// Package graph holds the in-memory multi-layer graph over resources and the
// traversal, centrality and community algorithms that run on it.
package graph

import (
	"github.com/google/uuid"
)

// Node is a resource node of the multi-layer graph.
type Node struct {
	ID      uuid.UUID
	Title   string
	Type    string
	Quality *float64
}

// Edge is one typed edge. Parallel edges between the same nodes are kept apart.
type Edge struct {
	Source uuid.UUID
	Target uuid.UUID
	Type   string
	Weight float64
}

// Other returns the endpoint of e that is not id.
func (e Edge) Other(id uuid.UUID) uuid.UUID {
	if e.Source == id {
		return e.Target
	}
	return e.Source
}

// MultiGraph is an undirected multigraph with typed weighted edges.
// Node and edge order is insertion order, so every algorithm over it is deterministic.
type MultiGraph struct {
	nodes    []Node
	index    map[uuid.UUID]int
	edges    []Edge
	incident map[uuid.UUID][]int
}

// NewMultiGraph creates an empty multigraph
func NewMultiGraph() *MultiGraph {
	return &MultiGraph{
		index:    map[uuid.UUID]int{},
		incident: map[uuid.UUID][]int{},
	}
}

// AddNode adds a node or updates the attributes of an existing one.
func (g *MultiGraph) AddNode(n Node) {
	if i, ok := g.index[n.ID]; ok {
		g.nodes[i] = n
		return
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// AddEdge adds an edge, endpoints missing from the graph are added as bare nodes.
func (g *MultiGraph) AddEdge(e Edge) {
	for _, id := range []uuid.UUID{e.Source, e.Target} {
		if _, ok := g.index[id]; !ok {
			g.AddNode(Node{ID: id})
		}
	}

	i := len(g.edges)
	g.edges = append(g.edges, e)
	g.incident[e.Source] = append(g.incident[e.Source], i)
	if e.Target != e.Source {
		g.incident[e.Target] = append(g.incident[e.Target], i)
	}
}

func (g *MultiGraph) HasNode(id uuid.UUID) bool {
	_, ok := g.index[id]
	return ok
}

func (g *MultiGraph) Node(id uuid.UUID) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

func (g *MultiGraph) Nodes() []Node {
	return g.nodes
}

func (g *MultiGraph) Edges() []Edge {
	return g.edges
}

func (g *MultiGraph) NodeCount() int {
	return len(g.nodes)
}

func (g *MultiGraph) EdgeCount() int {
	return len(g.edges)
}

// IncidentEdges returns all edges touching id, including parallel edges, in insertion order.
func (g *MultiGraph) IncidentEdges(id uuid.UUID) []Edge {
	idx := g.incident[id]
	edges := make([]Edge, 0, len(idx))
	for _, i := range idx {
		edges = append(edges, g.edges[i])
	}
	return edges
}

// Neighbors returns the distinct neighbors of id in order of first connection.
func (g *MultiGraph) Neighbors(id uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	neighbors := []uuid.UUID{}
	for _, i := range g.incident[id] {
		other := g.edges[i].Other(id)
		if other == id || seen[other] {
			continue
		}
		seen[other] = true
		neighbors = append(neighbors, other)
	}
	return neighbors
}

// EdgesBetween returns all parallel edges between a and b.
func (g *MultiGraph) EdgesBetween(a, b uuid.UUID) []Edge {
	edges := []Edge{}
	for _, i := range g.incident[a] {
		if g.edges[i].Other(a) == b {
			edges = append(edges, g.edges[i])
		}
	}
	return edges
}

// Directed returns the edges as a directed graph in their stored orientation.
// Parallel edges of the same orientation are merged by summing their weights.
func (g *MultiGraph) Directed() *DirectedGraph {
	d := NewDirectedGraph()
	for _, n := range g.nodes {
		d.AddNode(n.ID)
	}
	for _, e := range g.edges {
		d.AddEdge(e.Source, e.Target, e.Weight)
	}
	return d
}
