package graph

import (
	"container/heap"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/model"
)

// DegreeCentrality counts in- and out-degree of every id over the directed
// version of g, where each undirected edge counts in both directions.
// Ids that are not in the graph get zero counts.
func DegreeCentrality(g *MultiGraph, ids []uuid.UUID) map[uuid.UUID]model.DegreeCentrality {
	in := map[uuid.UUID]int{}
	out := map[uuid.UUID]int{}
	for _, e := range g.Edges() {
		out[e.Source]++
		in[e.Target]++
		if e.Source != e.Target {
			out[e.Target]++
			in[e.Source]++
		}
	}

	result := make(map[uuid.UUID]model.DegreeCentrality, len(ids))
	for _, id := range ids {
		result[id] = model.DegreeCentrality{
			InDegree:  in[id],
			OutDegree: out[id],
			Total:     in[id] + out[id],
		}
	}
	return result
}

// BetweennessCentrality computes normalized weighted betweenness with Brandes'
// algorithm. Edge weights are distances and parallel edges use their lightest weight.
// Requested ids missing from the result default to 0.
func BetweennessCentrality(g *MultiGraph, ids []uuid.UUID) map[uuid.UUID]float64 {
	scores := Betweenness(g)

	result := make(map[uuid.UUID]float64, len(ids))
	for _, id := range ids {
		result[id] = scores[id]
	}
	return result
}

// Betweenness returns the normalized betweenness of every node of g.
func Betweenness(g *MultiGraph) map[uuid.UUID]float64 {
	nodes := g.Nodes()
	n := len(nodes)
	index := make(map[uuid.UUID]int, n)
	for i, node := range nodes {
		index[node.ID] = i
	}

	// Lightest parallel edge per neighbor pair, self loops never lie on shortest paths.
	adj := make([]map[int]float64, n)
	for i := range adj {
		adj[i] = map[int]float64{}
	}
	for _, e := range g.Edges() {
		u, v := index[e.Source], index[e.Target]
		if u == v {
			continue
		}
		if w, ok := adj[u][v]; !ok || e.Weight < w {
			adj[u][v] = e.Weight
			adj[v][u] = e.Weight
		}
	}
	order := make([][]int, n)
	for i := range adj {
		order[i] = sortedKeys(adj[i])
	}

	cb := make([]float64, n)
	for s := 0; s < n; s++ {
		stack, pred, sigma := dijkstra(s, adj, order)

		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	// Undirected pairs are counted from both ends, the scale already accounts for that.
	scale := 0.0
	if n > 2 {
		scale = 1.0 / float64((n-1)*(n-2))
	}

	result := make(map[uuid.UUID]float64, n)
	for i, node := range nodes {
		result[node.ID] = cb[i] * scale
	}
	return result
}

// dijkstra returns nodes in order of settled distance, the shortest path
// predecessors and the number of shortest paths from s.
func dijkstra(s int, adj []map[int]float64, order [][]int) ([]int, [][]int, []float64) {
	n := len(adj)
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	sigma := make([]float64, n)
	pred := make([][]int, n)
	settled := make([]bool, n)
	stack := []int{}

	dist[s] = 0
	sigma[s] = 1
	seq := 0
	pq := &distanceQueue{}
	heap.Push(pq, distanceItem{node: s, pred: s, dist: 0, seq: seq})

	const eps = 1e-12
	for pq.Len() > 0 {
		item := heap.Pop(pq).(distanceItem)
		v := item.node
		if settled[v] {
			continue
		}
		if item.pred != v {
			sigma[v] += sigma[item.pred]
		}
		settled[v] = true
		stack = append(stack, v)

		for _, w := range order[v] {
			d := dist[v] + adj[v][w]
			switch {
			case !settled[w] && d < dist[w]-eps:
				dist[w] = d
				seq++
				heap.Push(pq, distanceItem{node: w, pred: v, dist: d, seq: seq})
				sigma[w] = 0
				pred[w] = []int{v}
			case math.Abs(d-dist[w]) <= eps && w != s:
				sigma[w] += sigma[v]
				pred[w] = append(pred[w], v)
			}
		}
	}

	return stack, pred, sigma
}

type distanceItem struct {
	node int
	pred int
	dist float64
	seq  int
}

type distanceQueue []distanceItem

func (q distanceQueue) Len() int { return len(q) }
func (q distanceQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].seq < q[j].seq
}
func (q distanceQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *distanceQueue) Push(x interface{}) { *q = append(*q, x.(distanceItem)) }
func (q *distanceQueue) Pop() interface{} {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
