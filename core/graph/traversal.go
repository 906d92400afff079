package graph

import (
	"sort"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/model"
)

// TraversalFilter restricts the edges a traversal may follow.
type TraversalFilter struct {
	EdgeTypes []string // empty allows every type
	MinWeight float64
}

func (f TraversalFilter) allows(e Edge) bool {
	if e.Weight < f.MinWeight {
		return false
	}
	if len(f.EdgeTypes) == 0 {
		return true
	}
	for _, t := range f.EdgeTypes {
		if e.Type == t {
			return true
		}
	}
	return false
}

// MultiHopNeighbors expands one or two hops from sourceID.
// Every allowed parallel edge yields its own path. Two-hop paths multiply their
// edge weights and never revisit the source, a direct neighbor or an earlier destination.
// Unknown sources and hops other than 1 and 2 yield an empty result.
// Results are sorted by total weight descending and cut to limit if limit > 0.
func MultiHopNeighbors(g *MultiGraph, sourceID uuid.UUID, hops int, filter TraversalFilter, limit int, defaultQuality float64) []model.NeighborPath {
	results := []model.NeighborPath{}
	if !g.HasNode(sourceID) {
		return results
	}

	quality := func(id uuid.UUID) float64 {
		n, ok := g.Node(id)
		if !ok || n.Quality == nil {
			return defaultQuality
		}
		return *n.Quality
	}

	switch hops {
	case 1:
		for _, e := range g.IncidentEdges(sourceID) {
			neighbor := e.Other(sourceID)
			if neighbor == sourceID || !filter.allows(e) {
				continue
			}
			results = append(results, model.NeighborPath{
				NeighborID:  neighbor,
				Path:        []uuid.UUID{sourceID, neighbor},
				EdgeTypes:   []string{e.Type},
				TotalWeight: e.Weight,
				Score:       e.Weight * quality(neighbor),
			})
		}

	case 2:
		visited := map[uuid.UUID]bool{sourceID: true}
		intermediates := g.Neighbors(sourceID)
		for _, n := range intermediates {
			visited[n] = true
		}

		for _, intermediate := range intermediates {
			first := []Edge{}
			for _, e := range g.EdgesBetween(sourceID, intermediate) {
				if filter.allows(e) {
					first = append(first, e)
				}
			}
			if len(first) == 0 {
				continue
			}

			for _, destination := range g.Neighbors(intermediate) {
				if visited[destination] {
					continue
				}

				second := []Edge{}
				for _, e := range g.EdgesBetween(intermediate, destination) {
					if filter.allows(e) {
						second = append(second, e)
					}
				}
				if len(second) == 0 {
					continue
				}
				visited[destination] = true

				via := intermediate
				for _, e1 := range first {
					for _, e2 := range second {
						total := e1.Weight * e2.Weight
						results = append(results, model.NeighborPath{
							NeighborID:   destination,
							Intermediate: &via,
							Path:         []uuid.UUID{sourceID, intermediate, destination},
							EdgeTypes:    []string{e1.Type, e2.Type},
							TotalWeight:  total,
							Score:        total * quality(destination),
						})
					}
				}
			}
		}

	default:
		return results
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].TotalWeight > results[j].TotalWeight
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results
}
