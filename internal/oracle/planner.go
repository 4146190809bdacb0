package oracle

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/elektrokombinacija/stas/internal/core"
)

// ErrInfeasible reports that a specific (species, from, to) transition has
// no feasible motion plan (spec §4.1: "Query returning failure is fatal for
// that specific triple").
var ErrInfeasible = errors.New("oracle: no feasible motion plan")

// Planner is the external motion-planning collaborator, named only by
// interface per spec §1 (OMPL/graph/grid variants are out of scope to
// implement in full; the core only needs this capability surface).
type Planner interface {
	// Plan returns a path length, or ErrInfeasible if none exists.
	Plan(species *core.Species, from, to core.Configuration) (length float64, err error)
}

// EuclideanPlanner returns the Euclidean-distance underestimate used by the
// oracle's heuristic mode (spec §4.1). It never fails.
type EuclideanPlanner struct{}

func (EuclideanPlanner) Plan(species *core.Species, from, to core.Configuration) (float64, error) {
	return from.EuclideanDistance(to), nil
}

// GraphEdge is one directed, weighted edge of a GraphPlanner's map.
type GraphEdge struct {
	To     core.VertexID
	Length float64
}

// GraphPlanner is a deterministic Dijkstra shortest-path planner over
// core.Configuration values of kind ConfigurationGraph, the default
// concrete stand-in for an external graph/grid motion planner (spec §4.1:
// "graph shortest-path, or grid search" planner variants).
type GraphPlanner struct {
	adjacency map[core.VertexID][]GraphEdge
	noFlyZone map[core.VertexID]bool
}

// NewGraphPlanner builds a planner over an empty map; callers populate it
// with AddEdge before use.
func NewGraphPlanner() *GraphPlanner {
	return &GraphPlanner{adjacency: make(map[core.VertexID][]GraphEdge)}
}

// AddEdge inserts a directed edge. Call twice for an undirected edge.
func (g *GraphPlanner) AddEdge(from, to core.VertexID, length float64) {
	g.adjacency[from] = append(g.adjacency[from], GraphEdge{To: to, Length: length})
}

// Restrict marks a vertex as impassable for every species (e.g. a no-fly
// zone); Plan never moves into a restricted vertex. The start vertex is not
// checked, so a plan may begin on a restricted vertex.
func (g *GraphPlanner) Restrict(v core.VertexID) {
	if g.noFlyZone == nil {
		g.noFlyZone = make(map[core.VertexID]bool)
	}
	g.noFlyZone[v] = true
}

type dijkstraItem struct {
	vertex core.VertexID
	dist   float64
	index  int
}

type dijkstraHeap []*dijkstraItem

func (h dijkstraHeap) Len() int            { return len(h) }
func (h dijkstraHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h dijkstraHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *dijkstraHeap) Push(x any)         { item := x.(*dijkstraItem); item.index = len(*h); *h = append(*h, item) }
func (h *dijkstraHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Plan runs Dijkstra from from.Vertex to to.Vertex.
func (g *GraphPlanner) Plan(species *core.Species, from, to core.Configuration) (float64, error) {
	if from.Kind != core.ConfigurationGraph || to.Kind != core.ConfigurationGraph {
		return 0, fmt.Errorf("oracle: GraphPlanner requires graph configurations, got %s/%s", from.Kind, to.Kind)
	}
	if from.Vertex == to.Vertex {
		return 0, nil
	}

	dist := map[core.VertexID]float64{from.Vertex: 0}
	visited := map[core.VertexID]bool{}

	h := &dijkstraHeap{{vertex: from.Vertex, dist: 0}}
	heap.Init(h)

	for h.Len() > 0 {
		cur := heap.Pop(h).(*dijkstraItem)
		if visited[cur.vertex] {
			continue
		}
		visited[cur.vertex] = true
		if cur.vertex == to.Vertex {
			return cur.dist, nil
		}
		for _, e := range g.adjacency[cur.vertex] {
			if g.noFlyZone[e.To] {
				continue
			}
			nd := cur.dist + e.Length
			if d, ok := dist[e.To]; !ok || nd < d {
				dist[e.To] = nd
				heap.Push(h, &dijkstraItem{vertex: e.To, dist: nd})
			}
		}
	}

	return 0, ErrInfeasible
}
