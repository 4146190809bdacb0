// Package oracle implements the MotionOracle contract (spec §4.1): a
// memoised, species-keyed, coalition-agnostic pairwise motion-plan duration
// lookup over an external Planner. It is safe for concurrent callers:
// identical concurrent queries share one planner call, while distinct pairs,
// of the same species or not, may be planned concurrently.
package oracle

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/elektrokombinacija/stas/internal/core"
)

// result is the cached outcome of one (species, from, to) query.
type result struct {
	length float64
	failed bool
}

// Oracle is the concrete MotionOracle. It is pure with respect to
// (species.BoundingRadius, from, to): robots sharing a species share cached
// results (spec §4.1).
type Oracle struct {
	planner    Planner
	cacheSize  int
	mu         sync.Mutex // guards caches and groups
	caches     map[core.SpeciesID]*lru.Cache[uint64, result]
	groups     map[core.SpeciesID]*singleflight.Group
}

// New builds an oracle delegating cache misses to planner. cacheSize bounds
// memory per species (0 uses a default of 4096 entries).
func New(planner Planner, cacheSize int) *Oracle {
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	return &Oracle{
		planner:   planner,
		cacheSize: cacheSize,
		caches:    make(map[core.SpeciesID]*lru.Cache[uint64, result]),
		groups:    make(map[core.SpeciesID]*singleflight.Group),
	}
}

func (o *Oracle) cacheFor(id core.SpeciesID) *lru.Cache[uint64, result] {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.caches[id]
	if !ok {
		c, _ = lru.New[uint64, result](o.cacheSize)
		o.caches[id] = c
	}
	return c
}

func (o *Oracle) groupFor(id core.SpeciesID) *singleflight.Group {
	o.mu.Lock()
	defer o.mu.Unlock()
	g, ok := o.groups[id]
	if !ok {
		g = &singleflight.Group{}
		o.groups[id] = g
	}
	return g
}

func key(from, to core.Configuration) uint64 {
	// Order-sensitive: a->b and b->a may have different lengths for
	// asymmetric planners (e.g. one-way corridors).
	return from.Hash()*1099511628211 ^ to.Hash()
}

// InvalidateSpecies drops every cached outcome for one species, used after a
// workspace change (new obstacle, edited graph) invalidates prior motion
// plans for robots of that species.
func (o *Oracle) InvalidateSpecies(id core.SpeciesID) {
	o.mu.Lock()
	c, ok := o.caches[id]
	o.mu.Unlock()
	if ok {
		c.Purge()
	}
}

// InvalidateAll drops every cached outcome across all species.
func (o *Oracle) InvalidateAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, c := range o.caches {
		c.Purge()
	}
}

// IsMemoised reports whether (species, from, to) has a cached outcome.
func (o *Oracle) IsMemoised(species *core.Species, from, to core.Configuration) bool {
	o.mu.Lock()
	c, ok := o.caches[species.ID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	_, ok = c.Peek(key(from, to))
	return ok
}

// Query returns the raw per-species path length for (from, to), or
// ErrInfeasible. Success returns are monotonic: repeated queries for the
// same (species, from, to) return identical values (spec §4.1).
//
// Concurrent callers share a per-species singleflight group keyed by the
// (from, to) pair, so two goroutines racing on the same species+pair invoke
// the planner at most once. Queries for different pairs are not serialised,
// even within one species, so the planner may run concurrently for a
// species.
func (o *Oracle) Query(species *core.Species, from, to core.Configuration) (float64, error) {
	c := o.cacheFor(species.ID)
	k := key(from, to)

	if cached, ok := c.Get(k); ok {
		if cached.failed {
			return 0, ErrInfeasible
		}
		return cached.length, nil
	}

	g := o.groupFor(species.ID)
	cacheKey := fmt.Sprintf("%d:%d", species.ID, k)
	v, err, _ := g.Do(cacheKey, func() (any, error) {
		// Re-check: another caller may have populated the cache while we
		// waited to acquire the singleflight slot.
		if cached, ok := c.Get(k); ok {
			return cached, nil
		}
		length, planErr := o.planner.Plan(species, from, to)
		if planErr != nil {
			c.Add(k, result{failed: true})
			return result{failed: true}, nil
		}
		r := result{length: length}
		c.Add(k, r)
		return r, nil
	})
	if err != nil {
		return 0, err
	}
	r := v.(result)
	if r.failed {
		return 0, ErrInfeasible
	}
	return r.length, nil
}

// Duration returns the travel time for the coalition's slowest robot:
// path_length / min_speed_of_coalition (spec §4.1). speeds must be
// non-empty and every entry > 0.
func Duration(length float64, speeds []float64) (float64, error) {
	if len(speeds) == 0 {
		return 0, fmt.Errorf("oracle: empty coalition has no speed to divide by")
	}
	minSpeed := speeds[0]
	for _, s := range speeds[1:] {
		if s < minSpeed {
			minSpeed = s
		}
	}
	if minSpeed <= 0 {
		return 0, fmt.Errorf("oracle: non-positive coalition speed %f", minSpeed)
	}
	return length / minSpeed, nil
}

// HeuristicDuration is the cheap underestimate used before a pair is
// memoised (spec §4.1 "Heuristic mode"): euclidean_distance / species.speed.
func HeuristicDuration(from, to core.Configuration, speed float64) float64 {
	if speed <= 0 {
		return 0
	}
	return from.EuclideanDistance(to) / speed
}
