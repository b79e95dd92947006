package executor

import (
	"sort"

	"github.com/Iron-Ham/crescendo/internal/graph"
)

// Recommendation suggests a capacity change for one specialty whose
// ready backlog exceeds its free slots.
type Recommendation struct {
	// Specialty is the contended specialty.
	Specialty string `json:"specialty"`

	// Backlog is the number of ready items wanting the specialty.
	Backlog int `json:"backlog"`

	// Capacity is the current effective capacity.
	Capacity int `json:"capacity"`

	// InUse is the number of occupied slots.
	InUse int `json:"in_use"`

	// Suggested is the capacity that would absorb the backlog.
	Suggested int `json:"suggested"`
}

// Advisor evaluates ready-set pressure against pool capacity. Its
// output feeds the add-resources conflict resolution: the engine only
// recommends, the operator changes capacity.
type Advisor struct {
	graph *graph.Graph
	pool  *Pool
}

// NewAdvisor creates an Advisor over the given graph and pool.
func NewAdvisor(g *graph.Graph, pool *Pool) *Advisor {
	return &Advisor{graph: g, pool: pool}
}

// Evaluate returns one recommendation per specialty whose ready
// backlog cannot be absorbed by its free slots, sorted by descending
// shortfall then specialty.
func (a *Advisor) Evaluate() []Recommendation {
	backlog := make(map[string]int)
	for _, item := range a.graph.ReadySet() {
		backlog[primarySpecialty(item)]++
	}

	var recs []Recommendation
	for specialty, waiting := range backlog {
		spare := a.pool.Spare(specialty)
		if waiting <= spare {
			continue
		}
		inUse := a.pool.InUse(specialty)
		recs = append(recs, Recommendation{
			Specialty: specialty,
			Backlog:   waiting,
			Capacity:  a.pool.Capacity(specialty),
			InUse:     inUse,
			Suggested: inUse + waiting,
		})
	}
	sort.Slice(recs, func(i, j int) bool {
		si := recs[i].Backlog - (recs[i].Capacity - recs[i].InUse)
		sj := recs[j].Backlog - (recs[j].Capacity - recs[j].InUse)
		if si != sj {
			return si > sj
		}
		return recs[i].Specialty < recs[j].Specialty
	})
	return recs
}
