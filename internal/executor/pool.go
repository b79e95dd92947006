package executor

import "sync"

// Pool tracks per-specialty dispatch capacity. It is an explicit
// resource-pool object, injected wherever load matters, rather than
// shared mutable package state.
type Pool struct {
	mu              sync.Mutex
	defaultCapacity int
	capacities      map[string]int
	load            map[string]int
}

// NewPool creates a pool where every specialty defaults to the given
// capacity.
func NewPool(defaultCapacity int) *Pool {
	if defaultCapacity < 1 {
		defaultCapacity = 1
	}
	return &Pool{
		defaultCapacity: defaultCapacity,
		capacities:      make(map[string]int),
		load:            make(map[string]int),
	}
}

// SetCapacity overrides one specialty's capacity.
func (p *Pool) SetCapacity(specialty string, capacity int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capacities[specialty] = capacity
}

// Acquire takes one slot for the specialty, reporting whether a slot
// was free.
func (p *Pool) Acquire(specialty string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.load[specialty] >= p.capacityLocked(specialty) {
		return false
	}
	p.load[specialty]++
	return true
}

// Release returns one slot for the specialty.
func (p *Pool) Release(specialty string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.load[specialty] > 0 {
		p.load[specialty]--
	}
}

// Load returns the specialty's utilization in [0,1].
func (p *Pool) Load(specialty string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return float64(p.load[specialty]) / float64(p.capacityLocked(specialty))
}

// Spare returns how many slots the specialty has free.
func (p *Pool) Spare(specialty string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacityLocked(specialty) - p.load[specialty]
}

// Capacity returns the specialty's effective capacity.
func (p *Pool) Capacity(specialty string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacityLocked(specialty)
}

// InUse returns how many slots the specialty currently occupies.
func (p *Pool) InUse(specialty string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load[specialty]
}

func (p *Pool) capacityLocked(specialty string) int {
	if c, ok := p.capacities[specialty]; ok && c > 0 {
		return c
	}
	return p.defaultCapacity
}
