package recovery

import (
	"sync"
	"time"

	"github.com/Iron-Ham/crescendo/internal/event"
)

// BreakerState is the circuit breaker's position.
type BreakerState string

const (
	// BreakerClosed allows team formation normally.
	BreakerClosed BreakerState = "closed"

	// BreakerOpen blocks team formation until the cooldown passes.
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen allows a limited number of trial formations.
	BreakerHalfOpen BreakerState = "half_open"
)

// String returns the string representation of the breaker state.
func (s BreakerState) String() string {
	return string(s)
}

// Breaker guards team formation against repeated failures. Closed
// moves to open after a threshold of consecutive failures; open moves
// to half-open after a cooldown; half-open closes again on success or
// re-opens on failure.
type Breaker struct {
	mu               sync.Mutex
	state            BreakerState
	failureThreshold int
	cooldown         time.Duration
	halfOpenTrials   int

	consecutiveFailures int
	openedAt            time.Time
	trialsRemaining     int

	bus *event.Bus
	now func() time.Time
}

// NewBreaker creates a closed breaker. The bus may be nil.
func NewBreaker(failureThreshold int, cooldown time.Duration, halfOpenTrials int, bus *event.Bus) *Breaker {
	return &Breaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		halfOpenTrials:   halfOpenTrials,
		bus:              bus,
		now:              time.Now,
	}
}

// Allow reports whether a team formation may proceed, advancing open
// to half-open when the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	allowed := false
	var changed event.Event

	switch b.state {
	case BreakerClosed:
		allowed = true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			changed = b.setStateLocked(BreakerHalfOpen)
			b.trialsRemaining = b.halfOpenTrials
			allowed = b.takeTrialLocked()
		}
	case BreakerHalfOpen:
		allowed = b.takeTrialLocked()
	}
	b.mu.Unlock()

	b.publish(changed)
	return allowed
}

func (b *Breaker) takeTrialLocked() bool {
	if b.trialsRemaining <= 0 {
		return false
	}
	b.trialsRemaining--
	return true
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	b.consecutiveFailures = 0
	var changed event.Event
	if b.state != BreakerClosed {
		changed = b.setStateLocked(BreakerClosed)
	}
	b.mu.Unlock()

	b.publish(changed)
}

// RecordFailure counts a formation failure, opening the breaker at the
// threshold. A half-open failure re-opens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	b.consecutiveFailures++
	var changed event.Event
	switch {
	case b.state == BreakerHalfOpen:
		b.openedAt = b.now()
		changed = b.setStateLocked(BreakerOpen)
	case b.state == BreakerClosed && b.consecutiveFailures >= b.failureThreshold:
		b.openedAt = b.now()
		changed = b.setStateLocked(BreakerOpen)
	}
	b.mu.Unlock()

	b.publish(changed)
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// setStateLocked changes state and returns the event to publish after
// the lock is dropped; the bus is synchronous.
func (b *Breaker) setStateLocked(to BreakerState) event.Event {
	from := b.state
	b.state = to
	if from == to {
		return nil
	}
	return event.NewBreakerStateEvent(from.String(), to.String())
}

func (b *Breaker) publish(e event.Event) {
	if b.bus != nil && e != nil {
		b.bus.Publish(e)
	}
}
