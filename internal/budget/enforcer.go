package budget

import (
	"sync"

	"github.com/Iron-Ham/crescendo/internal/config"
	"github.com/Iron-Ham/crescendo/internal/event"
	"github.com/Iron-Ham/crescendo/internal/logging"
)

// TeamBudget is the pre-authorized split for one team: a lead share, an
// even per-member share, and a contingency reserve.
type TeamBudget struct {
	// Total is the full amount reserved for the team.
	Total float64 `json:"total"`

	// Lead is the lead's share.
	Lead float64 `json:"lead"`

	// PerMember is each member's even share.
	PerMember float64 `json:"per_member"`

	// Contingency is held back for recovery actions.
	Contingency float64 `json:"contingency"`
}

// Enforcer layers per-item bookkeeping on the Ledger so reservations
// can be released idempotently per work item.
type Enforcer struct {
	mu           sync.Mutex
	ledger       Ledger
	shares       config.TeamConfig
	reservations map[string]float64 // item ID -> outstanding reservation

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures an Enforcer.
type Option func(*Enforcer)

// WithBus attaches an event bus for budget events.
func WithBus(bus *event.Bus) Option {
	return func(e *Enforcer) {
		e.bus = bus
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(e *Enforcer) {
		e.logger = logger
	}
}

// NewEnforcer creates an Enforcer over the given ledger. The team
// config supplies the lead/member/contingency shares.
func NewEnforcer(ledger Ledger, shares config.TeamConfig, opts ...Option) *Enforcer {
	e := &Enforcer{
		ledger:       ledger,
		shares:       shares,
		reservations: make(map[string]float64),
		logger:       logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reserve sets aside amount for the item. Fails without side effects
// when the ledger refuses.
func (e *Enforcer) Reserve(itemID string, amount float64) error {
	if err := e.ledger.Reserve(amount); err != nil {
		if e.bus != nil {
			e.bus.Publish(event.NewBudgetExhaustedEvent(itemID, e.ledger.Remaining(), amount))
		}
		return err
	}

	e.mu.Lock()
	e.reservations[itemID] += amount
	e.mu.Unlock()

	if e.bus != nil {
		e.bus.Publish(event.NewBudgetReservedEvent(itemID, amount))
	}
	e.logger.Debug("budget reserved", "item_id", itemID, "amount", amount)
	return nil
}

// Spend records cost against the item's reservation.
func (e *Enforcer) Spend(itemID string, amount float64) error {
	if err := e.ledger.Spend(amount); err != nil {
		return err
	}

	e.mu.Lock()
	held := e.reservations[itemID]
	if amount >= held {
		delete(e.reservations, itemID)
	} else {
		e.reservations[itemID] = held - amount
	}
	e.mu.Unlock()
	return nil
}

// Release returns the item's outstanding reservation to the pool and
// reports the amount freed. Idempotent: a second release for the same
// item frees nothing.
func (e *Enforcer) Release(itemID string) float64 {
	e.mu.Lock()
	held := e.reservations[itemID]
	delete(e.reservations, itemID)
	e.mu.Unlock()

	if held <= 0 {
		return 0
	}
	e.ledger.Release(held)

	if e.bus != nil {
		e.bus.Publish(event.NewBudgetReleasedEvent(itemID, held))
	}
	e.logger.Debug("budget released", "item_id", itemID, "amount", held)
	return held
}

// Reserved returns the item's outstanding reservation.
func (e *Enforcer) Reserved(itemID string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reservations[itemID]
}

// Remaining returns the ledger's unreserved, unspent balance.
func (e *Enforcer) Remaining() float64 {
	return e.ledger.Remaining()
}

// Split divides a team's total budget per the configured shares. The
// member share is split evenly; with zero members it folds into
// contingency.
func (e *Enforcer) Split(total float64, members int) TeamBudget {
	b := TeamBudget{
		Total:       total,
		Lead:        total * e.shares.LeadShare,
		Contingency: total * e.shares.ContingencyShare,
	}
	memberPool := total * e.shares.MemberShare
	if members > 0 {
		b.PerMember = memberPool / float64(members)
	} else {
		b.Contingency += memberPool
	}
	return b
}
