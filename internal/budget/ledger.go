package budget

import (
	"fmt"
	"sync"

	"github.com/Iron-Ham/crescendo/internal/errors"
)

// Ledger is the budget port: atomic reservation, release, and spend
// against a shared balance.
type Ledger interface {
	// Reserve conditionally sets aside amount, failing with
	// ErrBudgetAuthorization if the remaining balance is insufficient.
	Reserve(amount float64) error

	// Release returns a previously reserved amount to the pool.
	// Releasing more than is reserved releases what is left.
	Release(amount float64)

	// Spend converts reservation into recorded cost. With the hard
	// stop enabled, a spend that would push total cost past the
	// ledger's balance fails with ErrBudgetExceeded.
	Spend(amount float64) error

	// Remaining returns the unreserved, unspent balance.
	Remaining() float64

	// Spent returns the total recorded cost.
	Spent() float64
}

// AtomicLedger is the standard Ledger: a mutex-guarded balance.
type AtomicLedger struct {
	mu       sync.Mutex
	total    float64
	reserved float64
	spent    float64
	hardStop bool
}

// NewLedger creates a ledger with the given total balance. hardStop
// controls whether Spend refuses to exceed the balance.
func NewLedger(total float64, hardStop bool) *AtomicLedger {
	return &AtomicLedger{total: total, hardStop: hardStop}
}

// Reserve conditionally sets aside amount.
func (l *AtomicLedger) Reserve(amount float64) error {
	if amount < 0 {
		return errors.NewValidationError("amount", "must be non-negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.total - l.reserved - l.spent
	if amount > remaining {
		return errors.NewBudgetError(
			fmt.Sprintf("reserve %.2f refused", amount), errors.ErrBudgetAuthorization,
		).WithAmounts(amount, remaining)
	}
	l.reserved += amount
	return nil
}

// Release returns reservation to the pool, clamped at what is held.
func (l *AtomicLedger) Release(amount float64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.reserved {
		amount = l.reserved
	}
	l.reserved -= amount
}

// Spend records cost, consuming reservation first.
func (l *AtomicLedger) Spend(amount float64) error {
	if amount < 0 {
		return errors.NewValidationError("amount", "must be non-negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hardStop && l.spent+amount > l.total {
		return errors.NewBudgetError(
			fmt.Sprintf("spend %.2f exceeds hard budget", amount), errors.ErrBudgetExceeded,
		).WithAmounts(amount, l.total-l.spent)
	}
	l.spent += amount
	if amount > l.reserved {
		l.reserved = 0
	} else {
		l.reserved -= amount
	}
	return nil
}

// Remaining returns the unreserved, unspent balance.
func (l *AtomicLedger) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total - l.reserved - l.spent
}

// Spent returns total recorded cost.
func (l *AtomicLedger) Spent() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spent
}
