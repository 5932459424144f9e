// Package ledger tracks the account's quote-currency funds: the available
// balance that opens draw on and the cumulative realized P&L from closes.
// All state is in memory; nothing is persisted.
package ledger

import (
	"fmt"
	"sync"

	"github.com/alanyoungcy/spotdesk/internal/domain"
)

// Ledger is the single balance account. One mutex guards all fields and
// every operation is one critical section, so a check and the mutation it
// authorizes can never be split by a concurrent caller.
type Ledger struct {
	mu sync.Mutex

	available float64
	realized  float64
	initial   float64
	currency  string
}

// New creates a ledger holding the initial balance.
func New(initialBalance float64, currency string) *Ledger {
	return &Ledger{
		available: initialBalance,
		initial:   initialBalance,
		currency:  currency,
	}
}

// Reserve removes amount from the available balance, failing when the funds
// are not there. Two concurrent reserves can never both succeed against the
// same funds.
func (l *Ledger) Reserve(amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.available {
		return fmt.Errorf("ledger: reserve %.8f %s, available %.8f: %w",
			amount, l.currency, l.available, domain.ErrInsufficientBalance)
	}
	l.available -= amount
	return nil
}

// Release returns previously reserved funds to the available balance.
func (l *Ledger) Release(amount float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.available += amount
}

// ApplyPnL settles a realized profit or loss into the balance. The available
// balance is floored at zero: a loss larger than the account (possible on
// shorts) empties it rather than driving it negative.
func (l *Ledger) ApplyPnL(delta float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.realized += delta
	l.available += delta
	if l.available < 0 {
		l.available = 0
	}
}

// Snapshot returns a consistent copy of the ledger state.
func (l *Ledger) Snapshot() domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()

	return domain.Balance{
		Available:   l.available,
		Currency:    l.currency,
		RealizedPnL: l.realized,
		Initial:     l.initial,
	}
}
