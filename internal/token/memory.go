package token

import (
	"context"
	"fmt"
	"sync"

	"github.com/louisbranch/broadside/internal/battleship/domain"
)

// InMemoryLedger is a reference Ledger with real balance accounting. It backs
// integration tests and the demo server; production deployments talk to an
// actual token ledger instead.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[domain.Address]uint64
	escrow   uint64
	minted   uint64
}

// NewInMemoryLedger creates a ledger with the given opening balances.
func NewInMemoryLedger(balances map[domain.Address]uint64) *InMemoryLedger {
	ledger := &InMemoryLedger{balances: make(map[domain.Address]uint64, len(balances))}
	for addr, amount := range balances {
		ledger.balances[addr] = amount
	}
	return ledger
}

// DebitToEscrow moves amount from owner into escrow.
func (l *InMemoryLedger) DebitToEscrow(ctx context.Context, owner domain.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[owner]
	if balance < amount {
		return fmt.Errorf("insufficient balance for %s: have %d, need %d", owner, balance, amount)
	}
	l.balances[owner] = balance - amount
	l.escrow += amount
	return nil
}

// CreditFromEscrow moves amount from escrow to recipient.
func (l *InMemoryLedger) CreditFromEscrow(ctx context.Context, recipient domain.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.escrow < amount {
		return fmt.Errorf("insufficient escrow: have %d, need %d", l.escrow, amount)
	}
	l.escrow -= amount
	l.balances[recipient] += amount
	return nil
}

// Mint issues amount of new supply to recipient.
func (l *InMemoryLedger) Mint(ctx context.Context, recipient domain.Address, amount uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[recipient] += amount
	l.minted += amount
	return nil
}

// Balance returns the current balance of addr.
func (l *InMemoryLedger) Balance(addr domain.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[addr]
}

// Escrow returns the amount currently held in escrow, including any
// settlement dust stranded by fee flooring.
func (l *InMemoryLedger) Escrow() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.escrow
}

// Minted returns the total supply issued through Mint.
func (l *InMemoryLedger) Minted() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minted
}
