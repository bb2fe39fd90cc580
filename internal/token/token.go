// Package token defines the external fungible-token collaborator the engine
// issues escrow and payout instructions to. The engine never holds balances
// itself; it only instructs the ledger and treats any ledger error as fatal
// to the enclosing transition.
package token

import (
	"context"
	"fmt"

	"github.com/louisbranch/broadside/internal/battleship/domain"
)

// Op names one of the ledger operations the engine may instruct.
type Op string

const (
	// OpDebitToEscrow moves a player's stake into the engine's escrow.
	OpDebitToEscrow Op = "debit_to_escrow"
	// OpCreditFromEscrow moves settled payout from escrow to the winner.
	OpCreditFromEscrow Op = "credit_from_escrow"
	// OpMint issues new supply to the winner as the reward component.
	OpMint Op = "mint"
)

// Instruction is one ledger operation a transition wants applied. It is a
// value: emitting an instruction does not move funds until a Ledger applies
// it.
type Instruction struct {
	Op        Op             `json:"op"`
	Owner     domain.Address `json:"owner,omitempty"`
	Recipient domain.Address `json:"recipient,omitempty"`
	Amount    uint64         `json:"amount"`
}

// Ledger is the collaborator contract. Implementations custody real
// balances; failure of any call aborts the enclosing engine transition.
type Ledger interface {
	// DebitToEscrow moves amount from owner into escrow. Fails when owner
	// lacks balance or allowance.
	DebitToEscrow(ctx context.Context, owner domain.Address, amount uint64) error
	// CreditFromEscrow moves amount from escrow to recipient.
	CreditFromEscrow(ctx context.Context, recipient domain.Address, amount uint64) error
	// Mint issues amount of new supply to recipient. Requires mint rights
	// bound to the engine's account.
	Mint(ctx context.Context, recipient domain.Address, amount uint64) error
}

// Apply dispatches one instruction against a ledger.
func Apply(ctx context.Context, ledger Ledger, instr Instruction) error {
	switch instr.Op {
	case OpDebitToEscrow:
		return ledger.DebitToEscrow(ctx, instr.Owner, instr.Amount)
	case OpCreditFromEscrow:
		return ledger.CreditFromEscrow(ctx, instr.Recipient, instr.Amount)
	case OpMint:
		return ledger.Mint(ctx, instr.Recipient, instr.Amount)
	default:
		return fmt.Errorf("unknown ledger op %q", instr.Op)
	}
}
