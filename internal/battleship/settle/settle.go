// Package settle holds the escrow and settlement arithmetic that turns a
// finished game into token ledger instructions. All arithmetic is checked;
// percentages floor toward zero so the only imprecision is dust retained in
// escrow, never over-payment.
package settle

import (
	"math/bits"

	"github.com/louisbranch/broadside/internal/battleship/domain"
	"github.com/louisbranch/broadside/internal/token"
)

// Settlement is the outcome of splitting the combined stakes of a finished
// game. Payout and Fee always sum to exactly the combined stake; Reward is
// newly minted on top and never drawn from escrow.
type Settlement struct {
	Payout uint64
	Fee    uint64
	Reward uint64
}

// EscrowInstructions returns one debit-to-escrow instruction per player, in
// the order given. Callers apply them as a unit: both debits or neither.
func EscrowInstructions(players []domain.Player) []token.Instruction {
	instrs := make([]token.Instruction, 0, len(players))
	for _, p := range players {
		instrs = append(instrs, token.Instruction{
			Op:     token.OpDebitToEscrow,
			Owner:  p.Address,
			Amount: p.Stake,
		})
	}
	return instrs
}

// Settle splits the combined stakes into payout, retained fee, and minted
// reward. fee = floor(total*feePercent/100), payout = total-fee,
// reward = floor(payout*rewardPercent/100). Returns ErrOverflow when the
// stakes cannot be added in 64 bits.
func Settle(winnerStake, loserStake, feePercent, rewardPercent uint64) (Settlement, error) {
	total, carry := bits.Add64(winnerStake, loserStake, 0)
	if carry != 0 {
		return Settlement{}, domain.ErrOverflow
	}
	fee := percentOf(total, feePercent)
	payout, borrow := bits.Sub64(total, fee, 0)
	if borrow != 0 {
		return Settlement{}, domain.ErrOverflow
	}
	return Settlement{
		Payout: payout,
		Fee:    fee,
		Reward: percentOf(payout, rewardPercent),
	}, nil
}

// WinnerInstructions returns the ledger instructions paying out a settlement:
// the escrow payout followed by the minted reward.
func WinnerInstructions(winner domain.Address, s Settlement) []token.Instruction {
	return []token.Instruction{
		{Op: token.OpCreditFromEscrow, Recipient: winner, Amount: s.Payout},
		{Op: token.OpMint, Recipient: winner, Amount: s.Reward},
	}
}

// percentOf computes floor(amount*percent/100) through a 128-bit
// intermediate so the product cannot overflow.
func percentOf(amount, percent uint64) uint64 {
	hi, lo := bits.Mul64(amount, percent)
	quo, _ := bits.Div64(hi, lo, 100)
	return quo
}
