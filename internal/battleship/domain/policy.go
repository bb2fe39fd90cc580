package domain

import "time"

// Fixed policy constants. These are protocol parameters, not runtime
// configuration.
const (
	// MinStake is the smallest stake either player may post.
	MinStake uint64 = 50
	// FeePercent of the total escrow is retained at settlement.
	FeePercent uint64 = 5
	// RewardPercent of the payout is newly minted to the winner.
	RewardPercent uint64 = 1
	// TurnDuration is how long the player on turn has to move before the
	// opponent may claim a forfeit.
	TurnDuration = 60 * time.Second
)
