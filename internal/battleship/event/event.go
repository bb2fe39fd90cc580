// Package event defines the transition log vocabulary: flat key/value
// attributes and typed signals. Hosting environments index transitions by
// these exact names, so they are part of the engine's public contract.
package event

import "github.com/louisbranch/broadside/internal/battleship/domain"

// Attribute is one key/value pair on a transition.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attribute keys emitted by engine operations.
const (
	KeyAction       = "action"
	KeyStake        = "stake"
	KeyWinner       = "winner"
	KeyPayout       = "payout"
	KeyFeeRetained  = "fee_retained"
	KeyMintedReward = "minted_reward"
)

// Action attribute values, one per state-mutating operation that emits a log.
const (
	ActionStartGame    = "start_game"
	ActionPlay         = "play"
	ActionTimeoutCheck = "timeout_check"
)

// Signal types. ShipSank and GameWon carry the revealed cell under the key
// "sank"; ShipMissed carries it under "missed". A game won by forfeit carries
// the no-field sentinel.
const (
	TypeShipSank   = "ship_sank"
	TypeShipMissed = "ship_missed"
	TypeGameWon    = "game_won"
)

// Signal is a typed announcement about a board cell.
type Signal struct {
	Type  string       `json:"type"`
	Field domain.Coord `json:"field"`
}

// FieldKey returns the attribute key the signal's field is logged under.
func (s Signal) FieldKey() string {
	if s.Type == TypeShipMissed {
		return "missed"
	}
	return "sank"
}

// ShipSank announces a proven hit at field.
func ShipSank(field domain.Coord) Signal {
	return Signal{Type: TypeShipSank, Field: field}
}

// ShipMissed announces a proven miss at field.
func ShipMissed(field domain.Coord) Signal {
	return Signal{Type: TypeShipMissed, Field: field}
}

// GameWon announces the end of the game. field is the winning shot, or the
// no-field sentinel for a forfeit.
func GameWon(field domain.Coord) Signal {
	return Signal{Type: TypeGameWon, Field: field}
}
