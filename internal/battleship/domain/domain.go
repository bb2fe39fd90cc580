package domain

import (
	"encoding/json"
	"fmt"
)

// Address identifies a participant or external collaborator. It is treated as
// an opaque, already-validated string; identity validation happens outside
// the engine.
type Address string

// Coord addresses one board cell. It serializes as a [row, col] tuple to stay
// compatible with the original wire shape.
type Coord struct {
	Row int
	Col int
}

// NoField is the sentinel coordinate used when a game ends without a winning
// shot (timeout adjudication).
var NoField = Coord{Row: -1, Col: -1}

// MarshalJSON encodes the coordinate as a two-element array.
func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.Row, c.Col})
}

// UnmarshalJSON decodes a two-element array into the coordinate.
func (c *Coord) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode coord: %w", err)
	}
	c.Row, c.Col = pair[0], pair[1]
	return nil
}

// String renders the coordinate the way transition signals report it.
func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.Row, c.Col)
}

// GameConfig is the immutable per-game configuration, created once at
// instantiation and never mutated.
type GameConfig struct {
	// TokenAddress references the external token ledger holding stakes.
	TokenAddress Address `json:"token_address"`
	// Ships is the number of ship cells each board commits to; sinking this
	// many cells on a board wins the game.
	Ships int `json:"ships"`
}

// GameState is the mutable phase and turn state. Invariant: finished implies
// started, and Turn names one of the two registered players while the game is
// active.
type GameState struct {
	Started  bool    `json:"started"`
	Finished bool    `json:"finished"`
	Turn     Address `json:"turn"`
	// LastTurnTime is the Unix-seconds timestamp of the last accepted move
	// (or of game start). Zero until the game begins.
	LastTurnTime int64 `json:"last_turn_time"`
}

// Board is a player's committed board: the Merkle root binding the hidden
// cell grid, and the cells publicly proven as hits so far. The commitment is
// opaque to the engine; it is only ever compared for proof verification.
type Board struct {
	Commitment string  `json:"commitment"`
	Sank       []Coord `json:"sank"`
}

// HasSunk reports whether field was already proven as a hit on this board.
func (b Board) HasSunk(field Coord) bool {
	for _, c := range b.Sank {
		if c == field {
			return true
		}
	}
	return false
}

// Player is one registered participant with their escrowed stake and board.
type Player struct {
	Address Address `json:"address"`
	Stake   uint64  `json:"stake"`
	Board   Board   `json:"board"`
}
