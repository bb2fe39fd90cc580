package proof

import (
	"errors"
	"strconv"
)

// Tree is a SHA-256 Merkle tree over boolean cell values, stored
// level-by-level from leaves to root. Odd levels are padded by duplicating
// the trailing digest, matching the commitment layout players produce
// off-engine.
type Tree struct {
	levels [][]string
}

// NewTree builds a tree committing to the given cells in order.
func NewTree(cells []bool) (*Tree, error) {
	if len(cells) == 0 {
		return nil, errors.New("at least one cell is required")
	}

	leaves := make([]string, 0, len(cells))
	for _, cell := range cells {
		leaves = append(leaves, hashHex(strconv.FormatBool(cell)))
	}

	levels := [][]string{leaves}
	for current := leaves; len(current) > 1; {
		if len(current)%2 != 0 {
			current = append(current, current[len(current)-1])
			levels[len(levels)-1] = current
		}
		next := make([]string, 0, len(current)/2)
		for i := 0; i < len(current); i += 2 {
			next = append(next, hashHex(current[i]+current[i+1]))
		}
		levels = append(levels, next)
		current = next
	}

	return &Tree{levels: levels}, nil
}

// Root returns the hex-encoded commitment root.
func (t *Tree) Root() string {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Prove returns the authentication path for the cell at index. Folding the
// path per Verify recomputes Root.
func (t *Tree) Prove(index int) ([]Step, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, errors.New("cell index out of range")
	}

	var path []Step
	cur := index
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := cur ^ 1
		path = append(path, Step{
			Hash:   level[sibling],
			IsLeft: sibling < cur,
		})
		cur /= 2
	}
	return path, nil
}
