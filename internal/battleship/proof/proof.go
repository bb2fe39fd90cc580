// Package proof implements the commitment scheme used to reveal single board
// cells: SHA-256 Merkle trees over stringified cell values, with hex-encoded
// digests compared as opaque strings.
//
// Verify is the only piece the engine depends on; Tree exists so tooling and
// tests can build real commitments and authentication paths.
package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Step is one element of an authentication path: a sibling digest and its
// position relative to the running hash.
type Step struct {
	Hash   string `json:"hash"`
	IsLeft bool   `json:"is_left"`
}

// Verify recomputes the root from a claimed cell value and its
// authentication path and compares it to the committed root.
//
// It is pure: a false return carries no further detail, and the caller must
// reject the enclosing operation without mutating state. An empty proof is
// valid only for a degenerate one-leaf tree; a proof of the wrong length
// simply fails to match, which is a normal verification failure rather than
// a distinct error.
func Verify(value bool, proof []Step, root string) bool {
	current := hashHex(strconv.FormatBool(value))
	for _, step := range proof {
		if step.IsLeft {
			current = hashHex(step.Hash + current)
			continue
		}
		current = hashHex(current + step.Hash)
	}
	return current == root
}

func hashHex(item string) string {
	sum := sha256.Sum256([]byte(item))
	return hex.EncodeToString(sum[:])
}
