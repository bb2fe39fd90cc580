// Package id generates compact random identifiers.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier: a UUIDv4 encoded as lowercase base32
// without padding, 26 characters long. The encoding keeps ids URL- and
// filename-safe while preserving the full 128 bits of randomness.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}
