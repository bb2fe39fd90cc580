// Package domain holds the persistent records and fixed policy of one
// battleship game instance: the immutable game configuration, the mutable
// phase/turn state, and the two player records with their board commitments.
//
// The package is pure data plus invariant helpers; orchestration lives in the
// engine package and all I/O behind the storage substrate.
package domain
