package data

import "wmac/internal/utils"

// Sequence numbers live in a 12-bit space and wrap modulo 4096.
// Comparison sign-extends the 12-bit difference, so a sequence number
// ahead of another by up to 2047 compares greater. The comparison is
// only unambiguous while live entries span less than half the space,
// which holds because negotiated windows never exceed
// utils.MaxBAWindow.

// SeqCompare returns a negative value if a is behind b, zero if equal,
// and a positive value if a is ahead of b under wraparound ordering.
func SeqCompare(a, b uint16) int {
	d := int16((a-b)<<4) >> 4
	return int(d)
}

// SeqAdd returns a advanced by n within the sequence space.
func SeqAdd(a uint16, n uint16) uint16 {
	return (a + n) & utils.SeqMask
}

// SeqDiff returns the forward distance from b to a within the
// sequence space.
func SeqDiff(a, b uint16) uint16 {
	return (a - b) & utils.SeqMask
}

// IsSeqValid reports whether seq lies within [head, head+window) under
// wraparound arithmetic. Sequence numbers behind head (already
// delivered or skipped) and numbers at or past the window tail are
// both invalid.
func IsSeqValid(head, seq, window uint16) bool {
	return SeqDiff(seq, head) < window
}
