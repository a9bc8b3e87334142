package utils

import "time"

// Protocol constants
const (
	// Sequence number space (12-bit, 802.11-style)
	SeqModulus = 4096
	SeqMask    = SeqModulus - 1

	// Traffic identifiers
	NumTIDs = 8

	// Block-ack window bounds. A peer never has more than MaxBAWindow
	// frames in flight, which keeps live sequence numbers within half
	// the sequence space and the wraparound comparison unambiguous.
	MaxBAWindow     = 256
	DefaultBAWindow = 64

	// Reorder timeout clamps
	MinReorderTimeout     = 10 * time.Millisecond
	MaxReorderTimeout     = 1 * time.Second
	DefaultReorderTimeout = 100 * time.Millisecond

	// Aggregation defaults
	DefaultMaxAggFrames    = 64
	DefaultMaxAggBytes     = 65535
	DefaultAggFlushTimeout = 10 * time.Millisecond

	// Timer periods
	DefaultAggTimerPeriod     = 5 * time.Millisecond
	DefaultReorderTimerPeriod = 25 * time.Millisecond

	// Session management
	DefaultSessionTimeout = 5 * time.Second
	SessionSweepDivisor   = 2
)

// Feature constants
var (
	// All supported engine features
	SupportedFeatures = []string{
		"aggregation",
		"reordering",
		"block_ack",
		"multi_link",
	}
)

// GetSupportedFeatures returns the list of supported engine features
func GetSupportedFeatures() []string {
	// Return a copy to prevent modification
	features := make([]string, len(SupportedFeatures))
	copy(features, SupportedFeatures)
	return features
}

// IsFeatureSupported checks if a feature is supported
func IsFeatureSupported(feature string) bool {
	for _, supported := range SupportedFeatures {
		if supported == feature {
			return true
		}
	}
	return false
}
