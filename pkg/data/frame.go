package data

import (
	"time"

	"wmac/internal/utils"
)

// FrameEntry binds a frame payload to its sequence number, traffic
// class, originating link and enqueue timestamp. An entry is
// exclusively owned by whichever context currently holds it (pending
// set, ready list or reorder tree); moves between contexts transfer
// ownership, they never duplicate the entry.
type FrameEntry struct {
	Payload        []byte
	SequenceNumber uint16
	TID            uint8
	LinkID         uint8
	EnqueuedAt     time.Time
}

// NewFrameEntry constructs a frame entry, taking ownership of the
// payload slice. The enqueue timestamp is taken from the monotonic
// clock at construction time.
func NewFrameEntry(tid, linkID uint8, seq uint16, payload []byte) (*FrameEntry, error) {
	if tid >= utils.NumTIDs {
		return nil, utils.NewInvalidTIDError(tid)
	}
	if seq >= utils.SeqModulus {
		return nil, utils.NewAllocationFailedError("sequence number outside 12-bit space")
	}
	if payload == nil {
		return nil, utils.NewAllocationFailedError("frame payload is nil")
	}

	return &FrameEntry{
		Payload:        payload,
		SequenceNumber: seq,
		TID:            tid,
		LinkID:         linkID,
		EnqueuedAt:     time.Now(),
	}, nil
}

// Len returns the payload length in bytes.
func (e *FrameEntry) Len() int {
	return len(e.Payload)
}

// Age returns how long the entry has been enqueued relative to now.
func (e *FrameEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.EnqueuedAt)
}
