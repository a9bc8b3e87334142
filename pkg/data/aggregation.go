package data

import (
	"sync"
	"time"

	"wmac/internal/utils"
)

// AggregationConfig holds the three independent release thresholds of
// an aggregation context.
type AggregationConfig struct {
	MaxFrames    int
	MaxBytes     int
	FlushTimeout time.Duration
}

// DefaultAggregationConfig returns default aggregation thresholds
func DefaultAggregationConfig() *AggregationConfig {
	return &AggregationConfig{
		MaxFrames:    utils.DefaultMaxAggFrames,
		MaxBytes:     utils.DefaultMaxAggBytes,
		FlushTimeout: utils.DefaultAggFlushTimeout,
	}
}

// AggregationStats contains statistics about one aggregation context
type AggregationStats struct {
	TID              uint8
	FramesSubmitted  uint64
	BytesSubmitted   uint64
	FramesDrained    uint64
	CapacityDrops    uint64
	DuplicateDrops   uint64
	TimerFlushes     uint64
	ThresholdFlushes uint64
	FramesPerLink    map[uint8]uint64
}

// SubmitOutcome tells the caller what follow-up a successful submit
// requires.
type SubmitOutcome struct {
	// ArmTimer is set when this submit made the context go from empty
	// to non-empty and no flush timer is currently scheduled for it.
	ArmTimer bool
	// ReadyBatch is set when a frame-count or byte-size threshold
	// completed a batch; the caller should flush and drain it.
	ReadyBatch bool
}

// AggregationContext accumulates outbound frames for one TID and
// releases them to transmission as a batch when a frame-count,
// byte-size or time threshold is hit. Accepted frames never disappear:
// every entry is eventually drained, and overflowing submits are
// rejected with a counted CapacityExceeded, never silently truncated.
//
// All operations serialize on the context mutex; the producer path and
// the per-TID flush timer contend only here. Contexts for different
// TIDs share no state.
type AggregationContext struct {
	tid              uint8
	pending          *SequenceIndex
	ready            []*FrameEntry
	accumulatedBytes int

	maxFrames    int
	maxBytes     int
	flushTimeout time.Duration

	active     bool
	timerArmed bool

	stats  AggregationStats
	logger DataLogger
	mutex  sync.Mutex
}

// NewAggregationContext creates an active aggregation context for one
// TID.
func NewAggregationContext(tid uint8, config *AggregationConfig, logger DataLogger) *AggregationContext {
	if config == nil {
		config = DefaultAggregationConfig()
	}

	return &AggregationContext{
		tid:          tid,
		pending:      NewSequenceIndex(),
		maxFrames:    config.MaxFrames,
		maxBytes:     config.MaxBytes,
		flushTimeout: config.FlushTimeout,
		active:       true,
		stats: AggregationStats{
			TID:           tid,
			FramesPerLink: make(map[uint8]uint64),
		},
		logger: logger,
	}
}

// Submit accepts an outbound frame into the pending set. It fails with
// CapacityExceeded when the frame-count or byte budget would be
// violated; the caller decides whether to retry after a drain, requeue
// or drop.
func (ac *AggregationContext) Submit(entry *FrameEntry) (SubmitOutcome, error) {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	var out SubmitOutcome

	if !ac.active {
		return out, utils.NewInvalidStateError("submit", "inactive")
	}

	if ac.pending.Len() >= ac.maxFrames || ac.accumulatedBytes+entry.Len() > ac.maxBytes {
		ac.stats.CapacityDrops++
		if ac.logger != nil {
			ac.logger.Debug("Aggregation submit rejected on capacity",
				"tid", ac.tid, "pending", ac.pending.Len(), "bytes", ac.accumulatedBytes)
		}
		return out, utils.NewCapacityExceededError(ac.tid,
			ac.pending.Len(), ac.maxFrames, ac.accumulatedBytes, ac.maxBytes)
	}

	if err := ac.pending.Insert(entry); err != nil {
		ac.stats.DuplicateDrops++
		return out, err
	}

	ac.accumulatedBytes += entry.Len()
	ac.stats.FramesSubmitted++
	ac.stats.BytesSubmitted += uint64(entry.Len())
	ac.stats.FramesPerLink[entry.LinkID]++

	if !ac.timerArmed {
		ac.timerArmed = true
		out.ArmTimer = true
	}

	if ac.pending.Len() >= ac.maxFrames || ac.accumulatedBytes >= ac.maxBytes {
		// A threshold completed the batch. The caller flushes and
		// drains; until it does, further submits fail on capacity.
		ac.stats.ThresholdFlushes++
		out.ReadyBatch = true
	}

	return out, nil
}

// FlushExpired moves every pending entry older than the flush timeout
// into the ready list, in ascending sequence order. It reports whether
// the flush timer should stay scheduled; the disarm decision is taken
// under the same lock the producer path uses, so a frame arriving as
// the timer decides "no more pending" either sees the timer still
// armed or arms it itself.
func (ac *AggregationContext) FlushExpired(now time.Time) (flushed int, rearm bool) {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	if !ac.active {
		ac.timerArmed = false
		return 0, false
	}

	var expired []uint16
	ac.pending.Ascend(func(entry *FrameEntry) bool {
		if entry.Age(now) >= ac.flushTimeout {
			expired = append(expired, entry.SequenceNumber)
		}
		return true
	})

	for _, seq := range expired {
		entry, ok := ac.pending.Remove(seq)
		if !ok {
			continue
		}
		ac.accumulatedBytes -= entry.Len()
		ac.ready = append(ac.ready, entry)
		flushed++
	}

	if flushed > 0 {
		ac.stats.TimerFlushes++
	}

	rearm = ac.pending.Len() > 0
	if !rearm {
		ac.timerArmed = false
	}
	return flushed, rearm
}

// FlushAll moves every pending entry into the ready list regardless of
// age. Used on engine stop and on-demand TID flushes.
func (ac *AggregationContext) FlushAll() int {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	return ac.releaseAllLocked()
}

func (ac *AggregationContext) releaseAllLocked() int {
	entries := ac.pending.Drain()
	ac.ready = append(ac.ready, entries...)
	ac.accumulatedBytes = 0
	return len(entries)
}

// DrainReady atomically empties and returns the ready list, handing
// ownership of the entries to the caller. This is the sole way frames
// leave the context.
func (ac *AggregationContext) DrainReady() []*FrameEntry {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	entries := ac.ready
	ac.ready = nil
	ac.stats.FramesDrained += uint64(len(entries))
	return entries
}

// Deactivate flushes all pending frames to ready and rejects further
// submits.
func (ac *AggregationContext) Deactivate() int {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	ac.active = false
	ac.timerArmed = false
	return ac.releaseAllLocked()
}

// PendingCount returns the number of frames awaiting release.
func (ac *AggregationContext) PendingCount() int {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	return ac.pending.Len()
}

// ReadyCount returns the number of frames awaiting drain.
func (ac *AggregationContext) ReadyCount() int {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	return len(ac.ready)
}

// AccumulatedBytes returns the byte total of the pending set.
func (ac *AggregationContext) AccumulatedBytes() int {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	return ac.accumulatedBytes
}

// GetStats returns a copy of the context statistics.
func (ac *AggregationContext) GetStats() *AggregationStats {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	statsCopy := ac.stats
	statsCopy.FramesPerLink = make(map[uint8]uint64, len(ac.stats.FramesPerLink))
	for link, count := range ac.stats.FramesPerLink {
		statsCopy.FramesPerLink[link] = count
	}
	return &statsCopy
}
