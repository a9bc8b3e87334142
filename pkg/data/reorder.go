package data

import (
	"sync"
	"time"

	"wmac/internal/utils"
)

// ReorderStats contains statistics about one reorder context
type ReorderStats struct {
	TID             uint8
	FramesAdmitted  uint64
	FramesDrained   uint64
	InOrderReleases uint64
	TimeoutReleases uint64
	OutOfWindowDrops uint64
	DuplicateDrops  uint64
	FramesPerLink   map[uint8]uint64
}

// ReorderContext reassembles inbound frames for one TID into a
// strictly increasing sequence before delivery. It maintains a moving
// window [headSeq, headSeq+windowSize) whose parameters are owned by
// the block-ack session for this TID; the context is inactive until a
// session configures it.
//
// headSeq only advances forward (mod 4096) and only past sequence
// numbers that have been released in order or explicitly skipped by
// timeout. tailSeq is the highest sequence number ever admitted.
//
// All operations serialize on the context mutex. Once Deactivate has
// begun, further Admit calls fail with InvalidState rather than racing
// the teardown flush.
type ReorderContext struct {
	tid   uint8
	tree  *SequenceIndex
	ready []*FrameEntry

	headSeq    uint16
	tailSeq    uint16
	windowSize uint16
	timeout    time.Duration

	active     bool
	timerArmed bool

	stats  ReorderStats
	logger DataLogger
	mutex  sync.Mutex
}

// NewReorderContext creates an inactive reorder context for one TID.
// It accepts no frames until Configure installs window parameters.
func NewReorderContext(tid uint8, logger DataLogger) *ReorderContext {
	return &ReorderContext{
		tid:  tid,
		tree: NewSequenceIndex(),
		stats: ReorderStats{
			TID:           tid,
			FramesPerLink: make(map[uint8]uint64),
		},
		logger: logger,
	}
}

// Configure installs the window parameters negotiated by a block-ack
// session and activates the context. Any leftovers from a previous
// session are flushed to the ready list in order first, so no accepted
// frame is ever lost. Returns the number of leftover frames flushed.
func (rc *ReorderContext) Configure(ssn, windowSize uint16, timeout time.Duration) int {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	flushed := rc.flushOlderLocked(time.Now(), 0)

	rc.headSeq = ssn & utils.SeqMask
	rc.tailSeq = rc.headSeq
	rc.windowSize = windowSize
	rc.timeout = timeout
	rc.active = true

	return flushed
}

// Admit validates an inbound frame against the window and inserts it
// into the reorder tree. Frames behind headSeq (already delivered or
// skipped) and frames at or past the window tail fail with
// OutOfWindow; an occupied slot fails with DuplicateFrame. Both are
// counted and dropped, never fatal.
func (rc *ReorderContext) Admit(entry *FrameEntry) (armTimer bool, err error) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if !rc.active {
		return false, utils.NewInvalidStateError("admit", "inactive")
	}

	seq := entry.SequenceNumber
	if !IsSeqValid(rc.headSeq, seq, rc.windowSize) {
		rc.stats.OutOfWindowDrops++
		if rc.logger != nil {
			rc.logger.Debug("Frame outside reorder window dropped",
				"tid", rc.tid, "seq", seq, "head", rc.headSeq)
		}
		return false, utils.NewOutOfWindowError(seq, rc.headSeq, rc.windowSize)
	}

	if err := rc.tree.Insert(entry); err != nil {
		rc.stats.DuplicateDrops++
		return false, err
	}

	if SeqCompare(seq, rc.tailSeq) > 0 {
		rc.tailSeq = seq
	}

	rc.stats.FramesAdmitted++
	rc.stats.FramesPerLink[entry.LinkID]++

	if !rc.timerArmed {
		rc.timerArmed = true
		armTimer = true
	}
	return armTimer, nil
}

// TryAdvance releases frames at the head of the window in order,
// stopping at the first gap. This is the in-order-only path.
func (rc *ReorderContext) TryAdvance() int {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.advanceLocked()
}

func (rc *ReorderContext) advanceLocked() int {
	released := 0
	for {
		first, ok := rc.tree.First()
		if !ok || first.SequenceNumber != rc.headSeq {
			break
		}
		entry, _ := rc.tree.PopFirst()
		rc.ready = append(rc.ready, entry)
		rc.headSeq = SeqAdd(rc.headSeq, 1)
		released++
	}
	rc.stats.InOrderReleases += uint64(released)
	return released
}

// FlushExpired force-releases frames whose age exceeds the reorder
// timeout, advancing headSeq past them even though that skips the gap
// in front. The skipped sequence number will never be retried by this
// layer; this bounds worst-case reordering latency at the cost of a
// permanently lost slot. Reports whether the flush timer should stay
// scheduled, decided under the same lock the producer path uses.
func (rc *ReorderContext) FlushExpired(now time.Time) (released int, rearm bool) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	released = rc.flushOlderLocked(now, rc.timeout)
	if released > 0 && rc.logger != nil {
		rc.logger.Debug("Reorder timeout forced release",
			"tid", rc.tid, "released", released, "head", rc.headSeq)
	}

	rearm = rc.tree.Len() > 0
	if !rearm {
		rc.timerArmed = false
	}
	return released, rearm
}

// flushOlderLocked force-moves every entry older than d to ready,
// advancing the head past each, and pulls any successors that became
// in-order afterwards. d == 0 flushes everything.
func (rc *ReorderContext) flushOlderLocked(now time.Time, d time.Duration) int {
	released := 0
	for {
		first, ok := rc.tree.First()
		if !ok || first.Age(now) < d {
			break
		}
		entry, _ := rc.tree.PopFirst()
		rc.ready = append(rc.ready, entry)
		rc.headSeq = SeqAdd(entry.SequenceNumber, 1)
		rc.stats.TimeoutReleases++
		released++

		released += rc.advanceLocked()
	}
	return released
}

// ForceFlush immediately releases every buffered frame in order, as a
// zero-timeout expiry. Used on session teardown and engine stop.
func (rc *ReorderContext) ForceFlush() int {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	released := rc.flushOlderLocked(time.Now(), 0)
	rc.timerArmed = false
	return released
}

// Deactivate force-flushes the window and rejects further admits.
func (rc *ReorderContext) Deactivate() int {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	rc.active = false
	rc.timerArmed = false
	return rc.flushOlderLocked(time.Now(), 0)
}

// DrainReady atomically empties and returns the ready list. Entries
// are in non-decreasing sequence order relative to each other and to
// all previously drained entries; no sequence number is ever drained
// twice.
func (rc *ReorderContext) DrainReady() []*FrameEntry {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	entries := rc.ready
	rc.ready = nil
	rc.stats.FramesDrained += uint64(len(entries))
	return entries
}

// HeadSeq returns the current window head.
func (rc *ReorderContext) HeadSeq() uint16 {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.headSeq
}

// TailSeq returns the highest sequence number ever admitted.
func (rc *ReorderContext) TailSeq() uint16 {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.tailSeq
}

// WindowSize returns the configured window size.
func (rc *ReorderContext) WindowSize() uint16 {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.windowSize
}

// IsActive reports whether the context accepts frames.
func (rc *ReorderContext) IsActive() bool {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.active
}

// PendingCount returns the number of buffered out-of-order frames.
func (rc *ReorderContext) PendingCount() int {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return rc.tree.Len()
}

// ReadyCount returns the number of frames awaiting drain.
func (rc *ReorderContext) ReadyCount() int {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()
	return len(rc.ready)
}

// GetStats returns a copy of the context statistics.
func (rc *ReorderContext) GetStats() *ReorderStats {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	statsCopy := rc.stats
	statsCopy.FramesPerLink = make(map[uint8]uint64, len(rc.stats.FramesPerLink))
	for link, count := range rc.stats.FramesPerLink {
		statsCopy.FramesPerLink[link] = count
	}
	return &statsCopy
}
