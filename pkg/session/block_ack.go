package session

import (
	"sync"
	"time"

	"wmac/internal/utils"
)

// SessionState represents the lifecycle state of a block-ack session
type SessionState int

const (
	SessionStateIdle SessionState = iota
	SessionStateInit
	SessionStateActive
	SessionStateSuspended
	SessionStateTeardown
)

// String returns the string representation of the session state
func (s SessionState) String() string {
	switch s {
	case SessionStateIdle:
		return "IDLE"
	case SessionStateInit:
		return "INIT"
	case SessionStateActive:
		return "ACTIVE"
	case SessionStateSuspended:
		return "SUSPENDED"
	case SessionStateTeardown:
		return "TEARDOWN"
	default:
		return "UNKNOWN"
	}
}

// SessionLogger interface to avoid circular imports
type SessionLogger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SessionStats contains statistics about one block-ack session
type SessionStats struct {
	TID              uint8
	Peer             string
	State            string
	SSN              uint16
	WindowSize       uint16
	Timeout          time.Duration
	InvalidTransitions uint64
	CreatedAt        time.Time
	LastActivity     time.Time
}

// BlockAckSession negotiates and tracks a reorder window for one
// (TID, peer) pair. It owns the window parameters (starting sequence
// number, size, timeout) that configure the TID's reorder context, and
// a bitmap of admitted-but-undelivered slots used as a duplicate
// filter.
//
// Valid lifecycles are Idle→Init→Active→(Suspended↔Active)→Teardown
// and Init→Teardown on a negative acknowledgment. Any other transition
// fails with InvalidState and is logged as a protocol anomaly, never a
// fatal error.
type BlockAckSession struct {
	tid  uint8
	peer string

	state      SessionState
	ssn        uint16
	windowSize uint16
	timeout    time.Duration

	bitmap       *WindowBitmap
	createdAt    time.Time
	lastActivity time.Time

	invalidTransitions uint64

	logger SessionLogger
	mutex  sync.RWMutex
}

var validTransitions = map[SessionState][]SessionState{
	SessionStateIdle: {
		SessionStateInit,
	},
	SessionStateInit: {
		SessionStateActive,
		SessionStateTeardown,
	},
	SessionStateActive: {
		SessionStateSuspended,
		SessionStateTeardown,
	},
	SessionStateSuspended: {
		SessionStateActive,
		SessionStateTeardown,
	},
	SessionStateTeardown: {
		// No transitions out of teardown
	},
}

// NewBlockAckSession creates an idle session for a (TID, peer) pair.
// maxWindow caps the negotiable window size; it is a constructor
// parameter so deployments can size the bitmap without recompiling.
func NewBlockAckSession(tid uint8, peer string, maxWindow uint16, logger SessionLogger) *BlockAckSession {
	if maxWindow == 0 || maxWindow > utils.MaxBAWindow {
		maxWindow = utils.MaxBAWindow
	}
	now := time.Now()
	return &BlockAckSession{
		tid:          tid,
		peer:         peer,
		state:        SessionStateIdle,
		bitmap:       NewWindowBitmap(maxWindow),
		createdAt:    now,
		lastActivity: now,
		logger:       logger,
	}
}

// Setup moves Idle→Init, recording the negotiated parameters. The
// window size is clamped to the bitmap capacity and the timeout to
// [MinReorderTimeout, MaxReorderTimeout].
func (s *BlockAckSession) Setup(ssn, windowSize uint16, timeout time.Duration) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.transitionLocked(SessionStateInit, "setup"); err != nil {
		return err
	}

	if windowSize == 0 || windowSize > s.bitmap.Capacity() {
		windowSize = s.bitmap.Capacity()
	}
	if timeout < utils.MinReorderTimeout {
		timeout = utils.MinReorderTimeout
	}
	if timeout > utils.MaxReorderTimeout {
		timeout = utils.MaxReorderTimeout
	}

	s.ssn = ssn & utils.SeqMask
	s.windowSize = windowSize
	s.timeout = timeout
	s.bitmap.Reset()

	return nil
}

// HandleAck processes the peer's session-setup acknowledgment:
// Init→Active on a positive ack, Init→Teardown on a negative one.
func (s *BlockAckSession) HandleAck(positive bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if positive {
		return s.transitionLocked(SessionStateActive, "ack")
	}
	return s.transitionLocked(SessionStateTeardown, "nack")
}

// Suspend pauses an active session.
func (s *BlockAckSession) Suspend() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.transitionLocked(SessionStateSuspended, "suspend")
}

// Resume reactivates a suspended session.
func (s *BlockAckSession) Resume() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != SessionStateSuspended {
		return s.invalidLocked("resume")
	}
	return s.transitionLocked(SessionStateActive, "resume")
}

// Teardown ends the session. Valid from Init, Active and Suspended;
// the owning manager force-flushes the reorder context before
// releasing the session object.
func (s *BlockAckSession) Teardown(reason string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.transitionLocked(SessionStateTeardown, "teardown"); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("Block-ack session torn down",
			"tid", s.tid, "peer", s.peer, "reason", reason)
	}
	return nil
}

func (s *BlockAckSession) transitionLocked(to SessionState, operation string) error {
	for _, allowed := range validTransitions[s.state] {
		if allowed == to {
			from := s.state
			s.state = to
			s.lastActivity = time.Now()
			if s.logger != nil {
				s.logger.Debug("Session state transition",
					"tid", s.tid, "peer", s.peer,
					"from", from.String(), "to", to.String())
			}
			return nil
		}
	}
	return s.invalidLocked(operation)
}

func (s *BlockAckSession) invalidLocked(operation string) error {
	s.invalidTransitions++
	if s.logger != nil {
		s.logger.Warn("Protocol anomaly: operation in invalid session state",
			"tid", s.tid, "peer", s.peer,
			"operation", operation, "state", s.state.String())
	}
	return utils.NewInvalidStateError(operation, s.state.String())
}

// State returns the current session state.
func (s *BlockAckSession) State() SessionState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// IsActive reports whether the session accepts inbound frames.
func (s *BlockAckSession) IsActive() bool {
	return s.State() == SessionStateActive
}

// TID returns the session's traffic identifier.
func (s *BlockAckSession) TID() uint8 {
	return s.tid
}

// Peer returns the peer identity.
func (s *BlockAckSession) Peer() string {
	return s.peer
}

// WindowParams returns the negotiated window parameters.
func (s *BlockAckSession) WindowParams() (ssn, windowSize uint16, timeout time.Duration) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.ssn, s.windowSize, s.timeout
}

// Touch records activity on the session for idle-timeout tracking.
func (s *BlockAckSession) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActivity = time.Now()
}

// LastActivity returns the time of the most recent session activity.
func (s *BlockAckSession) LastActivity() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActivity
}

// MarkAdmitted records an admitted-but-undelivered slot.
func (s *BlockAckSession) MarkAdmitted(seq uint16) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.bitmap.Set(seq)
	s.lastActivity = time.Now()
}

// MarkDelivered frees the slot for a delivered sequence number.
func (s *BlockAckSession) MarkDelivered(seq uint16) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.bitmap.Clear(seq)
}

// IsAdmitted reports whether a slot is admitted but not yet delivered.
func (s *BlockAckSession) IsAdmitted(seq uint16) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.bitmap.IsSet(seq)
}

// PendingSlots returns the number of admitted-but-undelivered slots.
func (s *BlockAckSession) PendingSlots() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.bitmap.Count()
}

// GetStats returns a copy of the session statistics.
func (s *BlockAckSession) GetStats() *SessionStats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return &SessionStats{
		TID:                s.tid,
		Peer:               s.peer,
		State:              s.state.String(),
		SSN:                s.ssn,
		WindowSize:         s.windowSize,
		Timeout:            s.timeout,
		InvalidTransitions: s.invalidTransitions,
		CreatedAt:          s.createdAt,
		LastActivity:       s.lastActivity,
	}
}
