package session

import (
	"sync"
	"time"

	"wmac/internal/utils"
)

// SignalType identifies a session signaling record
type SignalType int

const (
	SignalSetupRequest SignalType = iota
	SignalSetupAck
	SignalTeardown
	SignalSuspend
	SignalResume
)

// String returns the string representation of the signal type
func (t SignalType) String() string {
	switch t {
	case SignalSetupRequest:
		return "SETUP_REQUEST"
	case SignalSetupAck:
		return "SETUP_ACK"
	case SignalTeardown:
		return "TEARDOWN"
	case SignalSuspend:
		return "SUSPEND"
	case SignalResume:
		return "RESUME"
	default:
		return "UNKNOWN"
	}
}

// Signal is a session signaling record, already parsed from a
// management frame by the signaling collaborator. This core never
// parses wire frames itself.
type Signal struct {
	Type       SignalType
	TID        uint8
	Peer       string
	SSN        uint16
	WindowSize uint16
	Timeout    time.Duration
	Ack        bool
}

type sessionKey struct {
	tid  uint8
	peer string
}

// ManagerConfig holds block-ack manager configuration
type ManagerConfig struct {
	// MaxWindow caps negotiable window sizes and sizes each session's
	// slot bitmap.
	MaxWindow uint16
	// DefaultWindow and DefaultTimeout fill in window parameters a
	// setup request omits (zero values). Both are still clamped by
	// Setup like any negotiated value.
	DefaultWindow  uint16
	DefaultTimeout time.Duration
	// SessionTimeout is the idle bound after which a session is torn
	// down by the sweeper.
	SessionTimeout time.Duration
}

// DefaultManagerConfig returns default manager configuration
func DefaultManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		MaxWindow:      utils.MaxBAWindow,
		DefaultWindow:  utils.DefaultBAWindow,
		DefaultTimeout: utils.DefaultReorderTimeout,
		SessionTimeout: utils.DefaultSessionTimeout,
	}
}

// BlockAckManager owns the block-ack sessions of an engine, keyed by
// (TID, peer). At most one session exists per pair at a time. In this
// single-peer-per-TID design the manager also resolves the one session
// currently bound to a TID, since the per-TID reorder context adopts
// that session's window parameters.
type BlockAckManager struct {
	sessions map[sessionKey]*BlockAckSession
	byTID    map[uint8]*BlockAckSession

	config *ManagerConfig
	logger SessionLogger
	mutex  sync.RWMutex
}

// NewBlockAckManager creates an empty session manager.
func NewBlockAckManager(config *ManagerConfig, logger SessionLogger) *BlockAckManager {
	if config == nil {
		config = DefaultManagerConfig()
	}
	return &BlockAckManager{
		sessions: make(map[sessionKey]*BlockAckSession),
		byTID:    make(map[uint8]*BlockAckSession),
		config:   config,
		logger:   logger,
	}
}

// CreateSession handles a session-setup request: it creates the
// session and moves it Idle→Init with clamped parameters. Fails with
// SessionExists while a live session occupies the (TID, peer) pair.
func (m *BlockAckManager) CreateSession(sig Signal) (*BlockAckSession, error) {
	if sig.TID >= utils.NumTIDs {
		return nil, utils.NewInvalidTIDError(sig.TID)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := sessionKey{tid: sig.TID, peer: sig.Peer}
	if existing, ok := m.sessions[key]; ok {
		if existing.State() != SessionStateTeardown {
			return nil, utils.NewSessionExistsError(sig.TID, sig.Peer)
		}
		// A torn-down session still in the map is released here.
		delete(m.sessions, key)
		if m.byTID[sig.TID] == existing {
			delete(m.byTID, sig.TID)
		}
	}

	windowSize := sig.WindowSize
	if windowSize == 0 {
		windowSize = m.config.DefaultWindow
	}
	timeout := sig.Timeout
	if timeout == 0 {
		timeout = m.config.DefaultTimeout
	}

	s := NewBlockAckSession(sig.TID, sig.Peer, m.config.MaxWindow, m.logger)
	if err := s.Setup(sig.SSN, windowSize, timeout); err != nil {
		return nil, err
	}

	m.sessions[key] = s
	m.byTID[sig.TID] = s
	return s, nil
}

// Lookup returns the session for a (TID, peer) pair.
func (m *BlockAckManager) Lookup(tid uint8, peer string) (*BlockAckSession, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s, ok := m.sessions[sessionKey{tid: tid, peer: peer}]
	if !ok {
		return nil, utils.NewSessionNotFoundError(tid, peer)
	}
	return s, nil
}

// SessionForTID returns the session currently bound to a TID, if any.
func (m *BlockAckManager) SessionForTID(tid uint8) (*BlockAckSession, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s, ok := m.byTID[tid]
	return s, ok
}

// Release removes a torn-down session from the manager.
func (m *BlockAckManager) Release(tid uint8, peer string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := sessionKey{tid: tid, peer: peer}
	s, ok := m.sessions[key]
	if !ok {
		return
	}
	delete(m.sessions, key)
	if m.byTID[tid] == s {
		delete(m.byTID, tid)
	}
}

// ExpireIdle tears down sessions idle longer than the configured
// session timeout and returns them so the caller can force-flush their
// reorder windows before release.
func (m *BlockAckManager) ExpireIdle(now time.Time) []*BlockAckSession {
	m.mutex.RLock()
	var expired []*BlockAckSession
	for _, s := range m.sessions {
		if now.Sub(s.LastActivity()) >= m.config.SessionTimeout {
			expired = append(expired, s)
		}
	}
	m.mutex.RUnlock()

	var tornDown []*BlockAckSession
	for _, s := range expired {
		if err := s.Teardown("session timeout"); err != nil {
			// Already tearing down elsewhere; skip.
			continue
		}
		tornDown = append(tornDown, s)
	}
	return tornDown
}

// TeardownAll tears down every live session, for engine shutdown.
// Returns the sessions that transitioned so the caller can flush their
// reorder windows.
func (m *BlockAckManager) TeardownAll() []*BlockAckSession {
	m.mutex.RLock()
	all := make([]*BlockAckSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mutex.RUnlock()

	var tornDown []*BlockAckSession
	for _, s := range all {
		if err := s.Teardown("engine shutdown"); err != nil {
			continue
		}
		tornDown = append(tornDown, s)
	}

	m.mutex.Lock()
	m.sessions = make(map[sessionKey]*BlockAckSession)
	m.byTID = make(map[uint8]*BlockAckSession)
	m.mutex.Unlock()

	return tornDown
}

// Count returns the number of live sessions.
func (m *BlockAckManager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// GetAllStats returns a snapshot of every session's statistics.
func (m *BlockAckManager) GetAllStats() []*SessionStats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	stats := make([]*SessionStats, 0, len(m.sessions))
	for _, s := range m.sessions {
		stats = append(stats, s.GetStats())
	}
	return stats
}
