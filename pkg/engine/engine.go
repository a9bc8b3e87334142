package engine

import (
	"strconv"
	"sync"
	"time"

	"wmac/internal/utils"
	"wmac/pkg/config"
	"wmac/pkg/control"
	"wmac/pkg/data"
	"wmac/pkg/logging"
	"wmac/pkg/session"
)

// EngineState represents the lifecycle state of the engine
type EngineState int

const (
	EngineStateNew EngineState = iota
	EngineStateStarted
	EngineStateStopped
)

// String returns the string representation of the engine state
func (s EngineState) String() string {
	switch s {
	case EngineStateNew:
		return "NEW"
	case EngineStateStarted:
		return "STARTED"
	case EngineStateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// EngineStats contains aggregate statistics for the whole engine
type EngineStats struct {
	State             string
	FramesTransmitted uint64
	FramesDelivered   uint64
	TransmitErrors    uint64
	Aggregation       []*data.AggregationStats
	Reorder           []*data.ReorderStats
	Sessions          []*session.SessionStats
}

// Engine is the aggregation and reordering façade. It owns one
// aggregation context and one reorder context per TID, the block-ack
// session manager and the per-TID flush timers, and it is the only
// component that calls the transmit and delivery collaborators.
//
// There is no global lock: each per-TID context serializes its own
// producer and timer paths, and contexts for different TIDs never
// block each other. No context lock is ever held across a call into a
// collaborator.
//
// An Engine is an explicitly owned instance; multiple independent
// engines can coexist, each with its own lifecycle
// (New→Start→Stop).
type Engine struct {
	config *config.Config

	agg     [utils.NumTIDs]*data.AggregationContext
	reorder [utils.NumTIDs]*data.ReorderContext

	// Handoff mutexes make drain+collaborator-call one atomic step per
	// TID and direction, so two concurrent drains (producer path vs
	// timer path) cannot invert call order on the collaborator. They
	// are never held while a context lock is taken for producer work,
	// only around DrainReady and the handoff loop.
	transmitMutex [utils.NumTIDs]sync.Mutex
	deliverMutex  [utils.NumTIDs]sync.Mutex

	sessions *session.BlockAckManager
	timers   control.TimerService
	ownTimers bool

	transmitter data.Transmitter
	deliverer   data.Deliverer
	logger      *logging.Logger

	state      EngineState
	stateMutex sync.RWMutex

	framesTransmitted uint64
	framesDelivered   uint64
	transmitErrors    uint64
	statsMutex        sync.Mutex
}

// NewEngine creates an engine wired to its collaborators. A nil config
// selects defaults; a nil timer service makes the engine own a
// TickerTimerService and shut it down on Stop.
func NewEngine(cfg *config.Config, transmitter data.Transmitter, deliverer data.Deliverer,
	timers control.TimerService, logger *logging.Logger) (*Engine, error) {

	if transmitter == nil {
		return nil, utils.NewAllocationFailedError("transmit collaborator is nil")
	}
	if deliverer == nil {
		return nil, utils.NewAllocationFailedError("delivery collaborator is nil")
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = logging.GetComponentLogger("engine")
		logger.SetLevel(logging.ParseLogLevel(cfg.Logging.Level))
	}

	ownTimers := false
	if timers == nil {
		timers = control.NewTickerTimerService(logger)
		ownTimers = true
	}

	e := &Engine{
		config:      cfg,
		timers:      timers,
		ownTimers:   ownTimers,
		transmitter: transmitter,
		deliverer:   deliverer,
		logger:      logger,
		state:       EngineStateNew,
	}

	aggConfig := &data.AggregationConfig{
		MaxFrames:    cfg.Aggregation.MaxFrames,
		MaxBytes:     cfg.Aggregation.MaxBytes,
		FlushTimeout: cfg.GetAggFlushTimeout(),
	}
	for tid := uint8(0); tid < utils.NumTIDs; tid++ {
		e.agg[tid] = data.NewAggregationContext(tid, aggConfig, logger)
		e.reorder[tid] = data.NewReorderContext(tid, logger)
	}

	e.sessions = session.NewBlockAckManager(&session.ManagerConfig{
		MaxWindow:      uint16(cfg.Session.MaxWindow),
		DefaultWindow:  uint16(cfg.Reorder.WindowSize),
		DefaultTimeout: cfg.GetReorderTimeout(),
		SessionTimeout: cfg.GetSessionTimeout(),
	}, logger)

	return e, nil
}

// Start makes the engine operational and arms the session sweeper.
func (e *Engine) Start() error {
	e.stateMutex.Lock()
	if e.state != EngineStateNew {
		state := e.state
		e.stateMutex.Unlock()
		return utils.NewInvalidStateError("start", state.String())
	}
	e.state = EngineStateStarted
	e.stateMutex.Unlock()

	sweepPeriod := e.config.GetSessionTimeout() / utils.SessionSweepDivisor
	e.timers.Schedule(sweepTimerID, sweepPeriod, e.sweepTick)

	e.logger.Info("Engine started", "features", utils.GetSupportedFeatures())
	return nil
}

// Stop shuts the engine down: it synchronously cancels every timer
// (no callback executes after Stop returns), tears down all block-ack
// sessions, and force-flushes every context, handing remaining frames
// to the collaborators. Stop is idempotent.
func (e *Engine) Stop() error {
	e.stateMutex.Lock()
	if e.state == EngineStateStopped {
		e.stateMutex.Unlock()
		return nil
	}
	e.state = EngineStateStopped
	e.stateMutex.Unlock()

	// Cancel-and-join all timers before touching the contexts so no
	// flush callback races the final drain.
	if e.ownTimers {
		e.timers.Shutdown()
	} else {
		for tid := uint8(0); tid < utils.NumTIDs; tid++ {
			e.timers.Cancel(aggTimerID(tid))
			e.timers.Cancel(reorderTimerID(tid))
		}
		e.timers.Cancel(sweepTimerID)
	}

	for _, s := range e.sessions.TeardownAll() {
		e.reorder[s.TID()].Deactivate()
	}

	for tid := uint8(0); tid < utils.NumTIDs; tid++ {
		e.agg[tid].Deactivate()
		e.transmitDrained(tid)

		e.reorder[tid].Deactivate()
		e.deliverDrained(tid)
	}

	e.logger.Info("Engine stopped")
	return nil
}

// State returns the current engine lifecycle state.
func (e *Engine) State() EngineState {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()
	return e.state
}

func (e *Engine) checkStarted() error {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()

	switch e.state {
	case EngineStateStarted:
		return nil
	case EngineStateStopped:
		return utils.NewEngineClosedError()
	default:
		return utils.NewInvalidStateError("operation", e.state.String())
	}
}

const sweepTimerID = "session-sweep"

func aggTimerID(tid uint8) string {
	return "agg/" + strconv.Itoa(int(tid))
}

func reorderTimerID(tid uint8) string {
	return "reorder/" + strconv.Itoa(int(tid))
}

// AddAggFrame accepts an outbound frame for aggregation on a TID. If
// the submit completes a batch the batch is handed to the transmit
// collaborator immediately; otherwise the flush timer picks it up.
func (e *Engine) AddAggFrame(tid, linkID uint8, seq uint16, payload []byte) error {
	if err := e.checkStarted(); err != nil {
		return err
	}
	if tid >= utils.NumTIDs {
		return utils.NewInvalidTIDError(tid)
	}

	entry, err := data.NewFrameEntry(tid, linkID, seq, payload)
	if err != nil {
		return err
	}

	out, err := e.agg[tid].Submit(entry)
	if err != nil {
		return err
	}

	if out.ArmTimer {
		e.timers.Schedule(aggTimerID(tid), e.config.GetAggTimerPeriod(), e.aggTick(tid))
	}
	if out.ReadyBatch {
		e.agg[tid].FlushAll()
		e.transmitDrained(tid)
	}
	return nil
}

// ProcessAggFrames drains the TID's ready batch and hands each frame
// to the transmit collaborator, in ascending sequence order. Returns
// the number of frames handed off.
func (e *Engine) ProcessAggFrames(tid uint8) (int, error) {
	if err := e.checkStarted(); err != nil {
		return 0, err
	}
	if tid >= utils.NumTIDs {
		return 0, utils.NewInvalidTIDError(tid)
	}
	return e.transmitDrained(tid), nil
}

// FlushTID forces the TID's pending aggregate out regardless of age.
func (e *Engine) FlushTID(tid uint8) (int, error) {
	if err := e.checkStarted(); err != nil {
		return 0, err
	}
	if tid >= utils.NumTIDs {
		return 0, utils.NewInvalidTIDError(tid)
	}

	e.agg[tid].FlushAll()
	return e.transmitDrained(tid), nil
}

func (e *Engine) aggTick(tid uint8) control.TimerCallback {
	return func(now time.Time) bool {
		flushed, rearm := e.agg[tid].FlushExpired(now)
		if flushed > 0 {
			e.transmitDrained(tid)
		}
		return rearm
	}
}

// transmitDrained hands the ready batch to the transmit collaborator
// outside any context lock. A transmit error drops that frame with a
// counted reason; the rest of the batch still goes out. The transmit
// collaborator must not call back into the engine.
func (e *Engine) transmitDrained(tid uint8) int {
	e.transmitMutex[tid].Lock()
	defer e.transmitMutex[tid].Unlock()

	entries := e.agg[tid].DrainReady()
	sent := 0
	for _, entry := range entries {
		if err := e.transmitter.Transmit(tid, entry.LinkID, entry.Payload); err != nil {
			e.statsMutex.Lock()
			e.transmitErrors++
			e.statsMutex.Unlock()
			e.logger.Warn("Transmit failed, frame dropped",
				"tid", tid, "seq", entry.SequenceNumber, "error", err)
			continue
		}
		sent++
	}
	if sent > 0 {
		e.statsMutex.Lock()
		e.framesTransmitted += uint64(sent)
		e.statsMutex.Unlock()
	}
	return len(entries)
}

// AddReorderFrame accepts an inbound frame for reordering on a TID.
// The frame is validated against the block-ack window; in-order frames
// (and any successors they unblock) are handed to the delivery
// collaborator before the call returns.
func (e *Engine) AddReorderFrame(tid, linkID uint8, seq uint16, payload []byte) error {
	if err := e.checkStarted(); err != nil {
		return err
	}
	if tid >= utils.NumTIDs {
		return utils.NewInvalidTIDError(tid)
	}

	s, hasSession := e.sessions.SessionForTID(tid)
	if hasSession && !s.IsActive() {
		return utils.NewInvalidStateError("admit", s.State().String())
	}

	entry, err := data.NewFrameEntry(tid, linkID, seq, payload)
	if err != nil {
		return err
	}

	armTimer, err := e.reorder[tid].Admit(entry)
	if err != nil {
		return err
	}

	if hasSession {
		s.MarkAdmitted(seq)
	}

	if armTimer {
		e.timers.Schedule(reorderTimerID(tid), e.config.GetReorderTimerPeriod(), e.reorderTick(tid))
	}

	if e.reorder[tid].TryAdvance() > 0 {
		e.deliverDrained(tid)
	}
	return nil
}

// ProcessReorderedFrames drains the TID's in-order frames and hands
// each to the delivery collaborator. Returns the number of frames
// delivered.
func (e *Engine) ProcessReorderedFrames(tid uint8) (int, error) {
	if err := e.checkStarted(); err != nil {
		return 0, err
	}
	if tid >= utils.NumTIDs {
		return 0, utils.NewInvalidTIDError(tid)
	}
	return e.deliverDrained(tid), nil
}

func (e *Engine) reorderTick(tid uint8) control.TimerCallback {
	return func(now time.Time) bool {
		flushed, rearm := e.reorder[tid].FlushExpired(now)
		if flushed > 0 {
			e.deliverDrained(tid)
		}
		return rearm
	}
}

// deliverDrained hands drained in-order frames to the delivery
// collaborator outside any context lock. The delivery collaborator
// must not call back into the engine.
func (e *Engine) deliverDrained(tid uint8) int {
	e.deliverMutex[tid].Lock()
	defer e.deliverMutex[tid].Unlock()

	entries := e.reorder[tid].DrainReady()
	if len(entries) == 0 {
		return 0
	}

	s, hasSession := e.sessions.SessionForTID(tid)
	for _, entry := range entries {
		if hasSession {
			s.MarkDelivered(entry.SequenceNumber)
		}
		e.deliverer.Deliver(tid, entry.LinkID, entry.Payload)
	}

	e.statsMutex.Lock()
	e.framesDelivered += uint64(len(entries))
	e.statsMutex.Unlock()
	return len(entries)
}

// HandleSessionSignal applies a parsed session signaling record. Setup
// requests create an Init session; a positive ack activates it and
// installs its window on the TID's reorder context; teardown and
// negative acks force-flush and release it.
func (e *Engine) HandleSessionSignal(sig session.Signal) error {
	if err := e.checkStarted(); err != nil {
		return err
	}
	if sig.TID >= utils.NumTIDs {
		return utils.NewInvalidTIDError(sig.TID)
	}

	switch sig.Type {
	case session.SignalSetupRequest:
		_, err := e.sessions.CreateSession(sig)
		return err

	case session.SignalSetupAck:
		s, err := e.sessions.Lookup(sig.TID, sig.Peer)
		if err != nil {
			return err
		}
		if err := s.HandleAck(sig.Ack); err != nil {
			return err
		}
		if !sig.Ack {
			e.sessions.Release(sig.TID, sig.Peer)
			return nil
		}
		ssn, windowSize, timeout := s.WindowParams()
		if e.reorder[sig.TID].Configure(ssn, windowSize, timeout) > 0 {
			e.deliverDrained(sig.TID)
		}
		return nil

	case session.SignalTeardown:
		return e.teardownSession(sig.TID, sig.Peer, "peer teardown")

	case session.SignalSuspend:
		s, err := e.sessions.Lookup(sig.TID, sig.Peer)
		if err != nil {
			return err
		}
		return s.Suspend()

	case session.SignalResume:
		s, err := e.sessions.Lookup(sig.TID, sig.Peer)
		if err != nil {
			return err
		}
		return s.Resume()

	default:
		return utils.NewInvalidStateError("signal", sig.Type.String())
	}
}

func (e *Engine) teardownSession(tid uint8, peer, reason string) error {
	s, err := e.sessions.Lookup(tid, peer)
	if err != nil {
		return err
	}
	if err := s.Teardown(reason); err != nil {
		return err
	}

	// Teardown forces an immediate zero-timeout flush of the owned
	// reorder window; admits arriving after this point fail with
	// InvalidState instead of racing the flush.
	if e.reorder[tid].Deactivate() > 0 {
		e.deliverDrained(tid)
	}
	e.sessions.Release(tid, peer)
	return nil
}

func (e *Engine) sweepTick(now time.Time) bool {
	for _, s := range e.sessions.ExpireIdle(now) {
		tid := s.TID()
		if e.reorder[tid].Deactivate() > 0 {
			e.deliverDrained(tid)
		}
		e.sessions.Release(tid, s.Peer())
		e.logger.Info("Idle block-ack session expired",
			"tid", tid, "peer", s.Peer())
	}

	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()
	return e.state == EngineStateStarted
}

// SessionCount returns the number of live block-ack sessions.
func (e *Engine) SessionCount() int {
	return e.sessions.Count()
}

// Supports reports whether the engine implements a named feature, for
// embedders negotiating capabilities with a peer.
func (e *Engine) Supports(feature string) bool {
	return utils.IsFeatureSupported(feature)
}

// GetStats returns a snapshot of engine-wide statistics.
func (e *Engine) GetStats() *EngineStats {
	e.statsMutex.Lock()
	stats := &EngineStats{
		FramesTransmitted: e.framesTransmitted,
		FramesDelivered:   e.framesDelivered,
		TransmitErrors:    e.transmitErrors,
	}
	e.statsMutex.Unlock()

	stats.State = e.State().String()
	for tid := uint8(0); tid < utils.NumTIDs; tid++ {
		stats.Aggregation = append(stats.Aggregation, e.agg[tid].GetStats())
		stats.Reorder = append(stats.Reorder, e.reorder[tid].GetStats())
	}
	stats.Sessions = e.sessions.GetAllStats()
	return stats
}
