package control

import (
	"sync"
	"time"
)

// TimerLogger interface to avoid circular imports
type TimerLogger interface {
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// TimerCallback is invoked on each tick of a scheduled timer. The
// service guarantees at most one concurrent invocation per timer id.
// Returning false stops the timer; a Schedule racing that decision
// re-arms it atomically instead of being lost.
type TimerCallback func(now time.Time) bool

// TimerService is the timer abstraction the engine depends on. It
// registers recurring callbacks with a configurable period and
// supports synchronous cancellation: once Cancel or Shutdown returns,
// no callback for the affected id is executing or will execute.
type TimerService interface {
	Schedule(id string, period time.Duration, callback TimerCallback)
	Cancel(id string)
	Shutdown()
}

type timerEntry struct {
	id       string
	period   time.Duration
	callback TimerCallback
	stop     chan struct{}
	done     chan struct{}

	// rearmRequested is set under the service mutex by a Schedule that
	// found this entry while its callback was deciding to stop. The
	// entry consumes the flag instead of exiting, which closes the
	// lost-wakeup window between "callback returned false" and "entry
	// removed from the table".
	rearmRequested bool
}

// TickerTimerService runs one goroutine per scheduled timer id, which
// by construction gives at-most-one concurrent invocation per id.
type TickerTimerService struct {
	timers map[string]*timerEntry
	closed bool
	logger TimerLogger
	mutex  sync.Mutex
	wg     sync.WaitGroup
}

// NewTickerTimerService creates an empty timer service.
func NewTickerTimerService(logger TimerLogger) *TickerTimerService {
	return &TickerTimerService{
		timers: make(map[string]*timerEntry),
		logger: logger,
	}
}

// Schedule arms a recurring timer for id. If the id is already
// scheduled this is a re-arm request and the existing period is kept.
// Must not be called from inside the id's own callback; callbacks
// re-arm by returning true.
func (s *TickerTimerService) Schedule(id string, period time.Duration, callback TimerCallback) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return
	}

	if existing, ok := s.timers[id]; ok {
		existing.rearmRequested = true
		return
	}

	e := &timerEntry{
		id:       id,
		period:   period,
		callback: callback,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.timers[id] = e
	s.wg.Add(1)
	go s.run(e)

	if s.logger != nil {
		s.logger.Debug("Timer scheduled", "id", id, "period", period)
	}
}

func (s *TickerTimerService) run(e *timerEntry) {
	defer s.wg.Done()
	defer close(e.done)

	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if e.callback(now) {
				continue
			}
			s.mutex.Lock()
			if e.rearmRequested {
				e.rearmRequested = false
				s.mutex.Unlock()
				continue
			}
			if s.timers[e.id] == e {
				delete(s.timers, e.id)
			}
			s.mutex.Unlock()
			return
		case <-e.stop:
			return
		}
	}
}

// Cancel synchronously stops the timer for id: it joins any in-flight
// callback and guarantees none executes after Cancel returns. Must not
// be called from inside the id's own callback.
func (s *TickerTimerService) Cancel(id string) {
	s.mutex.Lock()
	e, ok := s.timers[id]
	if ok {
		delete(s.timers, id)
	}
	s.mutex.Unlock()

	if !ok {
		return
	}
	close(e.stop)
	<-e.done
}

// Shutdown cancels every timer and joins all timer goroutines.
func (s *TickerTimerService) Shutdown() {
	s.mutex.Lock()
	s.closed = true
	entries := make([]*timerEntry, 0, len(s.timers))
	for _, e := range s.timers {
		entries = append(entries, e)
	}
	s.timers = make(map[string]*timerEntry)
	s.mutex.Unlock()

	for _, e := range entries {
		close(e.stop)
	}
	s.wg.Wait()
}

// ActiveCount returns the number of scheduled timers.
func (s *TickerTimerService) ActiveCount() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.timers)
}
