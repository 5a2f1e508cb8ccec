package circuit_breaker

import (
	"errors"
	"sync"
	"time"
)

type State uint8

const (
	Closed State = iota + 1
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

var ErrOpen = errors.New("circuit breaker is open")

type Settings struct {
	// Window is the number of most recent calls the failure ratio is computed over.
	Window int
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// FailureRatio opens the breaker once reached inside a full window.
	FailureRatio float64
	// RecoveryRequests successful probes close a half-open breaker.
	RecoveryRequests int
}

type CircuitBreaker interface {
	Call(fn func() error) error
	State() State
	Reset()
}

type circuitBreaker struct {
	mu       sync.Mutex
	settings Settings
	now      func() time.Time

	state    State
	openedAt time.Time
	results  []bool // true = failed
	pos      int
	filled   int
	probes   int
}

func New(s Settings) CircuitBreaker {
	return newWithClock(s, time.Now)
}

func newWithClock(s Settings, now func() time.Time) *circuitBreaker {
	if s.Window <= 0 {
		s.Window = 20
	}
	if s.RecoveryRequests <= 0 {
		s.RecoveryRequests = 1
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.5
	}
	return &circuitBreaker{
		settings: s,
		now:      now,
		state:    Closed,
		results:  make([]bool, s.Window),
	}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrOpen
	}
	err := fn()
	cb.record(err != nil)
	return err
}

func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == Open {
		if cb.now().Sub(cb.openedAt) < cb.settings.OpenTimeout {
			return false
		}
		cb.state = HalfOpen
		cb.probes = 0
	}
	return true
}

func (cb *circuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == HalfOpen {
		if failed {
			cb.trip()
			return
		}
		cb.probes++
		if cb.probes >= cb.settings.RecoveryRequests {
			cb.reset()
		}
		return
	}

	cb.results[cb.pos] = failed
	cb.pos = (cb.pos + 1) % len(cb.results)
	if cb.filled < len(cb.results) {
		cb.filled++
	}
	if cb.filled < len(cb.results) {
		return
	}

	fails := 0
	for _, f := range cb.results {
		if f {
			fails++
		}
	}
	if float64(fails)/float64(len(cb.results)) >= cb.settings.FailureRatio {
		cb.trip()
	}
}

func (cb *circuitBreaker) trip() {
	cb.state = Open
	cb.openedAt = cb.now()
	cb.probes = 0
}

func (cb *circuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

func (cb *circuitBreaker) reset() {
	for i := range cb.results {
		cb.results[i] = false
	}
	cb.pos = 0
	cb.filled = 0
	cb.probes = 0
	cb.state = Closed
}
