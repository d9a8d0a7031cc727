package resilience

import (
	"errors"
	"sync"
	"time"
)

// Errors returned to callers rejected without running their request.
var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("circuit breaker probe budget exhausted")
)

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts accumulates request outcomes within the current window.
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Settings tunes a breaker. Zero values get conservative defaults.
type Settings struct {
	// MaxRequests caps concurrent probes while half-open. It doubles as the
	// success streak required to close again.
	MaxRequests uint32
	// Interval rolls the closed-state window so old failures age out.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// ReadyToTrip decides, after each closed-state failure, whether to open.
	ReadyToTrip func(counts Counts) bool
	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to State)
}

// Breaker fails fast once a dependency looks dead, then probes it with a
// small request budget until it proves healthy again.
type Breaker struct {
	name string
	cfg  Settings

	mu     sync.Mutex
	state  State
	epoch  uint64
	counts Counts
	until  time.Time
}

// New creates a breaker named for log and callback attribution.
func New(name string, cfg Settings) *Breaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}

	return &Breaker{
		name:  name,
		cfg:   cfg,
		state: StateClosed,
		until: time.Now().Add(cfg.Interval),
	}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string {
	return b.name
}

// State reports the position, advancing open to half-open when the timeout
// has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, _ := b.tick(time.Now())
	return s
}

// Counts returns a snapshot of the current window.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Execute runs req unless the breaker rejects it first. A panic inside req
// counts as a failure and is re-raised.
func (b *Breaker) Execute(req func() (interface{}, error)) (interface{}, error) {
	epoch, err := b.admit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			b.settle(epoch, false)
			panic(r)
		}
	}()

	result, err := req()
	b.settle(epoch, err == nil)
	return result, err
}

// admit decides whether a request may run, returning the epoch it belongs
// to. Outcomes from a previous epoch are discarded in settle, so a slow
// request finishing after a transition cannot corrupt the fresh window.
func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, epoch := b.tick(now)

	if state == StateOpen {
		return epoch, ErrCircuitOpen
	}
	if state == StateHalfOpen && b.counts.Requests >= b.cfg.MaxRequests {
		return epoch, ErrTooManyRequests
	}

	b.counts.Requests++
	return epoch, nil
}

// settle records the outcome of a request admitted at epoch.
func (b *Breaker) settle(epoch uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, current := b.tick(now)
	if current != epoch {
		return
	}

	if success {
		b.counts.Successes++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.cfg.MaxRequests {
			b.transition(StateClosed, now)
		}
		return
	}

	b.counts.Failures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	switch state {
	case StateClosed:
		if b.cfg.ReadyToTrip(b.counts) {
			b.transition(StateOpen, now)
		}
	case StateHalfOpen:
		// One failed probe re-opens immediately.
		b.transition(StateOpen, now)
	}
}

// tick advances time-driven transitions. Callers hold b.mu.
func (b *Breaker) tick(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.until.IsZero() && b.until.Before(now) {
			b.counts = Counts{}
			b.epoch++
			b.until = now.Add(b.cfg.Interval)
		}
	case StateOpen:
		if b.until.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
	return b.state, b.epoch
}

// transition moves to state and starts a fresh window. Callers hold b.mu.
func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.counts = Counts{}
	b.epoch++

	switch state {
	case StateClosed:
		b.until = now.Add(b.cfg.Interval)
	case StateOpen:
		b.until = now.Add(b.cfg.Timeout)
	case StateHalfOpen:
		// Half-open has no deadline; it resolves through probe outcomes.
		b.until = time.Time{}
	}

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, prev, state)
	}
}
