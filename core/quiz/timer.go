package quiz

import (
	"sync"
	"time"
)

// DefaultQuestionTimeout is the per-question countdown of timed quizzes.
const DefaultQuestionTimeout = 30 * time.Second

type stopper interface {
	Stop() bool
}

var afterFunc = func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) } // mockable

// TimedSession owns one session and reveals the current question with no answer
// when it stays unanswered for the configured timeout.
// It is safe for concurrent use: the countdown fires on its own goroutine.
type TimedSession struct {
	engine   *Engine
	timeout  time.Duration
	onExpire func(State)

	mu     sync.Mutex
	state  State
	timer  stopper
	gen    uint64
	closed bool
}

// NewTimedSession starts a session and arms the countdown of the first question.
// onExpire, when set, is called with the new state after each timeout, outside the lock.
func NewTimedSession(e *Engine, timeout time.Duration, onExpire func(State)) *TimedSession {
	if timeout <= 0 {
		timeout = DefaultQuestionTimeout
	}
	ts := &TimedSession{
		engine:   e,
		timeout:  timeout,
		onExpire: onExpire,
		state:    e.Start(),
	}
	ts.mu.Lock()
	ts.arm()
	ts.mu.Unlock()
	return ts
}

func (ts *TimedSession) Engine() *Engine { return ts.engine }

// State returns a copy of the current state.
func (ts *TimedSession) State() State {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.state.clone()
}

// arm (re)starts the countdown when the session is asking. Callers hold ts.mu.
func (ts *TimedSession) arm() {
	ts.disarm()
	if ts.closed || phaseOf(ts.state) != Asking {
		return
	}
	gen := ts.gen
	ts.timer = afterFunc(ts.timeout, func() { ts.expire(gen) })
}

// disarm cancels the pending countdown, if any. Callers hold ts.mu.
func (ts *TimedSession) disarm() {
	ts.gen++
	if ts.timer != nil {
		ts.timer.Stop()
		ts.timer = nil
	}
}

func (ts *TimedSession) expire(gen uint64) {
	ts.mu.Lock()
	if ts.closed || gen != ts.gen {
		ts.mu.Unlock()
		return
	}
	next, err := ts.engine.Expire(ts.state)
	if err != nil {
		ts.mu.Unlock()
		return
	}
	ts.state = next
	ts.timer = nil
	cb := ts.onExpire
	ts.mu.Unlock()

	if cb != nil {
		cb(next.clone())
	}
}

func (ts *TimedSession) apply(fn func(State) (State, error)) (State, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	next, err := fn(ts.state)
	if err != nil {
		return ts.state.clone(), err
	}
	ts.state = next
	if phaseOf(next) == Asking {
		if ts.timer == nil {
			ts.arm()
		}
	} else {
		ts.disarm()
	}
	return next.clone(), nil
}

func (ts *TimedSession) Select(choice Choice) (State, error) {
	return ts.apply(func(st State) (State, error) { return ts.engine.Select(st, choice) })
}

func (ts *TimedSession) Submit() (State, error) {
	return ts.apply(ts.engine.Submit)
}

func (ts *TimedSession) Advance() (State, error) {
	return ts.apply(ts.engine.Advance)
}

// Reset starts over and re-arms the countdown.
func (ts *TimedSession) Reset() State {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.state = ts.engine.Reset()
	ts.arm()
	return ts.state.clone()
}

// Pending reports whether a countdown is running.
func (ts *TimedSession) Pending() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.timer != nil
}

// Close cancels the countdown for good.
func (ts *TimedSession) Close() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.disarm()
	ts.closed = true
}
