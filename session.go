package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type ReadinessState int32

const (
	NotReady ReadinessState = iota
	Ready
)

func (s ReadinessState) String() string {
	if s == Ready {
		return "ready"
	}
	return "not_ready"
}

// Session is the per-bridge state: readiness, the pre-readiness queue and the
// one-shot diagnostic flag. Readiness and the queue are written only by the
// bridge event loop; the accessors are safe to call from anywhere.
type Session struct {
	id    string
	state atomic.Int32
	queue commandQueue

	mu       sync.RWMutex
	readyErr error

	diagnosed atomic.Bool
}

func newSession() *Session {
	return &Session{id: uuid.NewString()}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() ReadinessState {
	return ReadinessState(s.state.Load())
}

// Pending is the number of commands waiting for readiness.
func (s *Session) Pending() int {
	return s.queue.len()
}

// ReadinessError is the failure recorded when readiness timed out, or nil.
func (s *Session) ReadinessError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readyErr
}

// markReady performs the single NotReady to Ready transition. It returns
// false if the session was already ready.
func (s *Session) markReady() bool {
	return s.state.CompareAndSwap(int32(NotReady), int32(Ready))
}

func (s *Session) failReadiness(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readyErr == nil {
		s.readyErr = err
	}
}

// claimDiagnostic returns true exactly once per session.
func (s *Session) claimDiagnostic() bool {
	return s.diagnosed.CompareAndSwap(false, true)
}
