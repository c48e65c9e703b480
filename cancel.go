package interleave

import "sync"

// CancelSignal is a cooperative cancellation flag an [Operation] can poll
// at a [Context.Block] predicate or between steps, modeled on the
// teacher's AbortSignal: a one-shot latch with a channel for callers that
// want to wait on it and a plain boolean for callers that only want to
// poll.
type CancelSignal struct {
	mu     sync.Mutex
	done   chan struct{}
	fired  bool
	reason error
}

// CancelController owns the write side of a [CancelSignal].
type CancelController struct {
	signal *CancelSignal
}

// NewCancelController returns a controller and its associated signal, in
// the unfired state.
func NewCancelController() (*CancelController, *CancelSignal) {
	s := &CancelSignal{done: make(chan struct{})}
	return &CancelController{signal: s}, s
}

// Cancel fires the signal with reason, if it has not already fired. Only
// the first call has any effect.
func (c *CancelController) Cancel(reason error) {
	s := c.signal
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired {
		return
	}
	s.fired = true
	s.reason = reason
	close(s.done)
}

// Signal returns the associated read-only signal.
func (c *CancelController) Signal() *CancelSignal { return c.signal }

// Cancelled reports whether the signal has fired.
func (s *CancelSignal) Cancelled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Reason returns the reason passed to Cancel, or nil if not yet fired.
func (s *CancelSignal) Reason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Done returns a channel closed when the signal fires, for use outside the
// scheduled operations.
func (s *CancelSignal) Done() <-chan struct{} { return s.done }
