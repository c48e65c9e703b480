package interleave

import (
	"sync"
	"sync/atomic"
)

// OperationStatus is the lifecycle state of an [Operation].
//
// Transition table (mirrors the teacher's cache-line-padded FastState, but
// without the fast path's lock-free CAS requirement, since an operation's
// status is read or written by either its own goroutine or the scheduler's,
// and the baton ensures never both at once):
//
//	Enabled --block_until()--> BlockedOnReceive | BlockedOnJoin | BlockedOnDelay
//	Blocked*  --predicate satisfied--> Enabled
//	Enabled --complete()--> Completed
//	Enabled --halt()--> Halted
type OperationStatus uint32

const (
	// StatusEnabled indicates the operation is a candidate for scheduling.
	StatusEnabled OperationStatus = iota
	// StatusBlockedOnReceive indicates the operation is waiting to dequeue
	// from an actor inbox.
	StatusBlockedOnReceive
	// StatusBlockedOnJoin indicates the operation is waiting for a set of
	// other operations to complete.
	StatusBlockedOnJoin
	// StatusBlockedOnDelay indicates the operation is waiting on a
	// controlled (virtual) delay.
	StatusBlockedOnDelay
	// StatusCompleted is a terminal state reached by normal return.
	StatusCompleted
	// StatusHalted is a terminal state reached via [Context.Halt] or an
	// uncaught actor exception resolved to Halt.
	StatusHalted
)

func (s OperationStatus) String() string {
	switch s {
	case StatusEnabled:
		return "Enabled"
	case StatusBlockedOnReceive:
		return "BlockedOnReceive"
	case StatusBlockedOnJoin:
		return "BlockedOnJoin"
	case StatusBlockedOnDelay:
		return "BlockedOnDelay"
	case StatusCompleted:
		return "Completed"
	case StatusHalted:
		return "Halted"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is Completed or Halted.
func (s OperationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusHalted
}

// Func is the body of an [Operation]: user-level program logic that runs
// cooperatively under the [Scheduler], calling back into it through ctx at
// every scheduling point.
type Func func(ctx *Context)

// Operation is the scheduler's unit of work: a suspendable logical thread
// with a stable id, a group tag, and a status. At most one Operation is
// ever actively running user code at a time (see [Scheduler]).
type Operation struct {
	id      OperationID
	group   GroupID
	creator OperationID

	mu         sync.Mutex
	status     OperationStatus
	lastHash   uint64
	joinSet    map[OperationID]struct{}
	predicate  func() bool
	waitReason string
	suppress   int // nested count set by Context.Suppress/Resume

	proceed chan struct{} // scheduler -> operation: "you may run now"
	parked  chan struct{} // operation -> scheduler: "I reached a scheduling point"

	sched *Scheduler
	fn    Func

	// owner is the *actorBase driving this operation's dispatch loop, if
	// any; set once by [Context.CreateActor] before the operation's first
	// turn. Left nil for free-standing task operations spawned directly.
	owner any

	done atomic.Bool
}

// ID returns the operation's stable identity.
func (o *Operation) ID() OperationID { return o.id }

// Group returns the operation's current group tag.
func (o *Operation) Group() GroupID { return o.group }

// Creator returns the id of the operation that spawned this one, or zero if
// this operation was the iteration's initial operation.
func (o *Operation) Creator() OperationID { return o.creator }

// Status returns the operation's current status.
func (o *Operation) Status() OperationStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// setStatus transitions the operation's status. Must be called only from
// the scheduler goroutine (either directly, or via a handoff that the
// scheduler has synchronized).
func (o *Operation) setStatus(s OperationStatus) {
	o.mu.Lock()
	o.status = s
	o.mu.Unlock()
}

// pollBlocked re-evaluates a blocked operation's predicate/join-set and, if
// satisfied, transitions it back to Enabled. Returns true if the operation
// is now enabled.
func (o *Operation) pollBlocked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.status {
	case StatusEnabled, StatusCompleted, StatusHalted:
		return o.status == StatusEnabled
	case StatusBlockedOnReceive, StatusBlockedOnDelay:
		if o.predicate == nil || o.predicate() {
			o.status = StatusEnabled
			o.predicate = nil
			return true
		}
		return false
	case StatusBlockedOnJoin:
		if len(o.joinSet) == 0 {
			o.status = StatusEnabled
			return true
		}
		return false
	}
	return false
}

// suppressed reports whether this operation's Suppress counter is
// currently positive, meaning the scheduler should keep running it at
// ordinary scheduling points rather than consulting the strategy.
func (o *Operation) suppressed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.suppress > 0
}

// notifyJoin removes target from every blocked joiner's wait set; called
// whenever an operation completes or halts.
func (o *Operation) notifyJoin(target OperationID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.joinSet != nil {
		delete(o.joinSet, target)
	}
}
