package interleave

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the core in situations that do not warrant a
// dedicated struct.
var (
	// ErrSchedulerAlreadyRunning names a second [Scheduler.Run] on a
	// scheduler that is already executing an iteration. No function in this
	// package returns it: Run does not check for re-entry.
	ErrSchedulerAlreadyRunning = errors.New("interleave: scheduler is already running")

	// ErrSchedulerNotRunning names an operation-facing call attempted outside
	// of a running iteration. No function in this package returns it.
	ErrSchedulerNotRunning = errors.New("interleave: scheduler is not running")

	// ErrUnknownTarget is returned by [Context.Send] when the target id has
	// never been bound to an actor.
	ErrUnknownTarget = errors.New("interleave: send to unbound id")

	// ErrWrongTargetType is returned by [Context.Send] when the target id is
	// bound to something other than an actor.
	ErrWrongTargetType = errors.New("interleave: send to id of wrong type")

	// ErrAborted is returned by [Scheduler.Run] when an iteration is forcibly
	// abandoned via [Runtime]'s abort signal, mid-execution rather than
	// between iterations.
	ErrAborted = errors.New("interleave: iteration aborted")
)

// UsageError reports a violation of the state-machine authoring rules: more
// than one of {raise, goto, push, pop} invoked by a single handler, a
// goto/push/pop from an OnExit hook, an unbalanced pop, or a transition to a
// state that was never declared.
//
// UsageError is a programmer error in the program under test, not a
// violation discovered by exploring interleavings; it aborts the iteration
// unless the actor's [Hooks].OnException resolves it by halting the actor.
type UsageError struct {
	// Actor is the id of the actor whose handler misbehaved.
	Actor ActorID
	// State is the state that was executing when the violation occurred.
	State string
	// Message describes the specific rule that was broken.
	Message string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("interleave: usage error in state %q of actor %s: %s", e.State, e.Actor, e.Message)
}

// UnhandledEvent reports that an actor had no handler, ancestor handler, or
// fallback for a dequeued envelope, and its [Hooks].OnUnhandled hook was
// absent or returned without resolving the situation.
type UnhandledEvent struct {
	Actor ActorID
	State string
	Tag   string
}

func (e *UnhandledEvent) Error() string {
	return fmt.Sprintf("interleave: event %q cannot be handled in state %q of actor %s", e.Tag, e.State, e.Actor)
}

// MustHandleViolation reports that an envelope marked must-handle was
// dropped (ignored, or drained during halt) without ever being dequeued by a
// live handler.
type MustHandleViolation struct {
	Actor ActorID
	Tag   string
	// Phase describes when the violation was detected: "drained before
	// halt" or "sent after halt".
	Phase string
}

func (e *MustHandleViolation) Error() string {
	return fmt.Sprintf("interleave: actor %s %s must-handle event %q", e.Actor, e.Phase, e.Tag)
}

// AssertionFailure wraps a user-supplied assertion message raised via
// [Context.Assert].
type AssertionFailure struct {
	Message string
	Op      OperationID
}

func (e *AssertionFailure) Error() string {
	return fmt.Sprintf("interleave: assertion failed (operation %d): %s", e.Op, e.Message)
}

// LivenessViolation reports that a [Monitor] was left in a hot state at the
// end of an iteration, or that its temperature counter crossed
// [Config.LivenessTemperatureThreshold], or that cycle detection found a
// non-progressing loop while a monitor was hot.
type LivenessViolation struct {
	Monitor     string
	State       string
	Temperature int
	// Cycle is true if this violation was raised by cycle detection rather
	// than by an end-of-iteration hot-state check.
	Cycle bool
}

func (e *LivenessViolation) Error() string {
	if e.Cycle {
		return fmt.Sprintf("interleave: liveness violation: monitor %q stuck hot in state %q (temperature %d) across a repeating program state", e.Monitor, e.State, e.Temperature)
	}
	return fmt.Sprintf("interleave: liveness violation: monitor %q still hot in state %q at end of iteration (temperature %d)", e.Monitor, e.State, e.Temperature)
}

// Deadlock reports that no operation in the run remained enabled and none
// could be unblocked by any pending progress.
type Deadlock struct {
	// Blocked lists the ids and statuses of every non-terminal operation at
	// the point of detection.
	Blocked map[OperationID]OperationStatus
}

func (e *Deadlock) Error() string {
	return fmt.Sprintf("interleave: deadlock detected: %d operation(s) blocked with no enabled operation remaining", len(e.Blocked))
}

// UncontrolledConcurrency reports that an intercepted concurrency primitive
// observed a future, thread, or goroutine that the runtime does not control,
// naming the offending fully-qualified method and the operation that
// observed it.
type UncontrolledConcurrency struct {
	Method string
	Op     OperationID
}

func (e *UncontrolledConcurrency) Error() string {
	return fmt.Sprintf("interleave: uncontrolled concurrency observed by operation %d via %s", e.Op, e.Method)
}

// ReplayMismatch reports that a live scheduling decision diverged from the
// corresponding decision in a [Trace] being replayed.
type ReplayMismatch struct {
	Step     int
	Expected Decision
	Actual   Decision
}

func (e *ReplayMismatch) Error() string {
	return fmt.Sprintf("interleave: replay mismatch at step %d: expected %s, got %s", e.Step, e.Expected, e.Actual)
}

// InvokedWhileHalted reports that a [Context] method acting on the calling
// actor (Raise, Halt, Pop, ActorData or SetActorData; named by Method) was
// invoked from within an OnHalt hook, or otherwise after the owning actor
// halted. [Context.Send] does not report it.
type InvokedWhileHalted struct {
	Actor  ActorID
	Method string
}

func (e *InvokedWhileHalted) Error() string {
	return fmt.Sprintf("interleave: actor %s invoked %s while halted", e.Actor, e.Method)
}

// WrapError wraps an error with a message and preserves it as the cause for
// [errors.Is]/[errors.As] traversal.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
