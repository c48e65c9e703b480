package interleave

import "fmt"

// Event is a tagged-variant message exchanged between actors. Dispatch keys
// exclusively on Tag; Payload accessors belong to the caller (typically a
// small typed wrapper per event kind), not to the runtime.
//
// This replaces dynamically-typed event payloads and reflection-based event
// classes: the tag is the only thing the dispatcher ever inspects.
type Event struct {
	Tag     string
	Payload any
}

// HaltTag is the well-known tag raised to begin halting an actor. Sending or
// raising an event with this tag is equivalent to calling [Context.Halt]
// from within the actor's own handler.
const HaltTag = "$halt"

// Envelope wraps an [Event] with routing metadata as it travels through an
// actor's inbox.
type Envelope struct {
	Event Event

	// Sender is the operation that produced the envelope. Zero if the
	// envelope was synthesized internally (e.g. OnEntry-triggered).
	Sender OperationID

	// Target is the actor the envelope was addressed to.
	Target ActorID

	// Group is the operation group in effect when the envelope was sent; it
	// is informational only and does not affect dispatch.
	Group GroupID

	// MustHandle marks the envelope must be consumed by a live handler
	// before the target halts; dropping it (ignored) or draining it
	// unconsumed at halt is a [MustHandleViolation].
	MustHandle bool
}

func (e Envelope) String() string {
	return fmt.Sprintf("%s->%s(must_handle=%v)", e.Event.Tag, e.Target, e.MustHandle)
}
