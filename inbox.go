package interleave

// Disposition is how an actor's current state (and its ancestor chain)
// classifies a pending envelope's tag, as decided by the declarative
// [HandlerTable] in effect when the inbox is scanned.
type Disposition int

const (
	// Handled means a live handler (local or inherited) will process the
	// event: dequeue it and run the handler.
	Handled Disposition = iota
	// Deferred means the event must stay in the inbox, in place, to be
	// reconsidered after the next state transition.
	Deferred
	// Ignored means the event is silently discarded without ever reaching
	// a handler.
	Ignored
	// Unhandled means neither a handler, a defer, nor an ignore declaration
	// covers the tag: an [UnhandledEvent] error.
	Unhandled
)

// Inbox is a single actor's FIFO event queue. Unlike a plain channel, a
// scan for the next dequeueable envelope may pass over (but not remove)
// deferred entries, and silently drops ignored ones as it passes them -
// mirroring the declarative defer/ignore vocabulary state machines use
// instead of hand-rolled queue filtering.
type Inbox struct {
	items []Envelope
}

// Push appends an envelope to the tail of the inbox.
func (ib *Inbox) Push(e Envelope) {
	ib.items = append(ib.items, e)
}

// Len reports the number of envelopes currently queued.
func (ib *Inbox) Len() int { return len(ib.items) }

// Peek returns the envelopes currently queued without removing them, for
// diagnostics and must-handle draining.
func (ib *Inbox) Peek() []Envelope {
	out := make([]Envelope, len(ib.items))
	copy(out, ib.items)
	return out
}

// Dequeue scans the inbox in FIFO order, asking classify for each
// envelope's tag disposition in the actor's current state. Ignored
// envelopes are removed as they are passed over. The first Handled or
// Unhandled envelope found ends the scan: Handled envelopes are removed
// and returned with found=true; Unhandled envelopes are left in place (the
// caller is expected to abort the iteration) and returned with
// found=false, disposition=Unhandled. If every envelope is Deferred (or
// the inbox is empty), Dequeue returns found=false, disposition=Deferred.
func (ib *Inbox) Dequeue(classify func(tag string) Disposition) (env Envelope, disposition Disposition, found bool) {
	i := 0
	for i < len(ib.items) {
		e := ib.items[i]
		switch classify(e.Event.Tag) {
		case Ignored:
			ib.items = append(ib.items[:i], ib.items[i+1:]...)
			continue
		case Deferred:
			i++
			continue
		case Unhandled:
			return e, Unhandled, false
		default: // Handled
			ib.items = append(ib.items[:i], ib.items[i+1:]...)
			return e, Handled, true
		}
	}
	return Envelope{}, Deferred, false
}

// DrainMustHandle removes and returns every remaining envelope marked
// MustHandle, for the halt-time check that raises [MustHandleViolation]
// when such an envelope was never consumed by a live handler.
func (ib *Inbox) DrainMustHandle() []Envelope {
	var drained []Envelope
	kept := ib.items[:0]
	for _, e := range ib.items {
		if e.MustHandle {
			drained = append(drained, e)
		} else {
			kept = append(kept, e)
		}
	}
	ib.items = kept
	return drained
}
