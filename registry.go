package interleave

import "sync"

// registry owns the id -> binding maps for a single iteration: which
// [ActorID]s have been reserved/bound, and which [Operation] owns each
// [OperationID]. It is the runtime's analogue of the teacher's weak-pointer
// promise registry, simplified because an iteration's lifetime is bounded
// and fully synchronous: no scavenging goroutine is needed, since the whole
// registry is discarded between iterations.
type registry struct {
	mu sync.Mutex

	ids idSequence

	actors map[ActorID]any // concrete *actorBase, by id
	ops    map[OperationID]*Operation

	reserved map[ActorID]struct{}
}

func newRegistry() *registry {
	return &registry{
		actors:   make(map[ActorID]any),
		ops:      make(map[OperationID]*Operation),
		reserved: make(map[ActorID]struct{}),
	}
}

// reserve allocates a fresh id scoped to kind and marks it reserved-but-
// unbound, so it can be referenced (e.g. sent to, in a constructor payload)
// before the actor backing it has started running.
func (r *registry) reserve(kind string) ActorID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := newActorID(kind)
	r.reserved[id] = struct{}{}
	return id
}

// bind associates id with the concrete actor value that will service it.
// Binding an id twice is a usage error in the caller, not something the
// registry itself guards against beyond overwriting.
func (r *registry) bind(id ActorID, actor any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, id)
	r.actors[id] = actor
}

// lookup returns the actor bound to id, or nil if id is unknown or only
// reserved (not yet bound).
func (r *registry) lookup(id ActorID) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actors[id]
}

func (r *registry) registerOp(op *Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op.id] = op
}

func (r *registry) unregisterOp(id OperationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ops, id)
}

// snapshotOps returns a stable slice of every still-registered operation,
// for use by the scheduler's scan over enabled/blocked operations and by
// [Deadlock] reporting.
func (r *registry) snapshotOps() []*Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Operation, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	return out
}
