package interleave

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// OperationID stably identifies an [Operation] for the lifetime of a single
// iteration. Ids are assigned sequentially by the owning [Runtime] and are
// never reused within an iteration.
type OperationID uint64

// GroupID identifies an [Operation] group. The root operation is in group 0;
// [Context.Spawn] keeps the caller's group and [Context.SpawnGroup]
// allocates a new one. No per-group state is kept.
type GroupID uint64

// ActorID identifies an actor (or state machine, which is an actor
// specialization). Unlike [OperationID], actor ids are caller-facing: a
// caller may reserve one up front (see [Context.ReserveID]) and bind it to a
// concrete actor later, so actor ids are strings rather than a dense
// sequential range.
type ActorID string

// idSequence generates dense, monotonically increasing ids for a single run.
type idSequence struct {
	next atomic.Uint64
}

func (s *idSequence) nextOperationID() OperationID {
	return OperationID(s.next.Add(1))
}

func (s *idSequence) nextGroupID() GroupID {
	return GroupID(s.next.Add(1))
}

// newActorID generates a fresh actor id scoped to kind: always kind, "#",
// and a random UUID.
func newActorID(kind string) ActorID {
	return ActorID(kind + "#" + uuid.NewString())
}
