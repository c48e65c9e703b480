package interleave

import "fmt"

// Context is the handle a running [Operation] uses to reach every
// scheduling point: voluntary yields, blocking waits, nondeterministic
// choices, spawning further operations, and actor messaging. A Context is
// only ever valid while its owning operation holds the scheduler's baton;
// calling its methods from any other goroutine is a usage error the
// runtime cannot detect and will corrupt the run.
type Context struct {
	op    *Operation
	sched *Scheduler
}

// OperationID returns the id of the operation this Context belongs to.
func (c *Context) OperationID() OperationID { return c.op.id }

// Yield voluntarily relinquishes the baton without blocking: the operation
// remains Enabled, but control passes back to the scheduler, which is
// free to run any other enabled operation (including this one again) next.
// Use Yield at points where an interleaving should be explored even though
// nothing is actually unavailable yet.
func (c *Context) Yield() {
	c.sched.parkAndResume(c.op, func() {})
}

// Block suspends the operation until predicate reports true, recording
// reason for diagnostics (surfaced in [Deadlock]). predicate is
// re-evaluated by the scheduler every time the set of enabled operations
// is recomputed; it must be side-effect free and safe to call from the
// scheduler goroutine.
func (c *Context) Block(reason string, predicate func() bool) {
	c.sched.block(c.op, StatusBlockedOnReceive, reason, predicate, nil)
}

// BlockOnDelay suspends the operation until predicate reports true,
// classified as a controlled-time wait rather than a message wait; this
// distinction only affects how the wait is reported, not how it is
// scheduled.
func (c *Context) BlockOnDelay(reason string, predicate func() bool) {
	c.sched.block(c.op, StatusBlockedOnDelay, reason, predicate, nil)
}

// Join suspends the operation until every operation in ops has reached a
// terminal status.
func (c *Context) Join(ops ...*Operation) {
	set := make(map[OperationID]struct{}, len(ops))
	for _, o := range ops {
		if o != nil && !o.Status().Terminal() {
			set[o.id] = struct{}{}
		}
	}
	if len(set) == 0 {
		return
	}
	c.sched.block(c.op, StatusBlockedOnJoin, "join", nil, set)
}

// FlipCoin returns a scheduler-controlled boolean, recorded as a
// [DecisionBool] step so the choice can be replayed deterministically.
// fair marks the choice as one that must eventually return both true and
// false: if cycle detection finds the program stuck in a non-progressing
// loop with this as the most recent fair choice, the scheduler forces its
// value to flip on the next call, giving the program one chance to
// recover before a [LivenessViolation] is reported.
func (c *Context) FlipCoin(fair bool) bool {
	return c.sched.chooseBool(c.op, fair)
}

// ChooseInt returns a scheduler-controlled integer in [0, n), recorded as
// a [DecisionInt] step.
func (c *Context) ChooseInt(n int) int {
	if n <= 0 {
		panic(&UsageError{Actor: c.ownerID(), Message: "ChooseInt requires a positive bound"})
	}
	return c.sched.chooseInt(c.op, n)
}

// Assert raises an [AssertionFailure] that aborts the iteration if cond is
// false.
func (c *Context) Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(&AssertionFailure{Op: c.op.id, Message: fmt.Sprintf(format, args...)})
	}
}

// Spawn starts a new concurrently-scheduled operation in the same group as
// the caller and returns a handle usable with [Context.Join].
func (c *Context) Spawn(fn Func) *Operation {
	return c.sched.spawn(fn, c.op.group, c.op.id)
}

// SpawnGroup starts a new operation in a freshly allocated group, used to
// tag a batch of related child operations (e.g. one per request). There is
// no group-wide cancel or join; each child is joined individually through
// [Context.Join].
func (c *Context) SpawnGroup(fn Func) (*Operation, GroupID) {
	gid := c.sched.reg.ids.nextGroupID()
	return c.sched.spawn(fn, gid, c.op.id), gid
}

// ownerID returns the id of the actor that owns the current operation, or
// "" if the operation is a free-standing task with no actor.
func (c *Context) ownerID() ActorID {
	if a, ok := c.op.sched.ownerOf(c.op); ok {
		return a.id
	}
	return ""
}

// owner returns the actor that owns the current operation, panicking if
// called from a free-standing task operation: Raise/Pop/Halt only make
// sense from within an actor's own dispatch loop.
func (c *Context) owner(method string) *actorBase {
	a, ok := c.op.sched.ownerOf(c.op)
	if !ok {
		panic(&UsageError{Message: method + " called from an operation with no owning actor"})
	}
	if a.halted {
		panic(&InvokedWhileHalted{Actor: a.id, Method: method})
	}
	return a
}

// Raise schedules ev to be dispatched by the calling actor immediately
// after its current handler returns, bypassing the inbox. At most one of
// {raise, goto, push, pop} may be invoked by a single handler body; a
// second invocation (a second Raise, or a Raise alongside the Goto/Push
// the current transition already performs, or alongside a Pop) is a
// [UsageError]. Unlike goto/push/pop, raise is also permitted from an
// OnExit hook.
func (c *Context) Raise(ev Event) {
	a := c.owner("Raise")
	a.markPrimitive("raise")
	a.raised = &ev
}

// Pop exits the calling actor's active (pushed) state and resumes the
// state it was pushed from. Pop is one of {raise, goto, push, pop}: at
// most one may be invoked by a single handler body, and none but raise
// may be invoked from an OnExit hook.
func (c *Context) Pop() {
	a := c.owner("Pop")
	if a.inOnExit {
		panic(&UsageError{Actor: a.id, State: a.leaf, Message: "pop is not permitted from OnExit; only raise is"})
	}
	a.markPrimitive("pop")
	// The exit chain run by pop is a consequence of this Pop, not another
	// primitive of the handler body, so Raise stays permitted from OnExit.
	a.primitiveUsed = ""
	a.pop(c)
	a.primitiveUsed = "pop"
}

// Halt raises the well-known halt event for the calling actor, which will
// run its OnExit chain and terminate its dispatch loop once the current
// handler returns.
func (c *Context) Halt() {
	c.Raise(Event{Tag: HaltTag})
}

// Send delivers ev to target's inbox. An unknown target is [ErrUnknownTarget];
// a target bound to something other than an actor is [ErrWrongTargetType].
// mustHandle marks ev as required to reach a live handler before target
// halts.
func (c *Context) Send(target ActorID, ev Event, mustHandle bool) error {
	v := c.sched.reg.lookup(target)
	if v == nil {
		return ErrUnknownTarget
	}
	a, ok := v.(*actorBase)
	if !ok {
		return ErrWrongTargetType
	}
	return a.enqueue(Envelope{Event: ev, Sender: c.op.id, Target: target, Group: c.op.group, MustHandle: mustHandle})
}

// ReserveID allocates an [ActorID] scoped to kind without yet binding it to
// a concrete actor, so it can be referenced (e.g. embedded in a
// constructor payload sent to another actor) before the actor backing it
// starts running.
func (c *Context) ReserveID(kind string) ActorID {
	return c.sched.reg.reserve(kind)
}

// CreateActor spawns a new actor driven by table, returning its id. init,
// if non-nil, runs once inside the actor's own operation before its
// dispatch loop begins - the place to stash constructor arguments the
// actor's handlers will later close over. hooks may be nil.
func (c *Context) CreateActor(kind string, table *HandlerTable, init ActionFunc, hooks *Hooks) (ActorID, error) {
	return c.createActor(c.ReserveID(kind), table, init, hooks)
}

// CreateActorWithID binds a previously [Context.ReserveID]'d id to a new
// actor driven by table.
func (c *Context) CreateActorWithID(id ActorID, table *HandlerTable, init ActionFunc, hooks *Hooks) (ActorID, error) {
	return c.createActor(id, table, init, hooks)
}

func (c *Context) createActor(id ActorID, table *HandlerTable, init ActionFunc, hooks *Hooks) (ActorID, error) {
	if err := validateHandlerTable(table); err != nil {
		return "", err
	}
	a := newActorBase(c.sched, id, table)
	if hooks != nil {
		a.onException = hooks.OnException
		a.onHalt = hooks.OnHalt
		a.onUnhandled = hooks.OnUnhandled
	}
	c.sched.reg.bind(id, a)
	op := c.sched.spawn(func(ctx *Context) {
		if init != nil {
			init(ctx)
		}
		a.run(ctx)
	}, c.op.group, c.op.id)
	op.owner = a
	return id, nil
}

// CreateStateMachine is an alias for [Context.CreateActor]: a "state
// machine" and an "actor" share the same dispatch machinery here, the
// hierarchical handler table is simply unused by actors that declare only
// a single flat state.
func (c *Context) CreateStateMachine(kind string, table *HandlerTable, init ActionFunc, hooks *Hooks) (ActorID, error) {
	return c.CreateActor(kind, table, init, hooks)
}

// ActorData returns the value last passed to [Context.SetActorData] by the
// calling actor, or nil if none was ever set. Handlers declared on a
// shared [HandlerTable] use this to reach their own actor instance's
// state, since the table itself is shared across every instance of a
// kind.
func (c *Context) ActorData() any {
	return c.owner("ActorData").data
}

// SetActorData stores v as the calling actor's instance data.
func (c *Context) SetActorData(v any) {
	c.owner("SetActorData").data = v
}

// Suppress sets a nested counter on the calling operation that, while
// positive, keeps the scheduler from switching away from this operation at
// ordinary scheduling points (yields, sends, dequeues, choices): as long as
// the operation remains enabled, it keeps the baton across them. The
// scheduler still switches away the moment the operation becomes
// not-enabled (blocks or completes), regardless of the counter. Nested
// Suppress/Resume pairs are legal; the gate lifts only once the counter
// returns to zero.
func (c *Context) Suppress() {
	c.op.mu.Lock()
	c.op.suppress++
	c.op.mu.Unlock()
}

// Resume decrements the suppress counter set by [Context.Suppress]. Calling
// Resume with no outstanding Suppress is a no-op, matching a floor at zero
// rather than going negative.
func (c *Context) Resume() {
	c.op.mu.Lock()
	if c.op.suppress > 0 {
		c.op.suppress--
	}
	c.op.mu.Unlock()
}

// Notify delivers ev to every registered [Monitor] by tag.
func (c *Context) Notify(ev Event) {
	for _, m := range c.sched.monitors {
		m.process(ev.Tag)
	}
}
