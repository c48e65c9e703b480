package interleave

// actorBase is the dispatch loop shared by every actor kind: it owns an
// [Inbox], a [HandlerTable], and the current active state stack (leaf
// state at the end, ancestors implicit via the table's Parent chain; an
// explicit stack entry only exists per pushed state). All of it runs
// inside the single [Operation] the owning [Runtime] spawned for this
// actor, so no locking is required beyond what [Inbox] and the registry
// already provide for cross-operation visibility.
type actorBase struct {
	id    ActorID
	sched *Scheduler
	table *HandlerTable

	stack  []string // pushed states below the active leaf, root-most first
	leaf   string
	inbox  Inbox
	halted bool
	raised *Event

	// primitiveUsed names which of {raise, goto, push, pop} the handler
	// currently dispatching has already invoked, "" if none yet; checked
	// and set by markPrimitive, reset around each handler body.
	primitiveUsed string
	// inOnExit is true only while a state's OnExit hook is executing, so
	// Pop (and, were it directly callable, goto/push) can be rejected
	// there while Raise remains permitted.
	inOnExit bool

	onException func(err error) (handled bool)
	onHalt      ActionFunc
	onUnhandled func(tag, state string) (resolved bool)

	// data is per-instance state a caller stashes via [Context.SetActorData]
	// during init, for handlers (shared across every instance of a kind via
	// the same [HandlerTable]) to reach through [Context.ActorData].
	data any
}

func newActorBase(sched *Scheduler, id ActorID, table *HandlerTable) *actorBase {
	return &actorBase{sched: sched, id: id, table: table, leaf: table.Initial}
}

// Hooks are the optional lifecycle overrides a caller may attach to an
// actor at creation time, mirroring the override methods a Coyote state
// machine subclass would provide: OnException decides whether a failure
// raised while processing an event is fatal to the iteration (false) or
// resolved by halting just this actor (true); OnHalt runs once, after
// every state's OnExit, as the actor's dispatch loop ends; OnUnhandled
// gets one chance to resolve (resolved=true) an event with no declared
// disposition before it becomes an [UnhandledEvent].
type Hooks struct {
	OnException func(err error) (handled bool)
	OnHalt      ActionFunc
	OnUnhandled func(tag, state string) (resolved bool)
}

// run is the [Func] body spawned for this actor's operation.
func (a *actorBase) run(ctx *Context) {
	a.runEntryChain(ctx, a.table.chain(a.leaf))
	for !a.halted {
		a.stepGuarded(ctx)
	}
}

// stepGuarded runs one step, routing a panic raised by user handler code
// through onException if one is installed: onException may resolve the
// failure by halting the actor instead of letting the panic end the whole
// iteration. Panics raised by the runtime itself (UnhandledEvent,
// MustHandleViolation, UsageError) are still subject to onException, the
// same as Coyote's OnException covers both user and framework-detected
// faults.
func (a *actorBase) stepGuarded(ctx *Context) {
	if a.onException == nil {
		a.step(ctx)
		return
	}
	var failure error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if err, ok := r.(error); ok {
					failure = err
				} else {
					panic(r)
				}
			}
		}()
		a.step(ctx)
	}()
	if failure != nil {
		if !a.onException(failure) {
			panic(failure)
		}
		a.doHalt(ctx)
	}
}

// runEntryChain runs OnEntry for a chain as returned by [HandlerTable.chain]
// (nearest ancestor first), in root-to-leaf order - the order in which a
// freshly entered hierarchy initializes its ancestors before its leaf.
func (a *actorBase) runEntryChain(ctx *Context, chain []string) {
	for i := len(chain) - 1; i >= 0; i-- {
		if cfg := a.table.States[chain[i]]; cfg != nil && cfg.OnEntry != nil {
			cfg.OnEntry(ctx)
		}
	}
}

// runExitChain runs OnExit for a chain in leaf-to-root order, the reverse
// of entry.
func (a *actorBase) runExitChain(ctx *Context, chain []string) {
	a.inOnExit = true
	defer func() { a.inOnExit = false }()
	for _, s := range chain {
		if cfg := a.table.States[s]; cfg != nil && cfg.OnExit != nil {
			cfg.OnExit(ctx)
		}
	}
}

// markPrimitive records that the handler body currently dispatching has
// invoked kind, one of {raise, goto, push, pop}; a second invocation within
// the same handler body is a [UsageError]. A Goto/Push transition itself
// counts as its kind, pre-marked by [actorBase.dispatch] before the
// transition's Action runs, so an Action that also calls Raise or Pop is
// caught here rather than silently corrupting the state stack.
func (a *actorBase) markPrimitive(kind string) {
	if a.primitiveUsed != "" {
		panic(&UsageError{Actor: a.id, State: a.leaf, Message: "more than one of {raise, goto, push, pop} invoked in a single handler body"})
	}
	a.primitiveUsed = kind
}

func (a *actorBase) step(ctx *Context) {
	var env Envelope
	if a.raised != nil {
		env = Envelope{Event: *a.raised, Target: a.id}
		a.raised = nil
	} else {
		var found bool
		var disposition Disposition
		var dequeued Envelope
		ctx.Block("receive", func() bool {
			dequeued, disposition, found = a.inbox.Dequeue(func(tag string) Disposition {
				d := a.table.classify(a.leaf, tag)
				if d == Unhandled && a.onUnhandled != nil {
					// Take it out of the inbox so dispatch can offer it to onUnhandled.
					return Handled
				}
				return d
			})
			return found || disposition == Unhandled
		})
		if !found {
			panic(&UnhandledEvent{Actor: a.id, State: a.leaf, Tag: dequeued.Event.Tag})
		}
		env = dequeued
	}
	a.dispatch(ctx, env)
}

func (a *actorBase) dispatch(ctx *Context, env Envelope) {
	tag := env.Event.Tag
	if tag == HaltTag {
		a.doHalt(ctx)
		return
	}
	t, _, ok := a.table.lookup(a.leaf, tag)
	if !ok {
		if a.onUnhandled != nil && a.onUnhandled(tag, a.leaf) {
			return
		}
		panic(&UnhandledEvent{Actor: a.id, State: a.leaf, Tag: tag})
	}
	// primitiveUsed is scoped to the Action call alone, not to the
	// OnEntry/OnExit chains gotoState/pushState run afterwards - those
	// hooks are a consequence of the transition, not additional primitives
	// invoked by this handler body, and commonly Raise (e.g. to Halt) on
	// entering a terminal state.
	a.primitiveUsed = ""
	switch t.Kind {
	case Goto:
		a.primitiveUsed = "goto"
	case Push:
		a.primitiveUsed = "push"
	}
	if t.Action != nil {
		t.Action(ctx, env.Event)
	}
	a.primitiveUsed = ""
	switch t.Kind {
	case Goto:
		a.gotoState(ctx, t.Target)
	case Push:
		a.pushState(ctx, t.Target)
	}
}

func (a *actorBase) gotoState(ctx *Context, target string) {
	a.runExitChain(ctx, a.table.chain(a.leaf))
	for len(a.stack) > 0 {
		popped := a.stack[len(a.stack)-1]
		a.stack = a.stack[:len(a.stack)-1]
		a.runExitChain(ctx, []string{popped})
	}
	a.leaf = target
	a.runEntryChain(ctx, a.table.chain(target))
}

func (a *actorBase) pushState(ctx *Context, target string) {
	a.stack = append(a.stack, a.leaf)
	a.leaf = target
	a.runEntryChain(ctx, a.table.chain(target))
}

// Pop exits the active leaf state and resumes the state it was pushed
// from, re-running no entry hook (the resumed state is already active,
// merely no longer shadowed).
func (a *actorBase) pop(ctx *Context) {
	if len(a.stack) == 0 {
		panic(&UsageError{Actor: a.id, State: a.leaf, Message: "pop with no pushed state to return to"})
	}
	a.runExitChain(ctx, a.table.chain(a.leaf))
	a.leaf = a.stack[len(a.stack)-1]
	a.stack = a.stack[:len(a.stack)-1]
}

func (a *actorBase) doHalt(ctx *Context) {
	a.runExitChain(ctx, a.table.chain(a.leaf))
	for i := len(a.stack) - 1; i >= 0; i-- {
		a.runExitChain(ctx, []string{a.stack[i]})
	}
	a.halted = true
	if a.onHalt != nil {
		a.onHalt(ctx)
	}
	for _, dropped := range a.inbox.DrainMustHandle() {
		panic(&MustHandleViolation{Actor: a.id, Tag: dropped.Event.Tag, Phase: "drained before halt"})
	}
}

// enqueue appends env to the actor's inbox. If the actor has already
// halted, the envelope is reported to the observer as dropped rather than
// ever being queued; a must-handle envelope arriving post-halt is instead
// a [MustHandleViolation], matching an explicit send-while-halted being an
// authoring bug rather than a benign race.
func (a *actorBase) enqueue(env Envelope) error {
	if a.halted {
		if env.MustHandle {
			return &MustHandleViolation{Actor: a.id, Tag: env.Event.Tag, Phase: "sent after halt"}
		}
		a.sched.observer.notifyDropped(env)
		return nil
	}
	a.inbox.Push(env)
	return nil
}
