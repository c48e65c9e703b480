package interleave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pingPongTable(t *testing.T, received *[]string) *HandlerTable {
	t.Helper()
	return NewHandlerTable("idle",
		&StateConfig{
			Name: "idle",
			Transitions: map[string]Transition{
				"ping": {Kind: DoAction, Action: func(ctx *Context, ev Event) {
					*received = append(*received, "ping")
				}},
			},
		},
	)
}

func TestActorDispatchesDeclaredEvent(t *testing.T) {
	var received []string
	table := pingPongTable(t, &received)

	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		id, err := ctx.CreateActor("pinger", table, nil, nil)
		if err != nil {
			panic(err)
		}
		if err := ctx.Send(id, Event{Tag: "ping"}, false); err != nil {
			panic(err)
		}
		if err := ctx.Send(id, Event{Tag: HaltTag}, false); err != nil {
			panic(err)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ping"}, received)
}

func TestActorUnhandledEventAbortsIteration(t *testing.T) {
	table := NewHandlerTable("idle", &StateConfig{Name: "idle"})

	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		id, _ := ctx.CreateActor("mute", table, nil, nil)
		_ = ctx.Send(id, Event{Tag: "unexpected"}, false)
	})
	var unhandled *UnhandledEvent
	require.ErrorAs(t, err, &unhandled)
	assert.Equal(t, "unexpected", unhandled.Tag)
}

func TestActorMustHandleViolationOnHalt(t *testing.T) {
	table := NewHandlerTable("idle", &StateConfig{Name: "idle", Defer: map[string]bool{"important": true}})

	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		id, _ := ctx.CreateActor("deferrer", table, nil, nil)
		_ = ctx.Send(id, Event{Tag: "important"}, true)
		_ = ctx.Send(id, Event{Tag: HaltTag}, false)
	})
	var violation *MustHandleViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "important", violation.Tag)
}

func TestActorUnbalancedPopIsUsageError(t *testing.T) {
	table := NewHandlerTable("idle",
		&StateConfig{
			Name: "idle",
			Transitions: map[string]Transition{
				"go": {Kind: DoAction, Action: func(ctx *Context, ev Event) { ctx.Pop() }},
			},
		},
	)

	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		id, _ := ctx.CreateActor("popper", table, nil, nil)
		_ = ctx.Send(id, Event{Tag: "go"}, false)
	})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

func TestHandlerTableRejectsUndeclaredTarget(t *testing.T) {
	table := NewHandlerTable("idle",
		&StateConfig{
			Name:        "idle",
			Transitions: map[string]Transition{"go": {Kind: Goto, Target: "nowhere"}},
		},
	)
	err := validateHandlerTable(table)
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

func TestActorPushAndPop(t *testing.T) {
	var entries []string
	table := NewHandlerTable("a",
		&StateConfig{
			Name:    "a",
			OnEntry: func(ctx *Context) { entries = append(entries, "enter-a") },
			Transitions: map[string]Transition{
				"push": {Kind: Push, Target: "b"},
			},
		},
		&StateConfig{
			Name:    "b",
			OnEntry: func(ctx *Context) { entries = append(entries, "enter-b") },
			OnExit:  func(ctx *Context) { entries = append(entries, "exit-b") },
			Transitions: map[string]Transition{
				"pop": {Kind: DoAction, Action: func(ctx *Context, ev Event) { ctx.Pop() }},
			},
		},
	)

	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		id, _ := ctx.CreateActor("pusher", table, nil, nil)
		_ = ctx.Send(id, Event{Tag: "push"}, false)
		_ = ctx.Send(id, Event{Tag: "pop"}, false)
		_ = ctx.Send(id, Event{Tag: HaltTag}, false)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"enter-a", "enter-b", "exit-b"}, entries)
}

func TestActorRaiseThenPopInSameHandlerIsUsageError(t *testing.T) {
	table := NewHandlerTable("a",
		&StateConfig{
			Name: "a",
			Transitions: map[string]Transition{
				"push": {Kind: Push, Target: "b"},
			},
		},
		&StateConfig{
			Name: "b",
			Transitions: map[string]Transition{
				"both": {Kind: DoAction, Action: func(ctx *Context, ev Event) {
					ctx.Raise(Event{Tag: "whatever"})
					ctx.Pop()
				}},
			},
		},
	)

	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		id, _ := ctx.CreateActor("double", table, nil, nil)
		_ = ctx.Send(id, Event{Tag: "push"}, false)
		_ = ctx.Send(id, Event{Tag: "both"}, false)
	})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
}

func TestActorPopFromOnExitIsUsageError(t *testing.T) {
	table := NewHandlerTable("a",
		&StateConfig{
			Name: "a",
			Transitions: map[string]Transition{
				"push": {Kind: Push, Target: "b"},
			},
		},
		&StateConfig{
			Name:   "b",
			OnExit: func(ctx *Context) { ctx.Pop() },
			Transitions: map[string]Transition{
				"leave": {Kind: Goto, Target: "a"},
			},
		},
	)

	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		id, _ := ctx.CreateActor("exiter", table, nil, nil)
		_ = ctx.Send(id, Event{Tag: "push"}, false)
		_ = ctx.Send(id, Event{Tag: "leave"}, false)
	})
	var usage *UsageError
	require.ErrorAs(t, err, &usage)
	assert.Contains(t, usage.Message, "OnExit")
}
